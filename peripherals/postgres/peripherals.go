// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/absmach/farmgate/pkg/postgres"
)

const columns = `id, controller_id, type, state, data_point_types, extras, created_at, updated_at`

var _ peripherals.Repository = (*repository)(nil)

type repository struct {
	db postgres.Database
}

// NewRepository instantiates a PostgreSQL implementation of peripheral repository.
func NewRepository(db postgres.Database) peripherals.Repository {
	return &repository{db: db}
}

func (repo *repository) Save(ctx context.Context, p peripherals.Peripheral) (peripherals.Peripheral, error) {
	q := fmt.Sprintf(`INSERT INTO peripherals (%s)
		VALUES (:id, :controller_id, :type, :state, :data_point_types, :extras, :created_at, :updated_at)
		RETURNING %s`, columns, columns)

	dbp, err := toDBPeripheral(p)
	if err != nil {
		return peripherals.Peripheral{}, errors.Wrap(repoerr.ErrMalformedEntity, err)
	}

	rows, err := repo.db.NamedQueryContext(ctx, q, dbp)
	if err != nil {
		return peripherals.Peripheral{}, postgres.HandleError(repoerr.ErrCreateEntity, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return peripherals.Peripheral{}, postgres.HandleError(repoerr.ErrCreateEntity, err)
		}
		return peripherals.Peripheral{}, repoerr.ErrCreateEntity
	}
	dbp = dbPeripheral{}
	if err := rows.StructScan(&dbp); err != nil {
		return peripherals.Peripheral{}, errors.Wrap(repoerr.ErrCreateEntity, err)
	}

	return toPeripheral(dbp)
}

func (repo *repository) RetrieveByID(ctx context.Context, id string) (peripherals.Peripheral, error) {
	q := fmt.Sprintf(`SELECT %s FROM peripherals WHERE id = $1`, columns)

	var dbp dbPeripheral
	if err := repo.db.QueryRowxContext(ctx, q, id).StructScan(&dbp); err != nil {
		return peripherals.Peripheral{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return toPeripheral(dbp)
}

func (repo *repository) RetrieveAll(ctx context.Context, pm peripherals.PageMetadata) (peripherals.Page, error) {
	var conds []string
	params := map[string]interface{}{
		"offset": pm.Offset,
		"limit":  pm.Limit,
	}
	if pm.ControllerID != "" {
		conds = append(conds, "controller_id = :controller_id")
		params["controller_id"] = pm.ControllerID
	}
	if pm.State != "" {
		conds = append(conds, "state = :state")
		params["state"] = string(pm.State)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := ""
	if pm.Limit > 0 {
		limit = "LIMIT :limit"
	}

	q := fmt.Sprintf(`SELECT %s FROM peripherals %s ORDER BY created_at, id %s OFFSET :offset`, columns, where, limit)
	rows, err := repo.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return peripherals.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}
	defer rows.Close()

	items := []peripherals.Peripheral{}
	for rows.Next() {
		var dbp dbPeripheral
		if err := rows.StructScan(&dbp); err != nil {
			return peripherals.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		p, err := toPeripheral(dbp)
		if err != nil {
			return peripherals.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		items = append(items, p)
	}

	total, err := postgres.Total(ctx, repo.db, fmt.Sprintf(`SELECT COUNT(*) FROM peripherals %s`, where), params)
	if err != nil {
		return peripherals.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return peripherals.Page{
		Total:       total,
		Offset:      pm.Offset,
		Limit:       pm.Limit,
		Peripherals: items,
	}, nil
}

func (repo *repository) Update(ctx context.Context, q peripherals.Query, fn peripherals.UpdateFunc) error {
	tx, err := postgres.BeginTx(ctx, repo.db)
	if err != nil {
		return postgres.HandleError(repoerr.ErrUpdateEntity, err)
	}

	query, args := lockQuery(q)
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return postgres.Rollback(tx, postgres.HandleError(repoerr.ErrViewEntity, err))
	}
	var locked []peripherals.Peripheral
	for rows.Next() {
		var dbp dbPeripheral
		if err := rows.StructScan(&dbp); err != nil {
			rows.Close()
			return postgres.Rollback(tx, errors.Wrap(repoerr.ErrViewEntity, err))
		}
		p, err := toPeripheral(dbp)
		if err != nil {
			rows.Close()
			return postgres.Rollback(tx, errors.Wrap(repoerr.ErrViewEntity, err))
		}
		locked = append(locked, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return postgres.Rollback(tx, postgres.HandleError(repoerr.ErrViewEntity, err))
	}
	rows.Close()

	changed, err := fn(locked)
	if err != nil {
		return postgres.Rollback(tx, err)
	}

	if len(changed) > 0 {
		ids := make([]string, len(changed))
		states := make([]string, len(changed))
		updated := make([]time.Time, len(changed))
		for i, p := range changed {
			ids[i] = p.ID
			states[i] = string(p.State)
			updated[i] = p.UpdatedAt
		}
		if _, err := tx.ExecContext(ctx, `UPDATE peripherals AS p SET state = u.state, updated_at = u.updated_at
			FROM unnest($1::text[], $2::text[], $3::timestamptz[]) AS u(id, state, updated_at)
			WHERE p.id = u.id`, ids, states, updated); err != nil {
			return postgres.Rollback(tx, postgres.HandleError(repoerr.ErrUpdateEntity, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return postgres.HandleError(repoerr.ErrUpdateEntity, err)
	}

	return nil
}

func lockQuery(q peripherals.Query) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if q.ControllerID != "" {
		args = append(args, q.ControllerID)
		conds = append(conds, fmt.Sprintf("controller_id = $%d", len(args)))
	}
	if len(q.IDs) > 0 {
		args = append(args, q.IDs)
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(q.States) > 0 {
		states := make([]string, len(q.States))
		for i, s := range q.States {
			states[i] = string(s)
		}
		args = append(args, states)
		conds = append(conds, fmt.Sprintf("state = ANY($%d)", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	return fmt.Sprintf(`SELECT %s FROM peripherals %s ORDER BY created_at, id FOR UPDATE`, columns, where), args
}

type dbPeripheral struct {
	ID             string    `db:"id"`
	ControllerID   string    `db:"controller_id"`
	Type           string    `db:"type"`
	State          string    `db:"state"`
	DataPointTypes []byte    `db:"data_point_types"`
	Extras         []byte    `db:"extras"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func toDBPeripheral(p peripherals.Peripheral) (dbPeripheral, error) {
	bindings := []byte("[]")
	if len(p.DataPointTypes) > 0 {
		b, err := json.Marshal(p.DataPointTypes)
		if err != nil {
			return dbPeripheral{}, err
		}
		bindings = b
	}
	extras := []byte("{}")
	if len(p.Extras) > 0 {
		b, err := json.Marshal(p.Extras)
		if err != nil {
			return dbPeripheral{}, err
		}
		extras = b
	}

	return dbPeripheral{
		ID:             p.ID,
		ControllerID:   p.ControllerID,
		Type:           string(p.Type),
		State:          string(p.State),
		DataPointTypes: bindings,
		Extras:         extras,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

func toPeripheral(dbp dbPeripheral) (peripherals.Peripheral, error) {
	var bindings []peripherals.Binding
	if len(dbp.DataPointTypes) > 0 {
		if err := json.Unmarshal(dbp.DataPointTypes, &bindings); err != nil {
			return peripherals.Peripheral{}, err
		}
	}
	var extras map[string]interface{}
	if len(dbp.Extras) > 0 {
		if err := json.Unmarshal(dbp.Extras, &extras); err != nil {
			return peripherals.Peripheral{}, err
		}
	}
	if len(bindings) == 0 {
		bindings = nil
	}
	if len(extras) == 0 {
		extras = nil
	}

	return peripherals.Peripheral{
		ID:             dbp.ID,
		ControllerID:   dbp.ControllerID,
		Type:           peripherals.Type(dbp.Type),
		State:          peripherals.State(dbp.State),
		DataPointTypes: bindings,
		Extras:         extras,
		CreatedAt:      dbp.CreatedAt.UTC(),
		UpdatedAt:      dbp.UpdatedAt.UTC(),
	}, nil
}
