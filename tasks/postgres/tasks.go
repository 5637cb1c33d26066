// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/absmach/farmgate/pkg/postgres"
	"github.com/absmach/farmgate/tasks"
)

const columns = `id, controller_id, type, state, params, run_until, created_at, updated_at`

var _ tasks.Repository = (*repository)(nil)

type repository struct {
	db postgres.Database
}

// NewRepository instantiates a PostgreSQL implementation of task repository.
func NewRepository(db postgres.Database) tasks.Repository {
	return &repository{db: db}
}

func (repo *repository) Save(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	q := fmt.Sprintf(`INSERT INTO tasks (%s)
		VALUES (:id, :controller_id, :type, :state, :params, :run_until, :created_at, :updated_at)
		RETURNING %s`, columns, columns)

	dbt, err := toDBTask(t)
	if err != nil {
		return tasks.Task{}, errors.Wrap(repoerr.ErrMalformedEntity, err)
	}

	rows, err := repo.db.NamedQueryContext(ctx, q, dbt)
	if err != nil {
		return tasks.Task{}, postgres.HandleError(repoerr.ErrCreateEntity, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return tasks.Task{}, postgres.HandleError(repoerr.ErrCreateEntity, err)
		}
		return tasks.Task{}, repoerr.ErrCreateEntity
	}
	dbt = dbTask{}
	if err := rows.StructScan(&dbt); err != nil {
		return tasks.Task{}, errors.Wrap(repoerr.ErrCreateEntity, err)
	}

	return toTask(dbt)
}

func (repo *repository) RetrieveByID(ctx context.Context, id string) (tasks.Task, error) {
	q := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, columns)

	var dbt dbTask
	if err := repo.db.QueryRowxContext(ctx, q, id).StructScan(&dbt); err != nil {
		return tasks.Task{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return toTask(dbt)
}

func (repo *repository) RetrieveAll(ctx context.Context, pm tasks.PageMetadata) (tasks.Page, error) {
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

	q := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY created_at, id %s OFFSET :offset`, columns, where, limit)
	rows, err := repo.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return tasks.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}
	defer rows.Close()

	items := []tasks.Task{}
	for rows.Next() {
		var dbt dbTask
		if err := rows.StructScan(&dbt); err != nil {
			return tasks.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		t, err := toTask(dbt)
		if err != nil {
			return tasks.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		items = append(items, t)
	}

	total, err := postgres.Total(ctx, repo.db, fmt.Sprintf(`SELECT COUNT(*) FROM tasks %s`, where), params)
	if err != nil {
		return tasks.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return tasks.Page{
		Total:  total,
		Offset: pm.Offset,
		Limit:  pm.Limit,
		Tasks:  items,
	}, nil
}

func (repo *repository) Update(ctx context.Context, q tasks.Query, fn tasks.UpdateFunc) error {
	tx, err := postgres.BeginTx(ctx, repo.db)
	if err != nil {
		return postgres.HandleError(repoerr.ErrUpdateEntity, err)
	}

	query, args := lockQuery(q)
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return postgres.Rollback(tx, postgres.HandleError(repoerr.ErrViewEntity, err))
	}
	var locked []tasks.Task
	for rows.Next() {
		var dbt dbTask
		if err := rows.StructScan(&dbt); err != nil {
			rows.Close()
			return postgres.Rollback(tx, errors.Wrap(repoerr.ErrViewEntity, err))
		}
		t, err := toTask(dbt)
		if err != nil {
			rows.Close()
			return postgres.Rollback(tx, errors.Wrap(repoerr.ErrViewEntity, err))
		}
		locked = append(locked, t)
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
		for i, t := range changed {
			ids[i] = t.ID
			states[i] = string(t.State)
			updated[i] = t.UpdatedAt
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks AS t SET state = u.state, updated_at = u.updated_at
			FROM unnest($1::text[], $2::text[], $3::timestamptz[]) AS u(id, state, updated_at)
			WHERE t.id = u.id`, ids, states, updated); err != nil {
			return postgres.Rollback(tx, postgres.HandleError(repoerr.ErrUpdateEntity, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return postgres.HandleError(repoerr.ErrUpdateEntity, err)
	}

	return nil
}

func lockQuery(q tasks.Query) (string, []interface{}) {
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

	return fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY created_at, id FOR UPDATE`, columns, where), args
}

type dbTask struct {
	ID           string       `db:"id"`
	ControllerID string       `db:"controller_id"`
	Type         string       `db:"type"`
	State        string       `db:"state"`
	Params       []byte       `db:"params"`
	RunUntil     sql.NullTime `db:"run_until"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func toDBTask(t tasks.Task) (dbTask, error) {
	params := []byte("{}")
	if len(t.Params) > 0 {
		b, err := json.Marshal(t.Params)
		if err != nil {
			return dbTask{}, err
		}
		params = b
	}
	var runUntil sql.NullTime
	if t.RunUntil != nil {
		runUntil = sql.NullTime{Time: *t.RunUntil, Valid: true}
	}

	return dbTask{
		ID:           t.ID,
		ControllerID: t.ControllerID,
		Type:         string(t.Type),
		State:        string(t.State),
		Params:       params,
		RunUntil:     runUntil,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}, nil
}

func toTask(dbt dbTask) (tasks.Task, error) {
	var params map[string]interface{}
	if len(dbt.Params) > 0 {
		if err := json.Unmarshal(dbt.Params, &params); err != nil {
			return tasks.Task{}, err
		}
	}
	var runUntil *time.Time
	if dbt.RunUntil.Valid {
		ru := dbt.RunUntil.Time.UTC()
		runUntil = &ru
	}

	return tasks.Task{
		ID:           dbt.ID,
		ControllerID: dbt.ControllerID,
		Type:         tasks.Type(dbt.Type),
		State:        tasks.State(dbt.State),
		Params:       params,
		RunUntil:     runUntil,
		CreatedAt:    dbt.CreatedAt.UTC(),
		UpdatedAt:    dbt.UpdatedAt.UTC(),
	}, nil
}
