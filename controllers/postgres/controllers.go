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

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/absmach/farmgate/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

const columns = `id, name, owner_id, key, metadata, created_at, updated_at`

var _ controllers.Repository = (*repository)(nil)

type repository struct {
	db postgres.Database
}

// NewRepository instantiates a PostgreSQL implementation of controller repository.
func NewRepository(db postgres.Database) controllers.Repository {
	return &repository{db: db}
}

func (repo *repository) Save(ctx context.Context, c controllers.Controller) (controllers.Controller, error) {
	q := fmt.Sprintf(`INSERT INTO controllers (%s)
		VALUES (:id, :name, :owner_id, :key, :metadata, :created_at, :updated_at)
		RETURNING %s`, columns, columns)

	dbc, err := toDBController(c)
	if err != nil {
		return controllers.Controller{}, errors.Wrap(repoerr.ErrMalformedEntity, err)
	}

	rows, err := repo.db.NamedQueryContext(ctx, q, dbc)
	return one(repoerr.ErrCreateEntity, rows, err)
}

func (repo *repository) RetrieveByID(ctx context.Context, id string) (controllers.Controller, error) {
	q := fmt.Sprintf(`SELECT %s FROM controllers WHERE id = $1`, columns)

	var dbc dbController
	if err := repo.db.QueryRowxContext(ctx, q, id).StructScan(&dbc); err != nil {
		return controllers.Controller{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return toController(dbc)
}

func (repo *repository) RetrieveByKey(ctx context.Context, key string) (controllers.Controller, error) {
	q := fmt.Sprintf(`SELECT %s FROM controllers WHERE key = $1`, columns)

	var dbc dbController
	if err := repo.db.QueryRowxContext(ctx, q, key).StructScan(&dbc); err != nil {
		return controllers.Controller{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return toController(dbc)
}

func (repo *repository) RetrieveAll(ctx context.Context, pm controllers.PageMetadata) (controllers.Page, error) {
	var conds []string
	params := map[string]interface{}{
		"offset": pm.Offset,
		"limit":  pm.Limit,
	}
	if pm.OwnerID != "" {
		conds = append(conds, "owner_id = :owner_id")
		params["owner_id"] = pm.OwnerID
	}
	if pm.Name != "" {
		conds = append(conds, "name ILIKE '%' || :name || '%'")
		params["name"] = pm.Name
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := ""
	if pm.Limit > 0 {
		limit = "LIMIT :limit"
	}

	q := fmt.Sprintf(`SELECT %s FROM controllers %s ORDER BY created_at, id %s OFFSET :offset`, columns, where, limit)
	rows, err := repo.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return controllers.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}
	defer rows.Close()

	items := []controllers.Controller{}
	for rows.Next() {
		var dbc dbController
		if err := rows.StructScan(&dbc); err != nil {
			return controllers.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		c, err := toController(dbc)
		if err != nil {
			return controllers.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		items = append(items, c)
	}

	total, err := postgres.Total(ctx, repo.db, fmt.Sprintf(`SELECT COUNT(*) FROM controllers %s`, where), params)
	if err != nil {
		return controllers.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return controllers.Page{
		Total:       total,
		Offset:      pm.Offset,
		Limit:       pm.Limit,
		Controllers: items,
	}, nil
}

func (repo *repository) UpdateKey(ctx context.Context, c controllers.Controller) (controllers.Controller, error) {
	q := fmt.Sprintf(`UPDATE controllers SET key = :key, updated_at = :updated_at
		WHERE id = :id RETURNING %s`, columns)

	dbc, err := toDBController(c)
	if err != nil {
		return controllers.Controller{}, errors.Wrap(repoerr.ErrUpdateEntity, err)
	}

	rows, err := repo.db.NamedQueryContext(ctx, q, dbc)
	return one(repoerr.ErrUpdateEntity, rows, err)
}

func one(wrapper error, rows *sqlx.Rows, err error) (controllers.Controller, error) {
	if err != nil {
		return controllers.Controller{}, postgres.HandleError(wrapper, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return controllers.Controller{}, postgres.HandleError(wrapper, err)
		}
		return controllers.Controller{}, repoerr.ErrNotFound
	}
	var dbc dbController
	if err := rows.StructScan(&dbc); err != nil {
		return controllers.Controller{}, errors.Wrap(wrapper, err)
	}

	return toController(dbc)
}

type dbController struct {
	ID        string         `db:"id"`
	Name      sql.NullString `db:"name"`
	OwnerID   string         `db:"owner_id"`
	Key       string         `db:"key"`
	Metadata  []byte         `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func toDBController(c controllers.Controller) (dbController, error) {
	metadata := []byte("{}")
	if len(c.Metadata) > 0 {
		b, err := json.Marshal(c.Metadata)
		if err != nil {
			return dbController{}, err
		}
		metadata = b
	}

	return dbController{
		ID:        c.ID,
		Name:      sql.NullString{String: c.Name, Valid: c.Name != ""},
		OwnerID:   c.OwnerID,
		Key:       c.Key,
		Metadata:  metadata,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

func toController(dbc dbController) (controllers.Controller, error) {
	var metadata controllers.Metadata
	if len(dbc.Metadata) > 0 {
		if err := json.Unmarshal(dbc.Metadata, &metadata); err != nil {
			return controllers.Controller{}, errors.Wrap(repoerr.ErrMalformedEntity, err)
		}
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return controllers.Controller{
		ID:        dbc.ID,
		Name:      dbc.Name.String,
		OwnerID:   dbc.OwnerID,
		Key:       dbc.Key,
		Metadata:  metadata,
		CreatedAt: dbc.CreatedAt.UTC(),
		UpdatedAt: dbc.UpdatedAt.UTC(),
	}, nil
}
