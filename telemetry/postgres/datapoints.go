// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/absmach/farmgate/pkg/postgres"
	"github.com/absmach/farmgate/telemetry"
)

var _ telemetry.Repository = (*repository)(nil)

type repository struct {
	db postgres.Database
}

// NewRepository instantiates a PostgreSQL implementation of data point repository.
func NewRepository(db postgres.Database) telemetry.Repository {
	return &repository{db: db}
}

// Save serializes writers of one peripheral with a transaction level
// advisory lock so the loaded timeline stays current until commit.
func (repo *repository) Save(ctx context.Context, peripheralID string, points []telemetry.DataPoint) ([]telemetry.DataPoint, error) {
	if len(points) == 0 {
		return []telemetry.DataPoint{}, nil
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, postgres.HandleError(repoerr.ErrCreateEntity, err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, peripheralID); err != nil {
		return nil, postgres.Rollback(tx, postgres.HandleError(repoerr.ErrCreateEntity, err))
	}

	earliest := points[0].Time
	for _, dp := range points[1:] {
		if dp.Time.Before(earliest) {
			earliest = dp.Time
		}
	}
	var taken []time.Time
	if err := tx.SelectContext(ctx, &taken, `SELECT time FROM data_points WHERE peripheral_id = $1 AND time >= $2`,
		peripheralID, earliest.Truncate(telemetry.Resolution)); err != nil {
		return nil, postgres.Rollback(tx, postgres.HandleError(repoerr.ErrViewEntity, err))
	}
	tl := telemetry.NewTimeline(taken...)

	q := `INSERT INTO data_points (peripheral_id, data_point_type_id, value, time)
		VALUES (:peripheral_id, :data_point_type_id, :value, :time)`
	saved := make([]telemetry.DataPoint, len(points))
	for i, dp := range points {
		dp.PeripheralID = peripheralID
		dp.Time = tl.Place(dp.Time)
		if _, err := tx.NamedExecContext(ctx, q, dp); err != nil {
			return nil, postgres.Rollback(tx, postgres.HandleError(repoerr.ErrCreateEntity, err))
		}
		saved[i] = dp
	}

	if err := tx.Commit(); err != nil {
		return nil, postgres.HandleError(repoerr.ErrCreateEntity, err)
	}

	return saved, nil
}

func (repo *repository) RetrieveAll(ctx context.Context, pm telemetry.PageMetadata) (telemetry.Page, error) {
	conds := []string{"peripheral_id = :peripheral_id"}
	params := map[string]interface{}{
		"peripheral_id": pm.PeripheralID,
		"offset":        pm.Offset,
		"limit":         pm.Limit,
	}
	if pm.DataPointTypeID != "" {
		conds = append(conds, "data_point_type_id = :data_point_type_id")
		params["data_point_type_id"] = pm.DataPointTypeID
	}
	if !pm.From.IsZero() {
		conds = append(conds, "time >= :from")
		params["from"] = pm.From
	}
	if !pm.To.IsZero() {
		conds = append(conds, "time < :to")
		params["to"] = pm.To
	}
	where := "WHERE " + strings.Join(conds, " AND ")
	limit := ""
	if pm.Limit > 0 {
		limit = "LIMIT :limit"
	}

	q := fmt.Sprintf(`SELECT peripheral_id, data_point_type_id, value, time FROM data_points %s
		ORDER BY time %s OFFSET :offset`, where, limit)
	rows, err := repo.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return telemetry.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}
	defer rows.Close()

	items := []telemetry.DataPoint{}
	for rows.Next() {
		var dp telemetry.DataPoint
		if err := rows.StructScan(&dp); err != nil {
			return telemetry.Page{}, errors.Wrap(repoerr.ErrViewEntity, err)
		}
		dp.Time = dp.Time.UTC()
		items = append(items, dp)
	}

	total, err := postgres.Total(ctx, repo.db, fmt.Sprintf(`SELECT COUNT(*) FROM data_points %s`, where), params)
	if err != nil {
		return telemetry.Page{}, postgres.HandleError(repoerr.ErrViewEntity, err)
	}

	return telemetry.Page{
		Total:      total,
		Offset:     pm.Offset,
		Limit:      pm.Limit,
		DataPoints: items,
	}, nil
}
