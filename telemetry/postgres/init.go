// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres contains the PostgreSQL data point repository.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // required for SQL access
	migrate "github.com/rubenv/sql-migrate"
)

// Migration of the data_points table.
func Migration() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "telemetry_01",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS data_points (
						peripheral_id      VARCHAR(36) NOT NULL,
						data_point_type_id VARCHAR(36) NOT NULL,
						value              DOUBLE PRECISION NOT NULL,
						time               TIMESTAMPTZ NOT NULL,
						PRIMARY KEY (peripheral_id, time)
					)`,
					`CREATE INDEX IF NOT EXISTS data_points_type_time_idx ON data_points (peripheral_id, data_point_type_id, time)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS data_points`,
				},
			},
		},
	}
}
