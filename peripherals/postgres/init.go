// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres contains the PostgreSQL peripheral repository.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // required for SQL access
	migrate "github.com/rubenv/sql-migrate"
)

// Migration of the peripherals table.
func Migration() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "peripherals_01",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS peripherals (
						id               VARCHAR(36) PRIMARY KEY,
						controller_id    VARCHAR(36) NOT NULL,
						type             VARCHAR(32) NOT NULL,
						state            VARCHAR(16) NOT NULL CHECK (state IN ('adding', 'added', 'removing', 'removed', 'failed')),
						data_point_types JSONB NOT NULL DEFAULT '[]',
						extras           JSONB NOT NULL DEFAULT '{}',
						created_at       TIMESTAMPTZ NOT NULL,
						updated_at       TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS peripherals_controller_state_idx ON peripherals (controller_id, state)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS peripherals`,
				},
			},
		},
	}
}
