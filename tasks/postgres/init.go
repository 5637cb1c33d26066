// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres contains the PostgreSQL task repository.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // required for SQL access
	migrate "github.com/rubenv/sql-migrate"
)

// Migration of the tasks table.
func Migration() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "tasks_01",
				// VARCHAR(36) for columns with IDs as UUIDS have a maximum of 36 characters
				Up: []string{
					`CREATE TABLE IF NOT EXISTS tasks (
						id            VARCHAR(36) PRIMARY KEY,
						controller_id VARCHAR(36) NOT NULL,
						type          VARCHAR(64) NOT NULL,
						state         VARCHAR(16) NOT NULL CHECK (state IN ('starting', 'running', 'stopping', 'stopped', 'failed')),
						params        JSONB NOT NULL DEFAULT '{}',
						run_until     TIMESTAMPTZ NULL,
						created_at    TIMESTAMPTZ NOT NULL,
						updated_at    TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS tasks_controller_state_idx ON tasks (controller_id, state)`,
					`CREATE INDEX IF NOT EXISTS tasks_controller_created_idx ON tasks (controller_id, created_at)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS tasks`,
				},
			},
		},
	}
}
