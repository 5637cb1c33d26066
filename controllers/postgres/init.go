// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres contains the PostgreSQL controller repository.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // required for SQL access
	migrate "github.com/rubenv/sql-migrate"
)

// Migration of the controllers table.
func Migration() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "controllers_01",
				// VARCHAR(36) for columns with IDs as UUIDS have a maximum of 36 characters
				Up: []string{
					`CREATE TABLE IF NOT EXISTS controllers (
						id         VARCHAR(36) PRIMARY KEY,
						name       VARCHAR(1024),
						owner_id   VARCHAR(36) NOT NULL,
						key        VARCHAR(36) NOT NULL UNIQUE,
						metadata   JSONB NOT NULL DEFAULT '{}',
						created_at TIMESTAMPTZ NOT NULL,
						updated_at TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS controllers_owner_idx ON controllers (owner_id, created_at)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS controllers`,
				},
			},
		},
	}
}
