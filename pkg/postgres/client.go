// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres connects the gateway repositories to PostgreSQL.
package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	errMigration               = errors.New("failed to apply migrations")
	errInvalidConnectionString = errors.New("invalid connection string")
	errConnect                 = errors.New("failed to connect to postgresql server")
)

type PoolConfig struct {
	// MaxConnLifetime is the duration since creation after which a connection will be automatically closed.
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the duration after which an idle connection will be automatically closed by the health check.
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"15m"`

	MaxConns uint16 `env:"MAX_CONNS" envDefault:"10"`

	MinConns uint16 `env:"MIN_CONNS" envDefault:"1"`

	// HealthCheckPeriod is the duration between checks of the health of idle connections.
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Config defines the options that are used when connecting to a PostgreSQL instance.
type Config struct {
	Host        string     `env:"HOST"          envDefault:"localhost"`
	Port        string     `env:"PORT"          envDefault:"5432"`
	User        string     `env:"USER"          envDefault:"farmgate"`
	Pass        string     `env:"PASS"          envDefault:"farmgate"`
	Name        string     `env:"NAME"          envDefault:"farmgate"`
	SSLMode     string     `env:"SSL_MODE"      envDefault:"disable"`
	SSLCert     string     `env:"SSL_CERT"      envDefault:""`
	SSLKey      string     `env:"SSL_KEY"       envDefault:""`
	SSLRootCert string     `env:"SSL_ROOT_CERT" envDefault:""`
	Pool        PoolConfig `envPrefix:"POOL_"`
}

// Setup creates a connection to the PostgreSQL instance and applies any
// unapplied database migrations. A non-nil error is returned to indicate
// failure.
func Setup(cfg Config, migrations migrate.MemoryMigrationSource) (*sqlx.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	if _, err = migrate.Exec(db.DB, "postgres", migrations, migrate.Up); err != nil {
		return nil, errors.Wrap(errMigration, err)
	}

	return db, nil
}

// Connect creates a connection to the PostgreSQL instance.
func Connect(cfg Config) (*sqlx.DB, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(cfg.dbConnURL())
	if err != nil {
		return nil, errors.Wrap(errInvalidConnectionString, err)
	}

	pgxPoolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	pgxPoolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime
	pgxPoolConfig.MaxConns = int32(cfg.Pool.MaxConns)
	pgxPoolConfig.MinConns = int32(cfg.Pool.MinConns)
	pgxPoolConfig.HealthCheckPeriod = cfg.Pool.HealthCheckPeriod

	dbpool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, errors.Wrap(errConnect, err)
	}

	return sqlx.NewDb(stdlib.OpenDBFromPool(dbpool), "pgx"), nil
}

// Migrations merges the migration sets of several repositories into one
// source, in the given order.
func Migrations(sources ...migrate.MemoryMigrationSource) migrate.MemoryMigrationSource {
	var merged migrate.MemoryMigrationSource
	for _, src := range sources {
		merged.Migrations = append(merged.Migrations, src.Migrations...)
	}
	return merged
}

func (cfg Config) dbConnURL() string {
	urlParts := []string{}

	if cfg.Host != "" {
		urlParts = append(urlParts, "host="+cfg.Host)
	}
	if cfg.Port != "" {
		urlParts = append(urlParts, "port="+cfg.Port)
	}
	if cfg.User != "" {
		urlParts = append(urlParts, "user="+cfg.User)
	}
	if cfg.Pass != "" {
		urlParts = append(urlParts, "password="+cfg.Pass)
	}
	if cfg.Name != "" {
		urlParts = append(urlParts, "dbname="+cfg.Name)
	}
	if cfg.SSLMode != "" {
		urlParts = append(urlParts, "sslmode="+cfg.SSLMode)
	}
	if cfg.SSLCert != "" {
		urlParts = append(urlParts, "sslcert="+cfg.SSLCert)
	}
	if cfg.SSLKey != "" {
		urlParts = append(urlParts, "sslkey="+cfg.SSLKey)
	}
	if cfg.SSLRootCert != "" {
		urlParts = append(urlParts, "sslrootcert="+cfg.SSLRootCert)
	}
	return strings.Join(urlParts, " ")
}
