// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"

	"github.com/absmach/farmgate"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/jmoiron/sqlx"
)

type txKey struct{}

var _ farmgate.Transactor = (*transactor)(nil)

type transactor struct {
	db Database
}

// NewTransactor returns a Transactor whose unit of work is one PostgreSQL
// transaction. Repositories join it through BeginTx.
func NewTransactor(db Database) farmgate.Transactor {
	return &transactor{db: db}
}

func (t *transactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return HandleError(repoerr.ErrFailedOpDB, err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return Rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return HandleError(repoerr.ErrFailedOpDB, err)
	}

	return nil
}

// Tx is the transaction of one repository call. A transaction joined from
// the unit of work of the context is committed or rolled back by its owner,
// so Commit and Rollback do nothing on it.
type Tx struct {
	*sqlx.Tx
	owned bool
}

// BeginTx joins the transaction carried by ctx or begins a new one.
func BeginTx(ctx context.Context, db Database) (*Tx, error) {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return &Tx{Tx: tx}, nil
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{Tx: tx, owned: true}, nil
}

func (tx *Tx) Commit() error {
	if !tx.owned {
		return nil
	}
	return tx.Tx.Commit()
}

func (tx *Tx) Rollback() error {
	if !tx.owned {
		return nil
	}
	return tx.Tx.Rollback()
}
