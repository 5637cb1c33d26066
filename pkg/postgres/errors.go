// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"

	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// HandleError maps PostgreSQL failures onto the repository error set and
// wraps everything else with wrapper.
func HandleError(wrapper, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return errors.Wrap(repoerr.ErrNotFound, err)
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return errors.Wrap(wrapper, err)
	}
	pgErr, ok := err.(*pgconn.PgError)
	if ok {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Wrap(repoerr.ErrConflict, err)
		case pgerrcode.InvalidTextRepresentation, pgerrcode.StringDataRightTruncationDataException:
			return errors.Wrap(repoerr.ErrMalformedEntity, err)
		case pgerrcode.ForeignKeyViolation:
			return errors.Wrap(repoerr.ErrCreateEntity, err)
		}
	}

	return errors.Wrap(wrapper, err)
}

// Rollback aborts tx and returns err.
func Rollback(tx interface{ Rollback() error }, err error) error {
	_ = tx.Rollback()
	return err
}
