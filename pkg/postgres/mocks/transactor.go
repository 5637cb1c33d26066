// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync"

	"github.com/absmach/farmgate"
)

type journalKey struct{}

type journal struct {
	mu   sync.Mutex
	undo []func()
}

var _ farmgate.Transactor = (*Transactor)(nil)

// Transactor is the in-memory counterpart of the PostgreSQL transactor.
// Units of work run one at a time; in-memory repositories register how to
// undo their writes with OnRollback.
type Transactor struct {
	mu sync.Mutex
}

// NewTransactor returns an in-memory Transactor.
func NewTransactor() *Transactor {
	return &Transactor{}
}

func (t *Transactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		j.mu.Lock()
		defer j.mu.Unlock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}

	return nil
}

// OnRollback registers undo to run if the unit of work carried by ctx
// fails. Outside a unit of work it does nothing.
func OnRollback(ctx context.Context, undo func()) {
	j, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, undo)
	j.mu.Unlock()
}
