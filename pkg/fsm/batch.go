// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package fsm

import (
	"fmt"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/protocol"
)

// Outcome is an event to fire on the entity with the given id.
type Outcome[E comparable] struct {
	ID    string
	Event E
}

// IDs returns the distinct ids of outcomes in first seen order.
func IDs[E comparable](outcomes []Outcome[E]) []string {
	var ids []string
	seen := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if !seen[o.ID] {
			seen[o.ID] = true
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Batch fires events on sets of locked entities of one kind.
type Batch[T any, E comparable] struct {
	// Kind names the entity in errors.
	Kind string
	ID   func(T) string
	Fire func(entity *T, event E, now time.Time) error
}

// Outcome maps the status a controller reported for one command to success
// or fail.
func (b Batch[T, E]) Outcome(r protocol.EntityStatus, success, fail E) (Outcome[E], error) {
	if r.UUID == "" {
		return Outcome[E]{}, errors.Wrap(svcerr.ErrMalformedEntity, errors.New("result without uuid"))
	}
	switch r.Status {
	case protocol.Success:
		return Outcome[E]{ID: r.UUID, Event: success}, nil
	case protocol.Fail:
		return Outcome[E]{ID: r.UUID, Event: fail}, nil
	case "":
		return Outcome[E]{}, errors.Wrap(svcerr.ErrMissingStatus, fmt.Errorf("%s %s", b.Kind, r.UUID))
	default:
		return Outcome[E]{}, errors.Wrap(svcerr.ErrInvalidStatus, fmt.Errorf("%s %s: %q", b.Kind, r.UUID, r.Status))
	}
}

// Apply fires every outcome on the locked entity it names and returns the
// changed entities in first seen order. An outcome naming an entity that is
// not locked fails the whole batch.
func (b Batch[T, E]) Apply(locked []T, outcomes []Outcome[E], now time.Time) ([]T, error) {
	byID := make(map[string]*T, len(locked))
	for i := range locked {
		byID[b.ID(locked[i])] = &locked[i]
	}

	ids := IDs(outcomes)
	for _, o := range outcomes {
		e, ok := byID[o.ID]
		if !ok {
			return nil, errors.Wrap(svcerr.ErrNotFound, fmt.Errorf("%s %s", b.Kind, o.ID))
		}
		if err := b.Fire(e, o.Event, now); err != nil {
			return nil, errors.Wrap(fmt.Errorf("%s %s", b.Kind, o.ID), err)
		}
	}

	changed := make([]T, 0, len(ids))
	for _, id := range ids {
		changed = append(changed, *byID[id])
	}
	return changed, nil
}

// Replay fires event on every locked entity whose id is not in kept and
// returns the entities it changed.
func (b Batch[T, E]) Replay(locked []T, kept []string, event E, now time.Time) ([]T, error) {
	skip := make(map[string]bool, len(kept))
	for _, id := range kept {
		skip[id] = true
	}

	var changed []T
	for _, e := range locked {
		if skip[b.ID(e)] {
			continue
		}
		if err := b.Fire(&e, event, now); err != nil {
			return nil, errors.Wrap(fmt.Errorf("%s %s", b.Kind, b.ID(e)), err)
		}
		changed = append(changed, e)
	}
	return changed, nil
}
