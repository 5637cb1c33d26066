// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package fsm implements a table driven finite state machine shared by the
// task and peripheral lifecycles.
package fsm

import (
	"fmt"

	"github.com/absmach/farmgate/pkg/errors"
)

// ErrInvalidTransition indicates an event that is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// Transition is one row of a transition table.
type Transition[S, E comparable] struct {
	From  []S
	Event E
	To    S
}

type key[S, E comparable] struct {
	state S
	event E
}

// Machine is an immutable transition table. The zero value rejects every event.
type Machine[S, E comparable] struct {
	table map[key[S, E]]S
}

// New builds a Machine from the given transitions. It panics if two rows
// map the same state and event to different states.
func New[S, E comparable](transitions ...Transition[S, E]) Machine[S, E] {
	table := make(map[key[S, E]]S)
	for _, t := range transitions {
		for _, from := range t.From {
			k := key[S, E]{state: from, event: t.Event}
			if to, ok := table[k]; ok && to != t.To {
				panic(fmt.Sprintf("fsm: conflicting transitions for state %v and event %v", from, t.Event))
			}
			table[k] = t.To
		}
	}
	return Machine[S, E]{table: table}
}

// Fire returns the state reached from current by event.
func (m Machine[S, E]) Fire(current S, event E) (S, error) {
	next, ok := m.table[key[S, E]{state: current, event: event}]
	if !ok {
		return current, errors.Wrap(ErrInvalidTransition, fmt.Errorf("event %v not allowed in state %v", event, current))
	}
	return next, nil
}

// Can reports whether event is allowed in state current.
func (m Machine[S, E]) Can(current S, event E) bool {
	_, ok := m.table[key[S, E]{state: current, event: event}]
	return ok
}
