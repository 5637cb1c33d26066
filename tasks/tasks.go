// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tasks drives the lifecycle of the units of work executed by
// controllers.
package tasks

import (
	"context"
	"time"

	"github.com/absmach/farmgate/pkg/fsm"
	"github.com/absmach/farmgate/pkg/protocol"
)

// State is the lifecycle state of a task.
type State string

const (
	Starting State = "starting"
	Running  State = "running"
	Stopping State = "stopping"
	Stopped  State = "stopped"
	Failed   State = "failed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case Starting, Running, Stopping, Stopped, Failed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no event moves a task out of s.
func (s State) Terminal() bool {
	return s == Stopped || s == Failed
}

// Event moves a task between states.
type Event string

const (
	StartSucceeded Event = "start_succeeded"
	StartFailed    Event = "start_failed"
	StopRequested  Event = "stop_requested"
	StopSucceeded  Event = "stop_succeeded"
	StopFailed     Event = "stop_failed"
	Restart        Event = "restart"
	Expire         Event = "expire"
)

// RestartStates are the states of tasks a controller is expected to run.
var RestartStates = []State{Starting, Running}

var machine = fsm.New(
	fsm.Transition[State, Event]{From: []State{Starting}, Event: StartSucceeded, To: Running},
	fsm.Transition[State, Event]{From: []State{Starting}, Event: StartFailed, To: Failed},
	fsm.Transition[State, Event]{From: []State{Starting, Running, Stopping}, Event: StopRequested, To: Stopping},
	fsm.Transition[State, Event]{From: []State{Stopping, Running}, Event: StopSucceeded, To: Stopped},
	fsm.Transition[State, Event]{From: []State{Stopping, Running}, Event: StopFailed, To: Stopped},
	fsm.Transition[State, Event]{From: []State{Starting, Running}, Event: Restart, To: Starting},
	fsm.Transition[State, Event]{From: []State{Starting}, Event: Expire, To: Stopped},
)

// Can reports whether event is allowed in state s.
func Can(s State, event Event) bool {
	return machine.Can(s, event)
}

// Task is a unit of work executed by one controller.
type Task struct {
	ID           string                 `json:"id"`
	ControllerID string                 `json:"controller_id"`
	Type         Type                   `json:"type"`
	State        State                  `json:"state"`
	Params       map[string]interface{} `json:"params,omitempty"`
	RunUntil     *time.Time             `json:"run_until,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Fire applies event to the task. The task is unchanged on error.
func (t *Task) Fire(event Event, now time.Time) error {
	next, err := machine.Fire(t.State, event)
	if err != nil {
		return err
	}
	t.State = next
	t.UpdatedAt = now
	return nil
}

// Expired reports whether the task deadline is not after now.
func (t Task) Expired(now time.Time) bool {
	return t.RunUntil != nil && !t.RunUntil.After(now)
}

// StartCommand returns the command starting the task. Only starting tasks
// yield one; a starting task past its deadline expires instead, which
// changes its state.
func (t *Task) StartCommand(now time.Time) (protocol.EntityCommand, bool) {
	if t.State != Starting {
		return protocol.EntityCommand{}, false
	}
	if t.Expired(now) {
		if err := t.Fire(Expire, now); err != nil {
			return protocol.EntityCommand{}, false
		}
		return protocol.EntityCommand{}, false
	}

	params := make(map[string]interface{}, len(t.Params)+1)
	for k, v := range t.Params {
		params[k] = v
	}
	if t.RunUntil != nil {
		params["run_until"] = t.RunUntil.UTC().Format(time.RFC3339Nano)
	}
	return protocol.EntityCommand{UUID: t.ID, Type: string(t.Type), Params: params}, true
}

// StopCommand returns the command stopping the task. Only stopping tasks
// yield one.
func (t Task) StopCommand() (protocol.EntityRef, bool) {
	if t.State != Stopping {
		return protocol.EntityRef{}, false
	}
	return protocol.EntityRef{UUID: t.ID}, true
}

// PageMetadata filters and pages task listings.
type PageMetadata struct {
	ControllerID string `json:"controller_id" db:"controller_id"`
	State        State  `json:"state,omitempty" db:"state"`
	Offset       uint64 `json:"offset" db:"offset"`
	Limit        uint64 `json:"limit" db:"limit"`
}

// Page contains a page of tasks.
type Page struct {
	Total  uint64 `json:"total"`
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Tasks  []Task `json:"tasks"`
}

// Query selects the tasks locked by Repository.Update. Empty fields do not
// filter.
type Query struct {
	ControllerID string
	IDs          []string
	States       []State
}

// UpdateFunc receives the locked tasks ordered by creation time, oldest
// first, and returns the tasks whose state changed.
type UpdateFunc func(locked []Task) ([]Task, error)

// Repository specifies a task persistence API.
type Repository interface {
	// Save persists a new task.
	Save(ctx context.Context, t Task) (Task, error)

	// RetrieveByID retrieves the task with the given id.
	RetrieveByID(ctx context.Context, id string) (Task, error)

	// RetrieveAll retrieves a page of tasks.
	RetrieveAll(ctx context.Context, pm PageMetadata) (Page, error)

	// Update locks the tasks matching q for the duration of fn and
	// persists the states of the tasks fn returns. Nothing is persisted
	// if fn fails.
	Update(ctx context.Context, q Query, fn UpdateFunc) error
}

// Service specifies an API for the task lifecycle.
type Service interface {
	// Create validates and persists a new starting task.
	Create(ctx context.Context, t Task) (Task, error)

	// View retrieves a task.
	View(ctx context.Context, id string) (Task, error)

	// List retrieves a page of tasks.
	List(ctx context.Context, pm PageMetadata) (Page, error)

	// RequestStop moves the task to stopping and returns its stop command.
	RequestStop(ctx context.Context, id string) (Task, protocol.EntityRef, error)

	// ApplyResults applies the outcomes a controller reported. Either all
	// of them are applied or none is.
	ApplyResults(ctx context.Context, controllerID string, res protocol.TaskResults) error

	// Reconcile restarts the tasks the controller should run but did not
	// report and returns their start commands, oldest first.
	Reconcile(ctx context.Context, controllerID string, reported []string) ([]protocol.EntityCommand, error)
}
