// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package peripherals drives the lifecycle of the sensors and actuators
// provisioned on controllers.
package peripherals

import (
	"context"
	"time"

	"github.com/absmach/farmgate/pkg/fsm"
	"github.com/absmach/farmgate/pkg/protocol"
)

// State is the lifecycle state of a peripheral.
type State string

const (
	Adding   State = "adding"
	Added    State = "added"
	Removing State = "removing"
	Removed  State = "removed"
	Failed   State = "failed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case Adding, Added, Removing, Removed, Failed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no event moves a peripheral out of s.
func (s State) Terminal() bool {
	return s == Removed || s == Failed
}

// Event moves a peripheral between states.
type Event string

const (
	AddSucceeded    Event = "add_succeeded"
	AddFailed       Event = "add_failed"
	RemoveRequested Event = "remove_requested"
	RemoveSucceeded Event = "remove_succeeded"
	RemoveFailed    Event = "remove_failed"
	Readd           Event = "readd"
)

// ReaddStates are the states of peripherals a controller is expected to have.
var ReaddStates = []State{Adding, Added}

var machine = fsm.New(
	fsm.Transition[State, Event]{From: []State{Adding}, Event: AddSucceeded, To: Added},
	fsm.Transition[State, Event]{From: []State{Adding}, Event: AddFailed, To: Failed},
	fsm.Transition[State, Event]{From: []State{Adding, Added, Removing}, Event: RemoveRequested, To: Removing},
	fsm.Transition[State, Event]{From: []State{Removing, Added}, Event: RemoveSucceeded, To: Removed},
	fsm.Transition[State, Event]{From: []State{Removing, Added}, Event: RemoveFailed, To: Removed},
	fsm.Transition[State, Event]{From: []State{Adding, Added}, Event: Readd, To: Adding},
)

// Can reports whether event is allowed in state s.
func Can(s State, event Event) bool {
	return machine.Can(s, event)
}

// Binding links a configuration key of a peripheral to the data point type
// it produces or consumes.
type Binding struct {
	Key             string `json:"key"`
	DataPointTypeID string `json:"data_point_type_id"`
}

// Peripheral is a sensor or actuator attached to one controller.
type Peripheral struct {
	ID             string                 `json:"id"`
	ControllerID   string                 `json:"controller_id"`
	Type           Type                   `json:"type"`
	State          State                  `json:"state"`
	DataPointTypes []Binding              `json:"data_point_types,omitempty"`
	Extras         map[string]interface{} `json:"extras,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Fire applies event to the peripheral. The peripheral is unchanged on error.
func (p *Peripheral) Fire(event Event, now time.Time) error {
	next, err := machine.Fire(p.State, event)
	if err != nil {
		return err
	}
	p.State = next
	p.UpdatedAt = now
	return nil
}

// Bound reports whether the peripheral reports readings of the data point type.
func (p Peripheral) Bound(dataPointTypeID string) bool {
	for _, b := range p.DataPointTypes {
		if b.DataPointTypeID == dataPointTypeID {
			return true
		}
	}
	return false
}

// AddCommand returns the command provisioning the peripheral. Only adding
// peripherals yield one.
func (p Peripheral) AddCommand() (protocol.EntityCommand, bool) {
	if p.State != Adding {
		return protocol.EntityCommand{}, false
	}
	return protocol.EntityCommand{UUID: p.ID, Type: string(p.Type), Params: p.Config()}, true
}

// RemoveCommand returns the command removing the peripheral. Only removing
// peripherals yield one.
func (p Peripheral) RemoveCommand() (protocol.EntityRef, bool) {
	if p.State != Removing {
		return protocol.EntityRef{}, false
	}
	return protocol.EntityRef{UUID: p.ID}, true
}

// Config returns the configuration sent to the controller: the extras
// and one entry per data point type binding. Actuators carry their single
// binding as data_point_type.
func (p Peripheral) Config() map[string]interface{} {
	cfg := make(map[string]interface{}, len(p.Extras)+len(p.DataPointTypes))
	for k, v := range p.Extras {
		cfg[k] = v
	}
	if p.Type.Actuator() {
		if len(p.DataPointTypes) == 1 {
			cfg[dataPointTypeKey] = p.DataPointTypes[0].DataPointTypeID
		}
		return cfg
	}
	for _, b := range p.DataPointTypes {
		cfg[b.Key] = b.DataPointTypeID
	}
	return cfg
}

// PageMetadata filters and pages peripheral listings.
type PageMetadata struct {
	ControllerID string `json:"controller_id"`
	State        State  `json:"state,omitempty"`
	Offset       uint64 `json:"offset"`
	Limit        uint64 `json:"limit"`
}

// Page contains a page of peripherals.
type Page struct {
	Total       uint64       `json:"total"`
	Offset      uint64       `json:"offset"`
	Limit       uint64       `json:"limit"`
	Peripherals []Peripheral `json:"peripherals"`
}

// Query selects the peripherals locked by Repository.Update. Empty fields
// do not filter.
type Query struct {
	ControllerID string
	IDs          []string
	States       []State
}

// UpdateFunc receives the locked peripherals ordered by creation time,
// oldest first, and returns the peripherals whose state changed.
type UpdateFunc func(locked []Peripheral) ([]Peripheral, error)

// Repository specifies a peripheral persistence API.
type Repository interface {
	// Save persists a new peripheral.
	Save(ctx context.Context, p Peripheral) (Peripheral, error)

	// RetrieveByID retrieves the peripheral with the given id.
	RetrieveByID(ctx context.Context, id string) (Peripheral, error)

	// RetrieveAll retrieves a page of peripherals.
	RetrieveAll(ctx context.Context, pm PageMetadata) (Page, error)

	// Update locks the peripherals matching q for the duration of fn and
	// persists the states of the peripherals fn returns. Nothing is
	// persisted if fn fails.
	Update(ctx context.Context, q Query, fn UpdateFunc) error
}

// Service specifies an API for the peripheral lifecycle.
type Service interface {
	// Create validates and persists a new adding peripheral.
	Create(ctx context.Context, p Peripheral) (Peripheral, error)

	// View retrieves a peripheral.
	View(ctx context.Context, id string) (Peripheral, error)

	// List retrieves a page of peripherals.
	List(ctx context.Context, pm PageMetadata) (Page, error)

	// RequestRemove moves the peripheral to removing and returns its
	// remove command.
	RequestRemove(ctx context.Context, id string) (Peripheral, protocol.EntityRef, error)

	// ApplyResults applies the outcomes a controller reported. Either all
	// of them are applied or none is.
	ApplyResults(ctx context.Context, controllerID string, res protocol.PeripheralResults) error

	// Reconcile re-adds the peripherals the controller should have but did
	// not report and returns their add commands, oldest first.
	Reconcile(ctx context.Context, controllerID string, reported []string) ([]protocol.EntityCommand, error)
}
