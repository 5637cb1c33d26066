// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package controllers manages the field controllers of the farm platform
// and the user operations on their tasks and peripherals.
package controllers

import (
	"context"
	"time"

	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
)

// Metadata represents arbitrary JSON.
type Metadata map[string]interface{}

// Controller is a microcontroller deployed on a farm. It authenticates its
// WebSocket with Key.
type Controller struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	OwnerID   string    `json:"owner_id"`
	Key       string    `json:"key"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageMetadata filters and pages controller listings.
type PageMetadata struct {
	OwnerID string `json:"owner_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Offset  uint64 `json:"offset"`
	Limit   uint64 `json:"limit"`
}

// Page contains a page of controllers.
type Page struct {
	Total       uint64       `json:"total"`
	Offset      uint64       `json:"offset"`
	Limit       uint64       `json:"limit"`
	Controllers []Controller `json:"controllers"`
}

// Repository specifies a controller persistence API.
type Repository interface {
	// Save persists a new controller.
	Save(ctx context.Context, c Controller) (Controller, error)

	// RetrieveByID retrieves the controller with the given id.
	RetrieveByID(ctx context.Context, id string) (Controller, error)

	// RetrieveByKey retrieves the controller authenticated by key.
	RetrieveByKey(ctx context.Context, key string) (Controller, error)

	// RetrieveAll retrieves a page of controllers.
	RetrieveAll(ctx context.Context, pm PageMetadata) (Page, error)

	// UpdateKey replaces the key of the controller.
	UpdateKey(ctx context.Context, c Controller) (Controller, error)
}

// Cache maps controller keys to controller ids.
type Cache interface {
	// Save stores the mapping of key to id.
	Save(ctx context.Context, key, id string) error

	// ID returns the id of the controller authenticated by key.
	ID(ctx context.Context, key string) (string, error)

	// Remove removes every mapping of the controller.
	Remove(ctx context.Context, id string) error
}

// Dispatcher delivers commands to connected controllers.
type Dispatcher interface {
	// Dispatch sends cmd to the controller. Empty commands are not sent.
	Dispatch(ctx context.Context, controllerID string, cmd protocol.Command) error
}

// Service specifies the user facing API of the gateway. Every operation
// requires the session user to own the addressed controller.
type Service interface {
	// CreateController registers a controller owned by the session user
	// and issues its key.
	CreateController(ctx context.Context, session authn.Session, c Controller) (Controller, error)

	// ViewController retrieves a controller.
	ViewController(ctx context.Context, session authn.Session, id string) (Controller, error)

	// ListControllers retrieves the controllers of the session user.
	ListControllers(ctx context.Context, session authn.Session, pm PageMetadata) (Page, error)

	// RotateKey issues a new key. The previous key stops authenticating.
	RotateKey(ctx context.Context, session authn.Session, id string) (Controller, error)

	// Identify returns the id of the controller authenticated by key.
	Identify(ctx context.Context, key string) (string, error)

	// StartTask creates a task and sends its start command. The task is
	// returned with ErrNotConnected when the controller is offline.
	StartTask(ctx context.Context, session authn.Session, t tasks.Task) (tasks.Task, error)

	// StopTask requests the task to stop and sends its stop command.
	StopTask(ctx context.Context, session authn.Session, id string) (tasks.Task, error)

	// AddPeripheral creates a peripheral and sends its add command.
	AddPeripheral(ctx context.Context, session authn.Session, p peripherals.Peripheral) (peripherals.Peripheral, error)

	// RemovePeripheral requests the peripheral removal and sends its remove command.
	RemovePeripheral(ctx context.Context, session authn.Session, id string) (peripherals.Peripheral, error)

	// ListTasks retrieves a page of tasks of a controller.
	ListTasks(ctx context.Context, session authn.Session, pm tasks.PageMetadata) (tasks.Page, error)

	// ListPeripherals retrieves a page of peripherals of a controller.
	ListPeripherals(ctx context.Context, session authn.Session, pm peripherals.PageMetadata) (peripherals.Page, error)

	// ListDataPoints retrieves a page of readings of a peripheral.
	ListDataPoints(ctx context.Context, session authn.Session, pm telemetry.PageMetadata) (telemetry.Page, error)
}
