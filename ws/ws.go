// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ws contains the controller side of the gateway: the registry of
// live controller connections and the routing of the messages controllers
// send over them.
package ws

import (
	"context"
)

// WebSocket close codes sent to controllers.
const (
	// CloseHandlingError closes a connection whose message could not be handled.
	CloseHandlingError = 4000
	// CloseSuperseded closes a connection replaced by a newer one of the same controller.
	CloseSuperseded = 4001

	supersededReason = "superseded by a newer connection"
)

// Channel is one open connection to a controller. Implementations must be
// comparable, as the registry compares channels to detect stale bindings.
type Channel interface {
	// Send writes one text frame.
	Send(payload []byte) error

	// Close sends a close frame with code and reason and closes the connection.
	Close(code int, reason string) error
}

// Service specifies the API used by the controller connection handler.
type Service interface {
	// Connect makes ch the live connection of the controller.
	Connect(ctx context.Context, controllerID string, ch Channel)

	// Disconnect removes ch unless a newer connection replaced it. It
	// reports whether ch was the live connection.
	Disconnect(ctx context.Context, controllerID string, ch Channel) bool

	// Handle decodes and routes one message sent by the controller. Any
	// error is fatal to the connection.
	Handle(ctx context.Context, controllerID string, payload []byte) error
}
