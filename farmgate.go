// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package farmgate is the controller gateway of the farm platform. It
// keeps one WebSocket per field controller, drives the lifecycle of the
// tasks and peripherals provisioned on each controller and stores the
// telemetry controllers report.
package farmgate

import "context"

// IDProvider specifies an API for generating unique identifiers.
type IDProvider interface {
	// ID generates the unique identifier.
	ID() (string, error)
}

// Response contains HTTP response specific methods.
type Response interface {
	// Code returns HTTP response code.
	Code() int

	// Headers returns map of HTTP headers with their values.
	Headers() map[string]string

	// Empty indicates if HTTP response has content.
	Empty() bool
}

// Transactor runs units of work. Repository updates made with the context
// passed to fn commit together when fn returns nil and roll back otherwise.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}
