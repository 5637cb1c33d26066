// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package telemetry stores the readings controllers report and fans them
// out to the message broker.
package telemetry

import (
	"context"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/protocol"
)

var (
	// ErrUnboundDataPointType indicates a reading of a data point type the
	// peripheral is not bound to.
	ErrUnboundDataPointType = errors.New("data point type not bound to peripheral")

	// ErrPublish indicates that readings were stored but not published.
	ErrPublish = errors.New("failed to publish data points")
)

// DataPoint is one timestamped reading of a peripheral.
type DataPoint struct {
	PeripheralID    string    `json:"peripheral_id" db:"peripheral_id"`
	DataPointTypeID string    `json:"data_point_type_id" db:"data_point_type_id"`
	Value           float64   `json:"value" db:"value"`
	Time            time.Time `json:"time" db:"time"`
}

// PageMetadata filters and pages data point listings. Zero times do not filter.
type PageMetadata struct {
	PeripheralID    string    `json:"peripheral_id"`
	DataPointTypeID string    `json:"data_point_type_id,omitempty"`
	From            time.Time `json:"from,omitempty"`
	To              time.Time `json:"to,omitempty"`
	Offset          uint64    `json:"offset"`
	Limit           uint64    `json:"limit"`
}

// Page contains a page of data points ordered by time.
type Page struct {
	Total      uint64      `json:"total"`
	Offset     uint64      `json:"offset"`
	Limit      uint64      `json:"limit"`
	DataPoints []DataPoint `json:"data_points"`
}

// Repository specifies a data point persistence API.
type Repository interface {
	// Save persists readings of one peripheral. A reading whose time is
	// taken is moved to the next free instant of the peripheral timeline.
	// The stored readings are returned in input order.
	Save(ctx context.Context, peripheralID string, points []DataPoint) ([]DataPoint, error)

	// RetrieveAll retrieves a page of data points.
	RetrieveAll(ctx context.Context, pm PageMetadata) (Page, error)
}

// Service specifies an API for the telemetry sink.
type Service interface {
	// Save validates and stores a telemetry message of the controller.
	Save(ctx context.Context, controllerID string, msg protocol.Telemetry) ([]DataPoint, error)

	// List retrieves a page of data points of a peripheral.
	List(ctx context.Context, pm PageMetadata) (Page, error)
}
