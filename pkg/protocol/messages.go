// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the JSON envelope exchanged with controllers
// over their WebSocket. Inbound documents decode into one of a closed set
// of message variants; outbound commands are assembled with a Batch.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
)

// Type tags carried in the "type" field of every envelope.
const (
	TypeCommand   = "cmd"
	TypeTelemetry = "tel"
	TypeRegister  = "reg"
	TypeError     = "err"
	TypeResult    = "result"
	TypeSystem    = "sys"
)

// ErrInvalidTimestamp indicates a telemetry time that is not an RFC 3339
// string with a zone offset.
var ErrInvalidTimestamp = errors.New("invalid timestamp, expected RFC 3339 with a zone offset")

// Message is implemented by every decoded envelope variant: Telemetry,
// Register, Result, Error, System, Command and Unknown.
type Message interface {
	// Header returns the fields shared by all envelopes.
	Header() Envelope

	sealed()
}

// Envelope holds the fields shared by all envelopes.
type Envelope struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

func (e Envelope) Header() Envelope { return e }

func (Envelope) sealed() {}

// DataPointValue is one reading of a telemetry message.
type DataPointValue struct {
	Value         float64 `json:"value"`
	DataPointType string  `json:"data_point_type"`
}

// Telemetry carries readings of one peripheral.
type Telemetry struct {
	Envelope
	Peripheral string           `json:"peripheral"`
	DataPoints []DataPointValue `json:"data_points"`

	rawTime json.RawMessage
}

// Time resolves the reading time. An absent or null time yields now.
func (t Telemetry) Time(now time.Time) (time.Time, error) {
	if len(t.rawTime) == 0 || string(t.rawTime) == "null" {
		return now, nil
	}
	var s string
	if err := json.Unmarshal(t.rawTime, &s); err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidTimestamp, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidTimestamp, err)
	}
	return ts, nil
}

// Register lists the entities a controller reports as provisioned.
type Register struct {
	Envelope
	Peripherals []string `json:"peripherals"`
	Tasks       []string `json:"tasks"`
}

// Outcome is the status a controller reports for one command.
type Outcome string

const (
	Success Outcome = "success"
	Fail    Outcome = "fail"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == Success || o == Fail
}

// EntityStatus is the outcome of one command for one entity. An empty
// Status means the controller omitted it.
type EntityStatus struct {
	UUID   string  `json:"uuid"`
	Status Outcome `json:"status"`
}

// PeripheralResults groups peripheral command outcomes.
type PeripheralResults struct {
	Add    []EntityStatus `json:"add"`
	Remove []EntityStatus `json:"remove"`
}

// TaskResults groups task command outcomes.
type TaskResults struct {
	Start []EntityStatus `json:"start"`
	Stop  []EntityStatus `json:"stop"`
}

// Result reports command outcomes. Either group may be empty.
type Result struct {
	Envelope
	Peripheral PeripheralResults `json:"peripheral"`
	Task       TaskResults       `json:"task"`
}

// Error is a diagnostic sent by a controller.
type Error struct {
	Envelope
	Payload json.RawMessage
}

// System is reserved for controller housekeeping messages.
type System struct {
	Envelope
	Payload json.RawMessage
}

// Unknown is an envelope whose type tag is not recognised.
type Unknown struct {
	Envelope
}
