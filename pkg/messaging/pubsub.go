// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package messaging defines the broker publishing API the gateway uses to
// fan stored telemetry out to other services.
package messaging

import (
	"context"
	"encoding/json"
)

// Message is the broker envelope of one event produced by a controller.
type Message struct {
	// Controller is the id of the controller that produced the event.
	Controller string `json:"controller"`

	// Subtopic narrows the topic, e.g. the peripheral id.
	Subtopic string `json:"subtopic,omitempty"`

	// Publisher is the name of the gateway component publishing the event.
	Publisher string `json:"publisher"`

	// Created is the publish time in nanoseconds since the Unix epoch.
	Created int64 `json:"created"`

	Payload json.RawMessage `json:"payload"`
}

// Publisher specifies message publishing API.
type Publisher interface {
	// Publish publishes msg to the given topic.
	Publish(ctx context.Context, topic string, msg *Message) error

	// Close gracefully closes message publisher's connection.
	Close() error
}

// Option represents optional configuration for the message publisher.
type Option func(vals interface{}) error
