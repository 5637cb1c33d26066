// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/absmach/farmgate/pkg/errors"
)

var (
	// ErrMalformedPayload indicates a document that is not a JSON object
	// with a string "type" field.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidData indicates a well formed envelope with unusable content.
	ErrInvalidData = errors.New("invalid data")
)

// Decode parses one inbound document.
func Decode(data []byte) (Message, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err)
	}
	if doc == nil {
		return nil, errors.Wrap(ErrMalformedPayload, errors.New("document is not an object"))
	}

	var env Envelope
	raw, ok := doc["type"]
	if !ok || isNull(raw) {
		return nil, errors.Wrap(ErrMalformedPayload, errors.New("missing type"))
	}
	if err := json.Unmarshal(raw, &env.Type); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, errors.New("type is not a string"))
	}
	if err := field(doc, "request_id", &env.RequestID); err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeTelemetry:
		msg := Telemetry{Envelope: env, rawTime: doc["time"]}
		if err := field(doc, "peripheral", &msg.Peripheral); err != nil {
			return nil, err
		}
		if err := field(doc, "data_points", &msg.DataPoints); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeRegister:
		msg := Register{Envelope: env}
		if err := field(doc, "peripherals", &msg.Peripherals); err != nil {
			return nil, err
		}
		if err := field(doc, "tasks", &msg.Tasks); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeResult:
		msg := Result{Envelope: env}
		if err := field(doc, "peripheral", &msg.Peripheral); err != nil {
			return nil, err
		}
		if err := field(doc, "task", &msg.Task); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeCommand:
		msg := Command{Envelope: env}
		if err := field(doc, "peripheral", &msg.Peripheral); err != nil {
			return nil, err
		}
		if err := field(doc, "task", &msg.Task); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeError:
		return Error{Envelope: env, Payload: json.RawMessage(data)}, nil
	case TypeSystem:
		return System{Envelope: env, Payload: json.RawMessage(data)}, nil
	default:
		return Unknown{Envelope: env}, nil
	}
}

// field decodes doc[key] into dst. Absent and null keys leave dst untouched.
func field(doc map[string]json.RawMessage, key string, dst interface{}) error {
	raw, ok := doc[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrap(ErrInvalidData, fmt.Errorf("key %q: %s", key, err))
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
