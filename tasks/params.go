// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"fmt"
	"sort"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/uuid"
	"github.com/mitchellh/mapstructure"
)

// Type is the kind of work a task performs.
type Type string

const (
	PollSensor Type = "PollSensor"
	ReadSensor Type = "ReadSensor"
	SetValue   Type = "SetValue"
	Alert      Type = "Alert"
)

var (
	// ErrInvalidType indicates an unknown task type.
	ErrInvalidType = errors.New("invalid task type")

	// ErrInvalidParams indicates task parameters that do not fit the task type.
	ErrInvalidParams = errors.New("invalid task parameters")

	// ErrExpired indicates a task whose deadline has already passed.
	ErrExpired = errors.New("task deadline is in the past")
)

type pollSensorParams struct {
	Peripheral string  `mapstructure:"peripheral"`
	Interval   float64 `mapstructure:"interval"`
}

type readSensorParams struct {
	Peripheral string `mapstructure:"peripheral"`
}

type setValueParams struct {
	Peripheral string  `mapstructure:"peripheral"`
	Value      float64 `mapstructure:"value"`
}

type alertParams struct {
	Peripheral string `mapstructure:"peripheral"`
	Message    string `mapstructure:"message"`
}

// Validate checks that the parameters fit the task type.
func (typ Type) Validate(params map[string]interface{}) error {
	switch typ {
	case PollSensor:
		var p pollSensorParams
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		if p.Interval <= 0 {
			return invalidKey("interval", "must be positive")
		}
		return validPeripheral(p.Peripheral)
	case ReadSensor:
		var p readSensorParams
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		return validPeripheral(p.Peripheral)
	case SetValue:
		var p setValueParams
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		return validPeripheral(p.Peripheral)
	case Alert:
		var p alertParams
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		if p.Message == "" {
			return invalidKey("message", "must not be empty")
		}
		return validPeripheral(p.Peripheral)
	default:
		return errors.Wrap(ErrInvalidType, fmt.Errorf("unknown type %q", typ))
	}
}

// Peripheral returns the id of the peripheral the parameters refer to.
func Peripheral(params map[string]interface{}) string {
	id, _ := params["peripheral"].(string)
	return id
}

func decodeParams(params map[string]interface{}, dst interface{}) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   dst,
	})
	if err != nil {
		return errors.Wrap(ErrInvalidParams, err)
	}
	if err := dec.Decode(params); err != nil {
		return errors.Wrap(ErrInvalidParams, err)
	}
	if len(md.Unset) > 0 {
		sort.Strings(md.Unset)
		return invalidKey(md.Unset[0], "missing")
	}
	return nil
}

func validPeripheral(id string) error {
	if !uuid.Valid(id) {
		return invalidKey("peripheral", "must be a uuid")
	}
	return nil
}

func invalidKey(key, reason string) error {
	return errors.Wrap(ErrInvalidParams, fmt.Errorf("key %q %s", key, reason))
}
