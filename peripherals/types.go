// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package peripherals

import (
	"fmt"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/uuid"
)

// Type is the kind of component a peripheral is.
type Type string

const (
	I2C     Type = "I2C"
	BME280  Type = "BME280"
	SHT31   Type = "SHT31"
	DS18B20 Type = "DS18B20"
	Pump    Type = "Pump"
	Valve   Type = "Valve"
	LED     Type = "LED"
)

const dataPointTypeKey = "data_point_type"

var (
	// ErrInvalidType indicates an unknown peripheral type.
	ErrInvalidType = errors.New("invalid peripheral type")

	// ErrInvalidConfig indicates a binding or extra that cannot be sent to a controller.
	ErrInvalidConfig = errors.New("invalid peripheral configuration")

	// ErrAmbiguousDataPointType indicates an actuator not bound to exactly one data point type.
	ErrAmbiguousDataPointType = errors.New("actuator requires exactly one data point type")
)

var reservedKeys = map[string]bool{
	"uuid":           true,
	"type":           true,
	dataPointTypeKey: true,
}

// Actuator reports whether the peripheral is driven by a single data point type.
func (typ Type) Actuator() bool {
	return typ == Pump || typ == Valve
}

func (typ Type) valid() bool {
	switch typ {
	case I2C, BME280, SHT31, DS18B20, Pump, Valve, LED:
		return true
	default:
		return false
	}
}

// Validate checks that the type is known and that bindings and extras
// can be merged into one controller configuration.
func (p Peripheral) Validate() error {
	if !p.Type.valid() {
		return errors.Wrap(ErrInvalidType, fmt.Errorf("unknown type %q", p.Type))
	}
	if p.Type.Actuator() && len(p.DataPointTypes) != 1 {
		return errors.Wrap(ErrAmbiguousDataPointType, fmt.Errorf("%s has %d data point types", p.Type, len(p.DataPointTypes)))
	}

	for k := range p.Extras {
		if reservedKeys[k] {
			return errors.Wrap(ErrInvalidConfig, fmt.Errorf("key %q is reserved", k))
		}
	}
	keys := make(map[string]bool, len(p.DataPointTypes))
	for _, b := range p.DataPointTypes {
		if !uuid.Valid(b.DataPointTypeID) {
			return errors.Wrap(ErrInvalidConfig, fmt.Errorf("key %q: data point type must be a uuid", b.Key))
		}
		if p.Type.Actuator() {
			continue
		}
		if b.Key == "" {
			return errors.Wrap(ErrInvalidConfig, errors.New("binding without key"))
		}
		if reservedKeys[b.Key] || keys[b.Key] {
			return errors.Wrap(ErrInvalidConfig, fmt.Errorf("key %q is reserved or duplicated", b.Key))
		}
		if _, ok := p.Extras[b.Key]; ok {
			return errors.Wrap(ErrInvalidConfig, fmt.Errorf("key %q is both an extra and a binding", b.Key))
		}
		keys[b.Key] = true
	}

	return nil
}
