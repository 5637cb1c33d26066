// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package fsm_test

import (
	"fmt"
	"testing"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/fsm"
	"github.com/stretchr/testify/assert"
)

type light string

type signal string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"

	next  signal = "next"
	reset signal = "reset"
)

var machine = fsm.New(
	fsm.Transition[light, signal]{From: []light{red}, Event: next, To: green},
	fsm.Transition[light, signal]{From: []light{green}, Event: next, To: yellow},
	fsm.Transition[light, signal]{From: []light{yellow}, Event: next, To: red},
	fsm.Transition[light, signal]{From: []light{green, yellow}, Event: reset, To: red},
)

func TestFire(t *testing.T) {
	cases := []struct {
		desc    string
		current light
		event   signal
		next    light
		err     error
	}{
		{desc: "red to green", current: red, event: next, next: green},
		{desc: "green to yellow", current: green, event: next, next: yellow},
		{desc: "yellow to red", current: yellow, event: next, next: red},
		{desc: "reset from green", current: green, event: reset, next: red},
		{desc: "reset from yellow", current: yellow, event: reset, next: red},
		{desc: "reset from red", current: red, event: reset, next: red, err: fsm.ErrInvalidTransition},
		{desc: "unknown state", current: light("blue"), event: next, next: light("blue"), err: fsm.ErrInvalidTransition},
	}

	for _, tc := range cases {
		got, err := machine.Fire(tc.current, tc.event)
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
		assert.Equal(t, tc.next, got, tc.desc)
		assert.Equal(t, tc.err == nil, machine.Can(tc.current, tc.event), tc.desc)
	}
}

func TestFireNamesStateAndEvent(t *testing.T) {
	_, err := machine.Fire(red, reset)
	assert.ErrorContains(t, err, string(red))
	assert.ErrorContains(t, err, string(reset))
}

func TestZeroMachine(t *testing.T) {
	var m fsm.Machine[light, signal]
	_, err := m.Fire(red, next)
	assert.True(t, errors.Contains(err, fsm.ErrInvalidTransition))
	assert.False(t, m.Can(red, next))
}

func TestConflictingTransitions(t *testing.T) {
	assert.Panics(t, func() {
		fsm.New(
			fsm.Transition[light, signal]{From: []light{red}, Event: next, To: green},
			fsm.Transition[light, signal]{From: []light{red}, Event: next, To: yellow},
		)
	})
}
