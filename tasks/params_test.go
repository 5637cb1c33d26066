// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tasks_test

import (
	"fmt"
	"testing"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/tasks"
	"github.com/stretchr/testify/assert"
)

const peripheralID = "6f1c0e5e-4d1b-4b37-9a8a-1f2d3c4b5a60"

func TestValidateParams(t *testing.T) {
	cases := []struct {
		desc   string
		typ    tasks.Type
		params map[string]interface{}
		key    string
		err    error
	}{
		{
			desc:   "valid poll sensor",
			typ:    tasks.PollSensor,
			params: map[string]interface{}{"peripheral": peripheralID, "interval": 30},
		},
		{
			desc:   "valid poll sensor with float interval and extras",
			typ:    tasks.PollSensor,
			params: map[string]interface{}{"peripheral": peripheralID, "interval": 0.5, "label": "tank"},
		},
		{
			desc:   "poll sensor without interval",
			typ:    tasks.PollSensor,
			params: map[string]interface{}{"peripheral": peripheralID},
			key:    "interval",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "poll sensor with zero interval",
			typ:    tasks.PollSensor,
			params: map[string]interface{}{"peripheral": peripheralID, "interval": 0},
			key:    "interval",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "poll sensor with string interval",
			typ:    tasks.PollSensor,
			params: map[string]interface{}{"peripheral": peripheralID, "interval": "30"},
			key:    "interval",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "read sensor with invalid peripheral",
			typ:    tasks.ReadSensor,
			params: map[string]interface{}{"peripheral": "sensor-1"},
			key:    "peripheral",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "read sensor without params",
			typ:    tasks.ReadSensor,
			params: map[string]interface{}{},
			key:    "peripheral",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "valid set value",
			typ:    tasks.SetValue,
			params: map[string]interface{}{"peripheral": peripheralID, "value": 1},
		},
		{
			desc:   "set value without value",
			typ:    tasks.SetValue,
			params: map[string]interface{}{"peripheral": peripheralID},
			key:    "value",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "valid alert",
			typ:    tasks.Alert,
			params: map[string]interface{}{"peripheral": peripheralID, "message": "EC too high"},
		},
		{
			desc:   "alert with empty message",
			typ:    tasks.Alert,
			params: map[string]interface{}{"peripheral": peripheralID, "message": ""},
			key:    "message",
			err:    tasks.ErrInvalidParams,
		},
		{
			desc:   "unknown type",
			typ:    tasks.Type("Water"),
			params: map[string]interface{}{},
			err:    tasks.ErrInvalidType,
		},
	}

	for _, tc := range cases {
		err := tc.typ.Validate(tc.params)
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
		if tc.key != "" {
			assert.ErrorContains(t, err, tc.key, tc.desc)
		}
	}
}

func TestPeripheral(t *testing.T) {
	assert.Equal(t, peripheralID, tasks.Peripheral(map[string]interface{}{"peripheral": peripheralID}))
	assert.Equal(t, "", tasks.Peripheral(map[string]interface{}{"peripheral": 3}))
	assert.Equal(t, "", tasks.Peripheral(nil))
}
