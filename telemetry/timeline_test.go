// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package telemetry_test

import (
	"testing"
	"time"

	"github.com/absmach/farmgate/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestPlace(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tl := telemetry.NewTimeline(base, base.Add(2*time.Microsecond))

	cases := []struct {
		desc string
		in   time.Time
		out  time.Time
	}{
		{desc: "taken instant moves to next free one", in: base, out: base.Add(time.Microsecond)},
		{desc: "smear skips every taken instant", in: base, out: base.Add(3 * time.Microsecond)},
		{desc: "free instant is kept", in: base.Add(time.Second), out: base.Add(time.Second)},
		{desc: "sub-microsecond time is truncated", in: base.Add(time.Second + 500*time.Nanosecond), out: base.Add(time.Second + time.Microsecond)},
		{desc: "instant before taken ones is kept", in: base.Add(-time.Microsecond), out: base.Add(-time.Microsecond)},
		{desc: "zone is normalized", in: base.Add(time.Hour).In(time.FixedZone("CEST", 2*60*60)), out: base.Add(time.Hour)},
	}

	for _, tc := range cases {
		got := tl.Place(tc.in)
		assert.True(t, tc.out.Equal(got), "%s: expected %s got %s", tc.desc, tc.out, got)
		assert.Equal(t, time.UTC, got.Location(), tc.desc)
	}
}

func TestPlacePreservesOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tl := telemetry.NewTimeline()

	var prev time.Time
	for i := 0; i < 100; i++ {
		got := tl.Place(base)
		if i > 0 {
			assert.Equal(t, telemetry.Resolution, got.Sub(prev), "colliding readings must be one resolution apart")
		}
		prev = got
	}
}
