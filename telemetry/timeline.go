// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package telemetry

import "time"

// Resolution is the smallest distance between two readings of a peripheral.
// It matches the precision of PostgreSQL timestamps.
const Resolution = time.Microsecond

// Timeline tracks the instants taken by the readings of one peripheral.
// It is not safe for concurrent use.
type Timeline struct {
	taken map[int64]struct{}
}

// NewTimeline returns a timeline with the given instants taken.
func NewTimeline(taken ...time.Time) *Timeline {
	tl := &Timeline{taken: make(map[int64]struct{}, len(taken))}
	for _, t := range taken {
		tl.taken[t.Truncate(Resolution).UnixMicro()] = struct{}{}
	}
	return tl
}

// Place returns the first free instant at or after t and marks it taken.
// The result is truncated to Resolution and in UTC.
func (tl *Timeline) Place(t time.Time) time.Time {
	t = t.Truncate(Resolution).UTC()
	for {
		if _, ok := tl.taken[t.UnixMicro()]; !ok {
			break
		}
		t = t.Add(Resolution)
	}
	tl.taken[t.UnixMicro()] = struct{}{}
	return t
}
