// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/absmach/farmgate/telemetry"
)

var _ telemetry.Repository = (*dataPointRepositoryMock)(nil)

type dataPointRepositoryMock struct {
	mu     sync.Mutex
	points map[string][]telemetry.DataPoint
}

// NewRepository creates in-memory data point repository.
func NewRepository() telemetry.Repository {
	return &dataPointRepositoryMock{
		points: make(map[string][]telemetry.DataPoint),
	}
}

func (drm *dataPointRepositoryMock) Save(_ context.Context, peripheralID string, points []telemetry.DataPoint) ([]telemetry.DataPoint, error) {
	drm.mu.Lock()
	defer drm.mu.Unlock()

	existing := drm.points[peripheralID]
	taken := make([]time.Time, len(existing))
	for i, dp := range existing {
		taken[i] = dp.Time
	}
	tl := telemetry.NewTimeline(taken...)

	saved := make([]telemetry.DataPoint, len(points))
	for i, dp := range points {
		dp.PeripheralID = peripheralID
		dp.Time = tl.Place(dp.Time)
		saved[i] = dp
	}
	drm.points[peripheralID] = append(existing, saved...)

	return saved, nil
}

func (drm *dataPointRepositoryMock) RetrieveAll(_ context.Context, pm telemetry.PageMetadata) (telemetry.Page, error) {
	drm.mu.Lock()
	defer drm.mu.Unlock()

	var all []telemetry.DataPoint
	for _, dp := range drm.points[pm.PeripheralID] {
		if pm.DataPointTypeID != "" && dp.DataPointTypeID != pm.DataPointTypeID {
			continue
		}
		if !pm.From.IsZero() && dp.Time.Before(pm.From) {
			continue
		}
		if !pm.To.IsZero() && !dp.Time.Before(pm.To) {
			continue
		}
		all = append(all, dp)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })

	page := telemetry.Page{
		Total:      uint64(len(all)),
		Offset:     pm.Offset,
		Limit:      pm.Limit,
		DataPoints: []telemetry.DataPoint{},
	}
	if pm.Offset >= uint64(len(all)) {
		return page, nil
	}
	end := pm.Offset + pm.Limit
	if pm.Limit == 0 || end > uint64(len(all)) {
		end = uint64(len(all))
	}
	page.DataPoints = append(page.DataPoints, all[pm.Offset:end]...)

	return page, nil
}
