// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"time"

	"github.com/absmach/farmgate/ws"
	"github.com/go-kit/kit/metrics"
)

var _ ws.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter     metrics.Counter
	latency     metrics.Histogram
	connections metrics.Gauge
	svc         ws.Service
}

// MetricsMiddleware instruments the websocket service by tracking request
// count, latency and the number of open connections.
func MetricsMiddleware(svc ws.Service, counter metrics.Counter, latency metrics.Histogram, connections metrics.Gauge) ws.Service {
	return &metricsMiddleware{
		counter:     counter,
		latency:     latency,
		connections: connections,
		svc:         svc,
	}
}

func (mm *metricsMiddleware) Connect(ctx context.Context, controllerID string, ch ws.Channel) {
	defer func(begin time.Time) {
		mm.counter.With("method", "connect").Add(1)
		mm.latency.With("method", "connect").Observe(time.Since(begin).Seconds())
		mm.connections.Add(1)
	}(time.Now())

	mm.svc.Connect(ctx, controllerID, ch)
}

func (mm *metricsMiddleware) Disconnect(ctx context.Context, controllerID string, ch ws.Channel) bool {
	defer func(begin time.Time) {
		mm.counter.With("method", "disconnect").Add(1)
		mm.latency.With("method", "disconnect").Observe(time.Since(begin).Seconds())
		mm.connections.Add(-1)
	}(time.Now())

	return mm.svc.Disconnect(ctx, controllerID, ch)
}

func (mm *metricsMiddleware) Handle(ctx context.Context, controllerID string, payload []byte) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "handle").Add(1)
		mm.latency.With("method", "handle").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Handle(ctx, controllerID, payload)
}
