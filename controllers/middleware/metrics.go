// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"time"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"github.com/go-kit/kit/metrics"
)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	service controllers.Service
}

var _ controllers.Service = (*metricsMiddleware)(nil)

// NewMetricsMiddleware instruments the controllers service by tracking
// request count and latency.
func NewMetricsMiddleware(counter metrics.Counter, latency metrics.Histogram, service controllers.Service) controllers.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		service: service,
	}
}

func (mm *metricsMiddleware) CreateController(ctx context.Context, session authn.Session, c controllers.Controller) (controllers.Controller, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create_controller").Add(1)
		mm.latency.With("method", "create_controller").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.CreateController(ctx, session, c)
}

func (mm *metricsMiddleware) ViewController(ctx context.Context, session authn.Session, id string) (controllers.Controller, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "view_controller").Add(1)
		mm.latency.With("method", "view_controller").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ViewController(ctx, session, id)
}

func (mm *metricsMiddleware) ListControllers(ctx context.Context, session authn.Session, pm controllers.PageMetadata) (controllers.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_controllers").Add(1)
		mm.latency.With("method", "list_controllers").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ListControllers(ctx, session, pm)
}

func (mm *metricsMiddleware) RotateKey(ctx context.Context, session authn.Session, id string) (controllers.Controller, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "rotate_key").Add(1)
		mm.latency.With("method", "rotate_key").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.RotateKey(ctx, session, id)
}

func (mm *metricsMiddleware) Identify(ctx context.Context, key string) (string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "identify").Add(1)
		mm.latency.With("method", "identify").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.Identify(ctx, key)
}

func (mm *metricsMiddleware) StartTask(ctx context.Context, session authn.Session, t tasks.Task) (tasks.Task, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start_task").Add(1)
		mm.latency.With("method", "start_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.StartTask(ctx, session, t)
}

func (mm *metricsMiddleware) StopTask(ctx context.Context, session authn.Session, id string) (tasks.Task, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "stop_task").Add(1)
		mm.latency.With("method", "stop_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.StopTask(ctx, session, id)
}

func (mm *metricsMiddleware) AddPeripheral(ctx context.Context, session authn.Session, p peripherals.Peripheral) (peripherals.Peripheral, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "add_peripheral").Add(1)
		mm.latency.With("method", "add_peripheral").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.AddPeripheral(ctx, session, p)
}

func (mm *metricsMiddleware) RemovePeripheral(ctx context.Context, session authn.Session, id string) (peripherals.Peripheral, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "remove_peripheral").Add(1)
		mm.latency.With("method", "remove_peripheral").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.RemovePeripheral(ctx, session, id)
}

func (mm *metricsMiddleware) ListTasks(ctx context.Context, session authn.Session, pm tasks.PageMetadata) (tasks.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_tasks").Add(1)
		mm.latency.With("method", "list_tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ListTasks(ctx, session, pm)
}

func (mm *metricsMiddleware) ListPeripherals(ctx context.Context, session authn.Session, pm peripherals.PageMetadata) (peripherals.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_peripherals").Add(1)
		mm.latency.With("method", "list_peripherals").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ListPeripherals(ctx, session, pm)
}

func (mm *metricsMiddleware) ListDataPoints(ctx context.Context, session authn.Session, pm telemetry.PageMetadata) (telemetry.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_data_points").Add(1)
		mm.latency.With("method", "list_data_points").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ListDataPoints(ctx, session, pm)
}
