// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/pkg/tracing"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracingMiddleware struct {
	tracer trace.Tracer
	svc    controllers.Service
}

var _ controllers.Service = (*tracingMiddleware)(nil)

// NewTracingMiddleware returns a new controllers service with tracing capabilities.
func NewTracingMiddleware(tracer trace.Tracer, svc controllers.Service) controllers.Service {
	return &tracingMiddleware{
		tracer: tracer,
		svc:    svc,
	}
}

func (tm *tracingMiddleware) CreateController(ctx context.Context, session authn.Session, c controllers.Controller) (controllers.Controller, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "create_controller", trace.WithAttributes(
		attribute.String("name", c.Name),
	))
	defer span.End()

	return tm.svc.CreateController(ctx, session, c)
}

func (tm *tracingMiddleware) ViewController(ctx context.Context, session authn.Session, id string) (controllers.Controller, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "view_controller", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.ViewController(ctx, session, id)
}

func (tm *tracingMiddleware) ListControllers(ctx context.Context, session authn.Session, pm controllers.PageMetadata) (controllers.Page, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "list_controllers", trace.WithAttributes(
		attribute.Int64("offset", int64(pm.Offset)),
		attribute.Int64("limit", int64(pm.Limit)),
	))
	defer span.End()

	return tm.svc.ListControllers(ctx, session, pm)
}

func (tm *tracingMiddleware) RotateKey(ctx context.Context, session authn.Session, id string) (controllers.Controller, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "rotate_key", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.RotateKey(ctx, session, id)
}

func (tm *tracingMiddleware) Identify(ctx context.Context, key string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "identify")
	defer span.End()

	return tm.svc.Identify(ctx, key)
}

func (tm *tracingMiddleware) StartTask(ctx context.Context, session authn.Session, t tasks.Task) (tasks.Task, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "start_task", trace.WithAttributes(
		attribute.String("controller_id", t.ControllerID),
		attribute.String("type", string(t.Type)),
	))
	defer span.End()

	return tm.svc.StartTask(ctx, session, t)
}

func (tm *tracingMiddleware) StopTask(ctx context.Context, session authn.Session, id string) (tasks.Task, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "stop_task", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.StopTask(ctx, session, id)
}

func (tm *tracingMiddleware) AddPeripheral(ctx context.Context, session authn.Session, p peripherals.Peripheral) (peripherals.Peripheral, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "add_peripheral", trace.WithAttributes(
		attribute.String("controller_id", p.ControllerID),
		attribute.String("type", string(p.Type)),
	))
	defer span.End()

	return tm.svc.AddPeripheral(ctx, session, p)
}

func (tm *tracingMiddleware) RemovePeripheral(ctx context.Context, session authn.Session, id string) (peripherals.Peripheral, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "remove_peripheral", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.RemovePeripheral(ctx, session, id)
}

func (tm *tracingMiddleware) ListTasks(ctx context.Context, session authn.Session, pm tasks.PageMetadata) (tasks.Page, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "list_tasks", trace.WithAttributes(
		attribute.String("controller_id", pm.ControllerID),
		attribute.String("state", string(pm.State)),
		attribute.Int64("offset", int64(pm.Offset)),
		attribute.Int64("limit", int64(pm.Limit)),
	))
	defer span.End()

	return tm.svc.ListTasks(ctx, session, pm)
}

func (tm *tracingMiddleware) ListPeripherals(ctx context.Context, session authn.Session, pm peripherals.PageMetadata) (peripherals.Page, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "list_peripherals", trace.WithAttributes(
		attribute.String("controller_id", pm.ControllerID),
		attribute.String("state", string(pm.State)),
		attribute.Int64("offset", int64(pm.Offset)),
		attribute.Int64("limit", int64(pm.Limit)),
	))
	defer span.End()

	return tm.svc.ListPeripherals(ctx, session, pm)
}

func (tm *tracingMiddleware) ListDataPoints(ctx context.Context, session authn.Session, pm telemetry.PageMetadata) (telemetry.Page, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "list_data_points", trace.WithAttributes(
		attribute.String("peripheral_id", pm.PeripheralID),
		attribute.Int64("offset", int64(pm.Offset)),
		attribute.Int64("limit", int64(pm.Limit)),
	))
	defer span.End()

	return tm.svc.ListDataPoints(ctx, session, pm)
}
