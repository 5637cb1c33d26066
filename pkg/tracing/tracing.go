// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tracing holds helpers shared by the tracing middlewares.
package tracing

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a span tagged with the request id carried by ctx.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		opts = append(opts, trace.WithAttributes(attribute.String("request_id", reqID)))
	}
	return tracer.Start(ctx, name, opts...)
}
