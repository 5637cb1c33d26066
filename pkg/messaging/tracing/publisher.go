// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tracing wraps a messaging.Publisher with OpenTelemetry spans.
package tracing

import (
	"context"

	"github.com/absmach/farmgate/pkg/messaging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const publishOP = "publish"

var defaultAttributes = []attribute.KeyValue{
	attribute.String("messaging.system", "nats"),
	attribute.String("network.protocol.name", "nats"),
}

var _ messaging.Publisher = (*publisherMiddleware)(nil)

type publisherMiddleware struct {
	publisher messaging.Publisher
	tracer    trace.Tracer
}

// New creates new messaging publisher tracing middleware.
func New(tracer trace.Tracer, publisher messaging.Publisher) messaging.Publisher {
	return &publisherMiddleware{
		publisher: publisher,
		tracer:    tracer,
	}
}

func (pm *publisherMiddleware) Publish(ctx context.Context, topic string, msg *messaging.Message) error {
	attrs := []attribute.KeyValue{
		attribute.String("messaging.destination.name", topic),
		attribute.String("controller", msg.Controller),
		attribute.Int("messaging.message.payload_size_bytes", len(msg.Payload)),
	}
	if msg.Subtopic != "" {
		attrs = append(attrs, attribute.String("subtopic", msg.Subtopic))
	}
	attrs = append(attrs, defaultAttributes...)

	ctx, span := pm.tracer.Start(ctx, publishOP, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	return pm.publisher.Publish(ctx, topic, msg)
}

func (pm *publisherMiddleware) Close() error {
	return pm.publisher.Close()
}
