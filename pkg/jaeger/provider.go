// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package jaeger builds the OpenTelemetry trace provider exporting spans to
// a Jaeger collector over OTLP HTTP.
package jaeger

import (
	"context"
	"net/url"

	"github.com/absmach/farmgate/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var (
	errNoURL                     = errors.New("URL is empty")
	errNoSvcName                 = errors.New("Service Name is empty")
	errUnsupportedTraceURLScheme = errors.New("unsupported tracing url scheme")
)

// NewProvider initializes Jaeger TraceProvider.
func NewProvider(ctx context.Context, svcName string, jaegerURL *url.URL, instanceID string, fraction float64) (*tracesdk.TracerProvider, error) {
	if jaegerURL == nil || jaegerURL.String() == "" {
		return nil, errNoURL
	}
	if svcName == "" {
		return nil, errNoSvcName
	}
	if jaegerURL.Scheme != "http" && jaegerURL.Scheme != "https" {
		return nil, errors.Wrap(errUnsupportedTraceURLScheme, errors.New(jaegerURL.Scheme))
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(jaegerURL.Host),
		otlptracehttp.WithURLPath(jaegerURL.Path),
	}
	if jaegerURL.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	attributes := []attribute.KeyValue{
		semconv.ServiceNameKey.String(svcName),
		attribute.String("host.id", instanceID),
	}

	hostAttr, err := resource.New(ctx, resource.WithHost(), resource.WithOSDescription(), resource.WithContainer())
	if err != nil {
		return nil, err
	}
	attributes = append(attributes, hostAttr.Attributes()...)

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.TraceIDRatioBased(fraction)),
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			attributes...,
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
