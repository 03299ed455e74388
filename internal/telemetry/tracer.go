// Package telemetry wires OpenTelemetry distributed tracing for the core.
// Spans correlate a boundary transition or feed decision across the
// scheduler and the AIR sink it drives; Prometheus (internal/metrics)
// remains the source of truth for alerting, tracing is for following one
// block's journey end to end.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether tracing is enabled and where spans are exported.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string // OTLP gRPC collector endpoint, e.g. "localhost:4317"
	SamplingRate   float64
}

// Provider owns the process-wide tracer and meter providers and their
// exporters.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewProvider installs the global tracer and meter providers. When
// cfg.Enabled is false it installs no-op providers so every Tracer()/Meter()
// call stays cheap — the boundary-transition instrumentation in
// channelmanager calls otel.GetMeterProvider() unconditionally and must not
// pay exporter cost when tracing is off.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return &Provider{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create gRPC exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// The boundary-transition and feed-decision counters (channelmanager)
	// are low-cardinality and low-rate; a periodic in-process reader is
	// enough without pulling in a second OTLP metric exporter.
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewManualReader()),
	)
	otel.SetMeterProvider(mp)

	return &Provider{tp: tp, mp: mp}, nil
}

// Shutdown flushes and closes the exporters. A no-op provider returns nil.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.mp.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return p.tp.Shutdown(shutdownCtx)
}

// Tracer returns a tracer scoped to name, e.g. a package path.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a meter scoped to name, e.g. a package path.
func Meter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}
