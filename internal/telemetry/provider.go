// Package telemetry wires the OpenTelemetry SDK for backend calls.
// Spans and request metrics are written to a local stream; there is no
// collector to ship them to.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config holds OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	// Interval is the metric export interval.
	Interval time.Duration
	// Writer receives exported spans and metrics.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the providers.
type ShutdownFunc func(context.Context) error

// Providers are the tracer and meter providers handed to instrumented clients.
type Providers struct {
	Tracer   trace.TracerProvider
	Meter    metric.MeterProvider
	Shutdown ShutdownFunc
}

// InitProvider builds the providers and installs them as the otel globals.
// When telemetry is disabled, no-op providers are returned and the globals
// are left untouched.
func InitProvider(ctx context.Context, cfg Config) (*Providers, error) {
	if !cfg.Enabled {
		return &Providers{
			Tracer:   tracenoop.NewTracerProvider(),
			Meter:    metricnoop.NewMeterProvider(),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}
	if cfg.Writer == nil {
		return nil, errors.New("telemetry writer is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracerProvider(cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer provider: %w", err)
	}
	meterProvider, err := initMeterProvider(cfg, res)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to init meter provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Providers{
		Tracer: tracerProvider,
		Meter:  meterProvider,
		Shutdown: func(ctx context.Context) error {
			return errors.Join(
				tracerProvider.Shutdown(ctx),
				meterProvider.Shutdown(ctx),
			)
		},
	}, nil
}

func initTracerProvider(cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	), nil
}

func initMeterProvider(cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Writer))
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.Interval),
		)),
		sdkmetric.WithResource(res),
	), nil
}
