// Package telemetry boots the OpenTelemetry providers for Switchboard.
//
// Traces and metrics export as JSON lines on stdout, which keeps local runs
// self-contained. Operational metrics are additionally exposed on /metrics
// in Prometheus form; the OTel pipeline carries spans and is disabled by
// default.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// serviceName identifies this process in exported telemetry.
const serviceName = "switchboard-api"

// scopeName is the instrumentation scope for tracers created here.
const scopeName = "github.com/jlov7/Switchboard"

// metricInterval matches the 60s export cadence the service has always
// used.
const metricInterval = 60 * time.Second

// Provider owns the tracer and meter providers for the process lifetime.
// The zero value (from Disabled) is inert: Tracer falls back to the global
// no-op tracer and Shutdown does nothing.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logger         *slog.Logger
}

type options struct {
	logger  *slog.Logger
	writer  io.Writer
	version string
}

// Option customizes telemetry setup.
type Option func(*options)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWriter redirects exporter output, primarily for tests.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithServiceVersion stamps service.version on the exported resource.
func WithServiceVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// Setup builds stdout trace and metric exporters, installs tracer and
// meter providers globally, and returns the Provider that owns them. Call
// Shutdown on the returned provider before exit to flush buffered spans.
func Setup(ctx context.Context, opts ...Option) (*Provider, error) {
	o := options{
		logger:  slog.Default(),
		writer:  os.Stdout,
		version: "dev",
	}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", o.version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(o.writer))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithEncoder(json.NewEncoder(o.writer)),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(metricInterval),
		)),
	)
	otel.SetMeterProvider(meterProvider)

	o.logger.Info("telemetry enabled",
		"service", serviceName,
		"exporter", "stdout",
	)

	return &Provider{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		logger:         o.logger,
	}, nil
}

// Disabled returns an inert provider for runs without telemetry.
func Disabled() *Provider {
	return &Provider{}
}

// Tracer returns the tracer for switchboard spans. On a disabled provider
// this is the global tracer, a no-op unless something else installed one.
func (p *Provider) Tracer() trace.Tracer {
	if p.tracerProvider != nil {
		return p.tracerProvider.Tracer(scopeName)
	}
	return otel.Tracer(scopeName)
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
