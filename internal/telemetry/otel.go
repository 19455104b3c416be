// Package telemetry wires OpenTelemetry tracing for the bot and its
// scheduled jobs.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	envDevelopment = "development"
	envProduction  = "production"
)

// Options describe the process being traced.
type Options struct {
	ServiceName string
	Version     string
	// Endpoint is the OTLP/HTTP collector URL. Tracing stays off when empty.
	Endpoint string
	// SampleRatio applies to root spans, job runs in practice. Debug
	// overrides it and samples everything.
	SampleRatio float64
	Debug       bool
	TimeZone    string
}

// Setup installs the global tracer provider. The returned shutdown flushes
// pending spans and is a no-op when tracing is off.
func Setup(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if opts.Endpoint == "" {
		return noop, nil
	}
	sampler, err := newSampler(opts)
	if err != nil {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(attributes(opts)...))
	if err != nil {
		return noop, fmt.Errorf("resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

func attributes(opts Options) []attribute.KeyValue {
	env := envProduction
	if opts.Debug {
		env = envDevelopment
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		semconv.DeploymentEnvironment(env),
	}
	if opts.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(opts.Version))
	}
	if opts.TimeZone != "" {
		attrs = append(attrs, attribute.String("club.timezone", opts.TimeZone))
	}
	return attrs
}

func newSampler(opts Options) (sdktrace.Sampler, error) {
	if opts.Debug {
		return sdktrace.AlwaysSample(), nil
	}
	if opts.SampleRatio < 0 || opts.SampleRatio > 1 {
		return nil, fmt.Errorf("sample ratio %g outside [0, 1]", opts.SampleRatio)
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio)), nil
}
