package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// collector is the OTLP/HTTP destination shared by traces and metrics
type collector struct {
	endpoint string
	insecure bool
	resource *resource.Resource
}

func newCollector(ctx context.Context, cfg *Config) (collector, error) {
	res, err := newResource(ctx, cfg.GetServiceName(), cfg.GetServiceVersion())
	if err != nil {
		return collector{}, err
	}
	if cfg.Insecure {
		slog.Warn("Telemetry exporters use plain HTTP", "endpoint", cfg.GetEndpoint())
	}
	return collector{endpoint: cfg.GetEndpoint(), insecure: cfg.Insecure, resource: res}, nil
}

// sampler keeps the caller's decision for propagated traces and samples new
// root spans, such as a service read, at the configured ratio
func sampler(tc *TracingConfig) sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.GetSampling()))
}

// newTracerProvider installs a batching SDK tracer provider as the global
// provider along with W3C trace-context and baggage propagation
func newTracerProvider(ctx context.Context, c collector, tc *TracingConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.endpoint)}
	if c.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(c.resource),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler(tc)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing initialized", "endpoint", c.endpoint, "sampling_ratio", tc.GetSampling())
	return tp, nil
}

// newMeterProvider installs an SDK meter provider that pushes to the collector
// every MetricsConfig.Interval
func newMeterProvider(ctx context.Context, c collector, mc *MetricsConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(c.endpoint)}
	if c.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(c.resource),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(mc.GetInterval()))),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "endpoint", c.endpoint, "interval", mc.GetInterval())
	return mp, nil
}
