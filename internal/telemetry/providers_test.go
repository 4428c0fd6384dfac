package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestSampler(t *testing.T) {
	t.Parallel()

	traceID := trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	root := sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: traceID, Name: "service.GetService"}

	never := sampler(&TracingConfig{Enabled: true, Sampling: 1e-9})
	assert.Equal(t, sdktrace.Drop, never.ShouldSample(root).Decision)

	always := sampler(&TracingConfig{Enabled: true, Sampling: 1})
	assert.Equal(t, sdktrace.RecordAndSample, always.ShouldSample(root).Decision)

	// A sampled parent wins over the ratio.
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	child := root
	child.ParentContext = trace.ContextWithRemoteSpanContext(context.Background(), parent)
	assert.Equal(t, sdktrace.RecordAndSample, never.ShouldSample(child).Decision)
}

func TestMetricsInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultMetricsInterval, (&MetricsConfig{}).GetInterval())
	assert.Equal(t, 15*time.Second, (&MetricsConfig{Interval: 15 * time.Second}).GetInterval())

	err := (&Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Interval: -time.Second}}).Validate()
	require.ErrorContains(t, err, "interval cannot be negative")
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	c, err := newCollector(context.Background(), &Config{Enabled: true, Insecure: true, ServiceVersion: "v1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.True(t, c.insecure)

	attrs := map[string]string{}
	for _, kv := range c.resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, DefaultServiceName, attrs["service.name"])
	assert.Equal(t, "v1", attrs["service.version"])
	assert.Equal(t, "campuslink", attrs["service.namespace"])
}
