package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collect gathers everything recorded so far, keyed by instrument name
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func newManualProvider(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func TestFreshnessMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	metrics, err := NewFreshnessMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	assert.NotPanics(t, func() {
		metrics.RecordOutcome(context.Background(), "fresh")
		metrics.RecordFetchDuration(context.Background(), time.Second, true)
	})
}

func TestFreshnessMetrics_Record(t *testing.T) {
	t.Parallel()

	reader, mp := newManualProvider(t)
	metrics, err := NewFreshnessMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordOutcome(ctx, "refreshed")
	metrics.RecordOutcome(ctx, "refreshed")
	metrics.RecordOutcome(ctx, "failed")
	metrics.RecordFetchDuration(ctx, 150*time.Millisecond, true)

	got := collect(t, reader)

	syncTotal, ok := got["campuslink_status_sync_total"]
	require.True(t, ok)
	sum, ok := syncTotal.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOutcome := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		byOutcome[outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"refreshed": 2, "failed": 1}, byOutcome)

	fetch, ok := got["campuslink_status_fetch_duration_seconds"]
	require.True(t, ok)
	hist, ok := fetch.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	success, _ := hist.DataPoints[0].Attributes.Value(attribute.Key("success"))
	assert.True(t, success.AsBool())
}

func TestEnrichMetrics(t *testing.T) {
	t.Parallel()

	var nilMetrics *EnrichMetrics
	assert.NotPanics(t, func() { nilMetrics.RecordResult(context.Background(), "linked") })

	reader, mp := newManualProvider(t)
	metrics, err := NewEnrichMetrics(mp)
	require.NoError(t, err)

	metrics.RecordResult(context.Background(), "linked")
	metrics.RecordResult(context.Background(), "missed")

	got := collect(t, reader)
	sum, ok := got["campuslink_enrich_results_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}
