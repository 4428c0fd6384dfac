package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FreshnessMetricsMeterName is the name used for the status synchronization meter
	FreshnessMetricsMeterName = "github.com/campuslink/campuslink-server/freshness"

	// EnrichMetricsMeterName is the name used for the enrichment meter
	EnrichMetricsMeterName = "github.com/campuslink/campuslink-server/enrich"
)

// FreshnessMetrics holds the instruments for per-read status synchronization
type FreshnessMetrics struct {
	syncTotal     metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

// NewFreshnessMetrics creates a new FreshnessMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewFreshnessMetrics(provider metric.MeterProvider) (*FreshnessMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FreshnessMetricsMeterName)

	syncTotal, err := meter.Int64Counter(
		"campuslink_status_sync_total",
		metric.WithDescription("Status synchronization attempts by outcome"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"campuslink_status_fetch_duration_seconds",
		metric.WithDescription("Duration of open status fetches from Places in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &FreshnessMetrics{
		syncTotal:     syncTotal,
		fetchDuration: fetchDuration,
	}, nil
}

// RecordOutcome counts one synchronization with its outcome
func (m *FreshnessMetrics) RecordOutcome(ctx context.Context, outcome string) {
	if m == nil || m.syncTotal == nil {
		return
	}
	m.syncTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordFetchDuration records how long a status fetch took
func (m *FreshnessMetrics) RecordFetchDuration(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.fetchDuration == nil {
		return
	}
	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}

// EnrichMetrics holds the instruments for place-reference enrichment runs
type EnrichMetrics struct {
	results metric.Int64Counter
}

// NewEnrichMetrics creates a new EnrichMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewEnrichMetrics(provider metric.MeterProvider) (*EnrichMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	results, err := provider.Meter(EnrichMetricsMeterName).Int64Counter(
		"campuslink_enrich_results_total",
		metric.WithDescription("Enrichment lookups by result"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}
	return &EnrichMetrics{results: results}, nil
}

// RecordResult counts one enrichment lookup ("linked", "missed" or "failed")
func (m *EnrichMetrics) RecordResult(ctx context.Context, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
