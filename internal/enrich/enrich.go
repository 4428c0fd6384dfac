// Package enrich links directory records to Places references. Records with
// no external reference are looked up by name near their coordinates, and
// the first candidate's place id (and address, when present) is saved.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/places"
	"github.com/campuslink/campuslink-server/internal/telemetry"
)

const (
	// DefaultInterval is the minimum spacing between two Places lookups
	DefaultInterval = 200 * time.Millisecond
	// DefaultRadiusMeters biases lookups to a circle around the record
	DefaultRadiusMeters = 500
	// DefaultConcurrency is the number of lookups in flight
	DefaultConcurrency = 1
)

// Lookup results, also used as metric attribute values
const (
	ResultLinked = "linked"
	ResultMissed = "missed"
	ResultFailed = "failed"
)

// Report summarizes an enrichment run
type Report struct {
	// Scanned is the number of records that had no external reference
	Scanned int `json:"scanned"`
	Linked  int `json:"linked"`
	Missed  int `json:"missed"`
	Failed  int `json:"failed"`
}

func (r *Report) add(result string) {
	switch result {
	case ResultLinked:
		r.Linked++
	case ResultMissed:
		r.Missed++
	default:
		r.Failed++
	}
}

// Enricher resolves missing external references
type Enricher struct {
	finder      places.PlaceFinder
	store       directory.Store
	limiter     *rate.Limiter
	concurrency int
	radius      int
	metrics     *telemetry.EnrichMetrics
}

// Option configures an Enricher
type Option func(*Enricher) error

// WithInterval sets the minimum time between lookups. Zero disables pacing.
func WithInterval(interval time.Duration) Option {
	return func(e *Enricher) error {
		if interval < 0 {
			return fmt.Errorf("interval cannot be negative, got %s", interval)
		}
		if interval == 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		e.limiter = rate.NewLimiter(rate.Every(interval), 1)
		return nil
	}
}

// WithConcurrency sets how many lookups may run at once
func WithConcurrency(n int) Option {
	return func(e *Enricher) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		e.concurrency = n
		return nil
	}
}

// WithRadius sets the location bias radius in meters
func WithRadius(meters int) Option {
	return func(e *Enricher) error {
		if meters <= 0 {
			return fmt.Errorf("radius must be positive, got %d", meters)
		}
		e.radius = meters
		return nil
	}
}

// WithMetrics sets the metrics instruments. Nil disables metrics.
func WithMetrics(m *telemetry.EnrichMetrics) Option {
	return func(e *Enricher) error {
		e.metrics = m
		return nil
	}
}

// New creates an Enricher
func New(finder places.PlaceFinder, store directory.Store, opts ...Option) (*Enricher, error) {
	if finder == nil {
		return nil, fmt.Errorf("place finder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}

	e := &Enricher{
		finder:      finder,
		store:       store,
		limiter:     rate.NewLimiter(rate.Every(DefaultInterval), 1),
		concurrency: DefaultConcurrency,
		radius:      DefaultRadiusMeters,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Run looks up every record without an external reference. Individual
// lookup failures are counted in the report; only cancellation of ctx or a
// failure to list the directory aborts the run.
func (e *Enricher) Run(ctx context.Context) (Report, error) {
	var report Report

	records, err := e.store.List(ctx, directory.Filter{})
	if err != nil {
		return report, fmt.Errorf("failed to list services: %w", err)
	}

	pending := make([]*directory.ServiceRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasExternalRef() {
			pending = append(pending, rec)
		}
	}
	report.Scanned = len(pending)
	slog.InfoContext(ctx, "Starting enrichment", "pending", len(pending), "total", len(records))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, rec := range pending {
		if err := e.limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			result := e.enrichOne(gctx, rec)
			e.metrics.RecordResult(gctx, result)
			mu.Lock()
			report.add(result)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("enrichment interrupted: %w", err)
	}

	slog.InfoContext(ctx, "Enrichment complete",
		"scanned", report.Scanned,
		"linked", report.Linked,
		"missed", report.Missed,
		"failed", report.Failed,
	)
	return report, nil
}

func (e *Enricher) enrichOne(ctx context.Context, rec *directory.ServiceRecord) string {
	logger := slog.With("service_id", rec.ID, "name", rec.Name)

	candidate, err := e.finder.FindPlace(ctx, rec.Name, rec.Location, e.radius)
	switch {
	case errors.Is(err, places.ErrNoCandidate):
		logger.WarnContext(ctx, "No place found near the stored coordinates")
		return ResultMissed
	case err != nil:
		logger.ErrorContext(ctx, "Place lookup failed", "error", err)
		return ResultFailed
	}

	update := directory.Update{ExternalRef: &candidate.PlaceID}
	if candidate.Address != "" {
		update.Address = &candidate.Address
	}
	if _, err := e.store.Save(ctx, rec.ID, update); err != nil {
		logger.ErrorContext(ctx, "Failed to save place reference", "place_id", candidate.PlaceID, "error", err)
		return ResultFailed
	}

	logger.InfoContext(ctx, "Linked service to place", "place_id", candidate.PlaceID)
	return ResultLinked
}
