package freshness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/events"
	"github.com/campuslink/campuslink-server/internal/otel"
	"github.com/campuslink/campuslink-server/internal/places"
	"github.com/campuslink/campuslink-server/internal/telemetry"
)

const (
	// DefaultTTL is how long a successful status check stays fresh
	DefaultTTL = 15 * time.Minute

	// DefaultFetchTimeout bounds a single status fetch and the event publish
	// that may follow it
	DefaultFetchTimeout = 5 * time.Second

	// TracerName is the name used for the synchronizer tracer
	TracerName = "github.com/campuslink/campuslink-server/freshness"
)

// Synchronizer refreshes a record's open status on read when it is stale
type Synchronizer struct {
	store        directory.Store
	source       places.StatusSource
	publisher    events.Publisher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	metrics      *telemetry.FreshnessMetrics
	tracer       trace.Tracer
}

// Option is a functional option for configuring the Synchronizer
type Option func(*Synchronizer) error

// WithTTL sets how long a status check stays fresh
func WithTTL(ttl time.Duration) Option {
	return func(s *Synchronizer) error {
		if ttl <= 0 {
			return fmt.Errorf("ttl must be positive, got %s", ttl)
		}
		s.ttl = ttl
		return nil
	}
}

// WithFetchTimeout bounds each call to the status source
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Synchronizer) error {
		if timeout <= 0 {
			return fmt.Errorf("fetch timeout must be positive, got %s", timeout)
		}
		s.fetchTimeout = timeout
		return nil
	}
}

// WithClock overrides the clock used for freshness checks and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// WithPublisher sets where status changes are announced
func WithPublisher(p events.Publisher) Option {
	return func(s *Synchronizer) error {
		if p != nil {
			s.publisher = p
		}
		return nil
	}
}

// WithMetrics sets the metrics instruments. Nil disables metrics.
func WithMetrics(m *telemetry.FreshnessMetrics) Option {
	return func(s *Synchronizer) error {
		s.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer. Nil disables tracing.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Synchronizer) error {
		s.tracer = tracer
		return nil
	}
}

// New creates a Synchronizer. A nil source disables synchronization and
// every Sync returns OutcomeDisabled.
func New(store directory.Store, source places.StatusSource, opts ...Option) (*Synchronizer, error) {
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}

	s := &Synchronizer{
		store:        store,
		source:       source,
		publisher:    events.NopPublisher{},
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TTL returns the configured freshness window
func (s *Synchronizer) TTL() time.Duration {
	return s.ttl
}

// IsFresh reports whether rec was checked less than one TTL before now.
// An age equal to the TTL is stale.
func (s *Synchronizer) IsFresh(rec *directory.ServiceRecord, now time.Time) bool {
	if rec.StatusLastChecked == nil {
		return false
	}
	return now.Sub(*rec.StatusLastChecked) < s.ttl
}

// Sync returns rec with a current open status. The input is never modified;
// a refreshed record is a copy. Errors from the source or the store are
// logged and reported only through the Outcome.
func (s *Synchronizer) Sync(ctx context.Context, rec *directory.ServiceRecord) (*directory.ServiceRecord, Outcome) {
	if rec == nil {
		return nil, OutcomeNotSynchronizable
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "freshness.Sync",
		trace.WithAttributes(otel.AttrServiceID.String(rec.ID)))
	defer span.End()

	result, outcome := s.sync(ctx, span, rec)

	span.SetAttributes(otel.AttrSyncOutcome.String(outcome.String()))
	s.metrics.RecordOutcome(ctx, outcome.String())
	return result, outcome
}

func (s *Synchronizer) sync(
	ctx context.Context,
	span trace.Span,
	rec *directory.ServiceRecord,
) (*directory.ServiceRecord, Outcome) {
	if s.source == nil {
		return rec, OutcomeDisabled
	}
	if !rec.HasExternalRef() {
		return rec, OutcomeNotSynchronizable
	}
	if s.IsFresh(rec, s.now()) {
		return rec, OutcomeFresh
	}

	ref := *rec.ExternalRef
	logger := slog.With(
		"service_id", rec.ID,
		"external_ref", ref,
		"request_id", middleware.GetReqID(ctx),
	)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	started := time.Now()
	isOpen, err := s.source.FetchOpenStatus(fetchCtx, ref)
	cancel()
	s.metrics.RecordFetchDuration(ctx, time.Since(started), err == nil)

	if err != nil {
		otel.RecordError(span, err)
		if errors.Is(err, places.ErrStatusUnknown) {
			logger.WarnContext(ctx, "Open status unavailable from Places, keeping cached status", "error", err)
			return rec, OutcomeIndeterminate
		}
		logger.ErrorContext(ctx, "Failed to fetch open status, keeping cached status", "error", err)
		return rec, OutcomeFailed
	}

	checked := s.now().UTC().Truncate(time.Microsecond)
	refreshed := rec.Clone()
	refreshed.IsOpen = isOpen
	refreshed.StatusLastChecked = &checked
	span.SetAttributes(otel.AttrStatusOpen.Bool(isOpen))

	saved, err := s.store.Save(ctx, rec.ID, directory.Update{
		IsOpen:            &isOpen,
		StatusLastChecked: &checked,
	})
	if err != nil {
		otel.RecordError(span, err)
		logger.ErrorContext(ctx, "Failed to persist refreshed open status", "is_open", isOpen, "error", err)
		return refreshed, OutcomePersistFailed
	}
	if saved != nil {
		refreshed.UpdatedAt = saved.UpdatedAt
	}

	logger.DebugContext(ctx, "Open status refreshed", "is_open", isOpen, "previous", rec.IsOpen)

	if isOpen != rec.IsOpen {
		event := events.StatusChanged{
			ServiceID: rec.ID,
			Name:      rec.Name,
			Previous:  rec.IsOpen,
			IsOpen:    isOpen,
			CheckedAt: checked,
		}
		publishCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		err := s.publisher.PublishStatusChanged(publishCtx, event)
		cancel()
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish status change", "error", err)
		}
	}

	return refreshed, OutcomeRefreshed
}
