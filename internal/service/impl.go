package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/otel"
)

const (
	// ServiceTracerName is the name used for the directory service tracer
	ServiceTracerName = "github.com/campuslink/campuslink-server/service"
)

// options holds configuration options for the directory service
type options struct {
	syncer StatusSynchronizer
	tracer trace.Tracer
}

// ServiceOption is a functional option for configuring the directory service
type ServiceOption func(*options) error

// WithSynchronizer sets the status synchronizer used by GetService.
// Without one, records are returned as stored.
func WithSynchronizer(syncer StatusSynchronizer) ServiceOption {
	return func(o *options) error {
		if syncer == nil {
			return fmt.Errorf("synchronizer cannot be nil")
		}
		o.syncer = syncer
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the directory service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// directoryService implements DirectoryService on top of a directory.Store
type directoryService struct {
	store  directory.Store
	syncer StatusSynchronizer
	tracer trace.Tracer
}

var _ DirectoryService = (*directoryService)(nil)

// New creates a new directory service backed by store
func New(store directory.Store, opts ...ServiceOption) (DirectoryService, error) {
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}

	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return &directoryService{
		store:  store,
		syncer: o.syncer,
		tracer: o.tracer,
	}, nil
}

// CheckReadiness checks if the store is reachable
func (s *directoryService) CheckReadiness(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("directory store not ready: %w", err)
	}
	return nil
}

// ListServices returns the matching records
func (s *directoryService) ListServices(
	ctx context.Context,
	opts ...Option[ListServicesOptions],
) ([]*directory.ServiceRecord, error) {
	o := &ListServicesOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	filter := o.Filter()

	ctx, span := otel.StartSpan(ctx, s.tracer, "service.ListServices",
		trace.WithAttributes(
			otel.AttrServiceCategory.String(filter.Category),
			otel.AttrSearchTerm.Bool(filter.Search != ""),
		))
	defer span.End()

	records, err := s.store.List(ctx, filter)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return records, nil
}

// GetService reads one record and synchronizes its open status.
// Synchronization problems are never returned; the caller gets the best
// record available.
func (s *directoryService) GetService(ctx context.Context, id string) (*directory.ServiceRecord, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "service.GetService",
		trace.WithAttributes(otel.AttrServiceID.String(id)))
	defer span.End()

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	if s.syncer == nil {
		return rec, nil
	}

	synced, outcome := s.syncer.Sync(ctx, rec)
	slog.DebugContext(ctx, "Status synchronization finished",
		"service_id", id,
		"outcome", outcome.String(),
		"request_id", middleware.GetReqID(ctx),
	)
	if synced == nil {
		return rec, nil
	}
	return synced, nil
}
