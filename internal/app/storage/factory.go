// Package storage creates the directory backend selected by configuration.
// Each factory owns the resources behind the store it returns and releases
// them in Cleanup.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/directory/inmemory"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Store is what every backend provides: the read/update surface used by the
// API and the replace-all surface used by seeding.
type Store interface {
	directory.Store
	directory.Seeder
}

// Factory creates a directory store and manages the lifecycle of its
// storage resources (connection pools, open files).
type Factory interface {
	// CreateStore returns the store backed by this factory's medium.
	// Repeated calls return the same store.
	CreateStore(ctx context.Context) (Store, error)

	// Cleanup releases any resources held by this factory.
	// Should be called when the application shuts down.
	Cleanup()
}

// Option configures a factory
type Option func(*factoryOptions)

type factoryOptions struct {
	tracer trace.Tracer
}

// WithTracer sets the OpenTelemetry tracer for backends that emit spans.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *factoryOptions) {
		o.tracer = tracer
	}
}

// NewStorageFactory creates a storage factory based on the configured storage type.
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...Option) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Storage.Type {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StorageTypeSQLite:
		return NewSQLiteFactory(ctx, cfg)
	case config.StorageTypeMemory, "":
		return NewMemoryFactory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// MemoryFactory keeps records in process memory. Nothing survives a restart.
type MemoryFactory struct {
	store inmemory.Store
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a factory for an empty in-memory store
func NewMemoryFactory() *MemoryFactory {
	slog.Info("Creating in-memory storage factory")
	return &MemoryFactory{store: inmemory.New()}
}

// CreateStore returns the in-memory store
func (m *MemoryFactory) CreateStore(context.Context) (Store, error) {
	return m.store, nil
}

// Cleanup is a no-op
func (*MemoryFactory) Cleanup() {}
