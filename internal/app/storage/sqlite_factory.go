package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory/sqlite"
)

// SQLiteFactory creates a store backed by a local SQLite file
type SQLiteFactory struct {
	store sqlite.Store
	path  string
}

var _ Factory = (*SQLiteFactory)(nil)

// NewSQLiteFactory opens the configured SQLite file, creating it and its
// schema when needed.
func NewSQLiteFactory(ctx context.Context, cfg *config.Config) (*SQLiteFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path == "" {
		return nil, fmt.Errorf("sqlite configuration is required for sqlite storage type")
	}

	sc := cfg.Storage.SQLite
	slog.Info("Creating SQLite storage factory", "path", sc.Path)

	store, err := sqlite.Open(ctx, sc.Path, sqlite.Config{
		BusyTimeout:  sc.BusyTimeout,
		MaxOpenConns: sc.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	return &SQLiteFactory{store: store, path: sc.Path}, nil
}

// CreateStore returns the SQLite store
func (s *SQLiteFactory) CreateStore(context.Context) (Store, error) {
	return s.store, nil
}

// Cleanup closes the SQLite file
func (s *SQLiteFactory) Cleanup() {
	if s.store == nil {
		return
	}
	slog.Info("Closing SQLite store", "path", s.path)
	if err := s.store.Close(); err != nil {
		slog.Error("Failed to close SQLite store", "path", s.path, "error", err)
	}
}
