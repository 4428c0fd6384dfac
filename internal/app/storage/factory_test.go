package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory"
)

func TestNewStorageFactory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      func(t *testing.T) *config.Config
		wantType Factory
		errMsg   string
	}{
		{
			name:   "nil config",
			cfg:    func(*testing.T) *config.Config { return nil },
			errMsg: "config cannot be nil",
		},
		{
			name:     "memory",
			cfg:      func(*testing.T) *config.Config { return &config.Config{Storage: config.StorageConfig{Type: config.StorageTypeMemory}} },
			wantType: &MemoryFactory{},
		},
		{
			name:     "empty type defaults to memory",
			cfg:      func(*testing.T) *config.Config { return &config.Config{} },
			wantType: &MemoryFactory{},
		},
		{
			name: "sqlite",
			cfg: func(t *testing.T) *config.Config {
				t.Helper()
				return &config.Config{Storage: config.StorageConfig{
					Type:   config.StorageTypeSQLite,
					SQLite: &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "directory.db")},
				}}
			},
			wantType: &SQLiteFactory{},
		},
		{
			name: "sqlite without path",
			cfg: func(*testing.T) *config.Config {
				return &config.Config{Storage: config.StorageConfig{Type: config.StorageTypeSQLite}}
			},
			errMsg: "sqlite configuration is required",
		},
		{
			name: "database without section",
			cfg: func(*testing.T) *config.Config {
				return &config.Config{Storage: config.StorageConfig{Type: config.StorageTypeDatabase}}
			},
			errMsg: "database configuration is required",
		},
		{
			name: "unknown type",
			cfg: func(*testing.T) *config.Config {
				return &config.Config{Storage: config.StorageConfig{Type: "mongo"}}
			},
			errMsg: "unknown storage type: mongo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			factory, err := NewStorageFactory(context.Background(), tt.cfg(t))
			if tt.errMsg != "" {
				require.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			t.Cleanup(factory.Cleanup)
			assert.IsType(t, tt.wantType, factory)
		})
	}
}

func TestFactoriesReturnUsableStore(t *testing.T) {
	t.Parallel()

	sqliteFactory, err := NewSQLiteFactory(context.Background(), &config.Config{Storage: config.StorageConfig{
		Type:   config.StorageTypeSQLite,
		SQLite: &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "directory.db")},
	}})
	require.NoError(t, err)

	factories := map[string]Factory{
		"memory": NewMemoryFactory(),
		"sqlite": sqliteFactory,
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			t.Cleanup(factory.Cleanup)

			ctx := context.Background()
			store, err := factory.CreateStore(ctx)
			require.NoError(t, err)

			again, err := factory.CreateStore(ctx)
			require.NoError(t, err)
			assert.Same(t, store, again)

			require.NoError(t, store.Ping(ctx))
			n, err := store.Seed(ctx, []*directory.ServiceRecord{{Name: "Campus Canteen", Category: "Food"}})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			all, err := store.List(ctx, directory.Filter{})
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "Campus Canteen", all[0].Name)
		})
	}
}

func TestSQLiteFactoryCleanupIsSafeWithoutStore(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, (&SQLiteFactory{}).Cleanup)
	assert.NotPanics(t, NewMemoryFactory().Cleanup)
}
