package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory/postgres"
)

// DefaultConnectTimeout bounds the startup connection retries when
// database.connectTimeout is not set
const DefaultConnectTimeout = 30 * time.Second

// DatabaseFactory creates a PostgreSQL-backed store.
// It owns the pgx connection pool shared by the store.
type DatabaseFactory struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	store  postgres.Store
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool and waits, with exponential backoff, until
// the database answers a ping or the connect timeout expires.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...Option) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	o := &factoryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	slog.Info("Creating database-backed storage factory",
		"host", cfg.Database.Host, "database", cfg.Database.Database)

	pool, err := buildDatabaseConnectionPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := waitForDatabase(ctx, pool, cfg.Database.ConnectTimeout); err != nil {
		pool.Close()
		return nil, err
	}

	return &DatabaseFactory{
		pool:   pool,
		tracer: o.tracer,
	}, nil
}

// CreateStore creates the PostgreSQL store on the factory's pool
func (d *DatabaseFactory) CreateStore(_ context.Context) (Store, error) {
	if d.store != nil {
		return d.store, nil
	}

	slog.Debug("Creating database-backed directory store")

	storeOpts := []postgres.Option{
		postgres.WithConnectionPool(d.pool),
	}
	if d.tracer != nil {
		storeOpts = append(storeOpts, postgres.WithTracer(d.tracer))
		slog.Debug("Database store tracing enabled")
	}

	store, err := postgres.New(storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}
	d.store = store
	return store, nil
}

// Cleanup closes the database connection pool and any active connections.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}

// buildDatabaseConnectionPool creates a database connection pool with proper configuration.
// No connection is opened until the pool is used.
func buildDatabaseConnectionPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connMaxLifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = lifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	return pool, nil
}

// waitForDatabase pings the pool until it answers. The status fetch is never
// retried; this only covers the database starting after the server.
func waitForDatabase(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, pool.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Database not reachable, retrying",
				"attempt", attempts, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	slog.Info("Database connection pool created successfully", "attempts", attempts)
	return nil
}
