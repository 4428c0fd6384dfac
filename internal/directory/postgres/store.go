// Package postgres provides a PostgreSQL implementation of the directory Store
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/otel"
)

const selectColumns = `id::text, name, category, description, address, lat, lng,
	external_ref, is_open, status_last_checked, rating, created_at, updated_at`

// options holds configuration options for the PostgreSQL store
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	now    func() time.Time
}

// Option is a functional option for configuring the PostgreSQL store
type Option func(*options) error

// WithConnectionPool sets the pgx pool. The caller is responsible for closing
// the pool when it is done.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the store.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithClock overrides the clock used to stamp updated_at
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// store implements directory.Store and directory.Seeder on PostgreSQL
type store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	now    func() time.Time
}

var (
	_ directory.Store  = (*store)(nil)
	_ directory.Seeder = (*store)(nil)
)

// Store is the concrete PostgreSQL store type returned by New
type Store interface {
	directory.Store
	directory.Seeder
}

// New creates a new PostgreSQL-backed store with the given options
func New(opts ...Option) (Store, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}

	return &store{
		pool:   o.pool,
		tracer: o.tracer,
		now:    o.now,
	}, nil
}

// Ping checks that the database is reachable
func (s *store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// GetByID returns the record with the given identifier
func (s *store) GetByID(ctx context.Context, id string) (*directory.ServiceRecord, error) {
	ctx, span := s.startSpan(ctx, "postgres.GetByID",
		trace.WithAttributes(otel.AttrServiceID.String(id)))
	defer span.End()

	key, err := directory.ParseID(id)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM services WHERE id = $1::uuid", key.String())
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("%w: %s", directory.ErrNotFound, id)
		otel.RecordError(span, err)
		return nil, err
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get service %s: %w", id, err)
	}
	return rec, nil
}

// List returns the records matching the filter ordered by name
func (s *store) List(ctx context.Context, filter directory.Filter) ([]*directory.ServiceRecord, error) {
	filter = filter.Normalize()

	ctx, span := s.startSpan(ctx, "postgres.List",
		trace.WithAttributes(
			otel.AttrServiceCategory.String(filter.Category),
			otel.AttrSearchTerm.Bool(filter.Search != ""),
		))
	defer span.End()

	query, args := buildListQuery(filter)

	slog.DebugContext(ctx, "List services query",
		"category", filter.Category,
		"search", filter.Search,
		"request_id", middleware.GetReqID(ctx))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	result := make([]*directory.ServiceRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			otel.RecordError(span, err)
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(result)))
	return result, nil
}

// Save applies the non-nil fields of the update and returns the stored record
func (s *store) Save(ctx context.Context, id string, update directory.Update) (*directory.ServiceRecord, error) {
	ctx, span := s.startSpan(ctx, "postgres.Save",
		trace.WithAttributes(otel.AttrServiceID.String(id)))
	defer span.End()

	key, err := directory.ParseID(id)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	query, args := buildUpdateQuery(key.String(), update, s.now().UTC())
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("%w: %s", directory.ErrNotFound, id)
		otel.RecordError(span, err)
		return nil, err
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to save service %s: %w", id, err)
	}
	return rec, nil
}

// Seed replaces all records inside a single transaction
func (s *store) Seed(ctx context.Context, records []*directory.ServiceRecord) (int, error) {
	ctx, span := s.startSpan(ctx, "postgres.Seed")
	defer span.End()

	now := s.now().UTC()
	batch := &pgx.Batch{}
	for _, r := range records {
		if err := directory.ValidateRecord(r); err != nil {
			otel.RecordError(span, err)
			return 0, err
		}
		id := r.ID
		if id == "" {
			id = directory.NewID()
		} else if _, err := directory.ParseID(id); err != nil {
			otel.RecordError(span, err)
			return 0, err
		}
		batch.Queue(`INSERT INTO services (id, name, category, description, address, lat, lng,
			external_ref, is_open, status_last_checked, rating, created_at, updated_at)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
			id, r.Name, r.Category, r.Description, r.Address, r.Location.Lat, r.Location.Lng,
			r.ExternalRef, r.IsOpen, r.StatusLastChecked, r.Rating, now)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM services"); err != nil {
			return fmt.Errorf("failed to clear services: %w", err)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to seed services: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return len(records), nil
}

func buildListQuery(filter directory.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, "category = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		n := strconv.Itoa(len(args))
		where = append(where, "(strpos(lower(name), lower($"+n+")) > 0 OR strpos(lower(description), lower($"+n+")) > 0)")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectColumns)
	sb.WriteString(" FROM services")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY name ASC, id ASC")
	return sb.String(), args
}

func buildUpdateQuery(id string, u directory.Update, now time.Time) (string, []any) {
	args := []any{id}
	var sets []string
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Category != nil {
		set("category", *u.Category)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Address != nil {
		set("address", *u.Address)
	}
	if u.ExternalRef != nil {
		set("external_ref", *u.ExternalRef)
	}
	if u.IsOpen != nil {
		set("is_open", *u.IsOpen)
	}
	if u.StatusLastChecked != nil {
		set("status_last_checked", *u.StatusLastChecked)
	}
	if u.Rating != nil {
		set("rating", *u.Rating)
	}
	set("updated_at", now)

	return "UPDATE services SET " + strings.Join(sets, ", ") +
		" WHERE id = $1::uuid RETURNING " + selectColumns, args
}

func scanRecord(row pgx.Row) (*directory.ServiceRecord, error) {
	var rec directory.ServiceRecord
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Category,
		&rec.Description,
		&rec.Address,
		&rec.Location.Lat,
		&rec.Location.Lng,
		&rec.ExternalRef,
		&rec.IsOpen,
		&rec.StatusLastChecked,
		&rec.Rating,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.StatusLastChecked != nil {
		ts := rec.StatusLastChecked.UTC()
		rec.StatusLastChecked = &ts
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
