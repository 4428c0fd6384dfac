// Package sqlite provides a single-file SQLite implementation of the directory Store
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/campuslink/campuslink-server/internal/directory"
)

const schema = `
CREATE TABLE IF NOT EXISTS services (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	lat REAL NOT NULL CHECK(lat BETWEEN -90 AND 90),
	lng REAL NOT NULL CHECK(lng BETWEEN -180 AND 180),
	external_ref TEXT,
	is_open INTEGER NOT NULL DEFAULT 0,
	status_last_checked TEXT,
	rating REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_services_category ON services(category);
CREATE INDEX IF NOT EXISTS idx_services_name ON services(name, id);
DROP INDEX IF EXISTS idx_services_external_ref;
CREATE INDEX IF NOT EXISTS idx_services_external_ref_lookup ON services(external_ref) WHERE external_ref IS NOT NULL;
`

const selectColumns = `id, name, category, description, address, lat, lng,
	external_ref, is_open, status_last_checked, rating, created_at, updated_at`

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the recommended configuration for the directory file.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// Store is the SQLite store returned by Open. Close releases the file.
type Store interface {
	directory.Store
	directory.Seeder
	Close() error
}

type store struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*store)(nil)

// Open opens (creating when needed) the SQLite file at path and ensures the schema.
func Open(ctx context.Context, path string, cfg Config) (Store, error) {
	return open(ctx, path, cfg, time.Now)
}

func open(ctx context.Context, path string, cfg Config, now func() time.Time) (*store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}

	// PRAGMAs in the DSN apply to every connection in the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &store{db: db, now: now}, nil
}

// Close closes the database connection.
func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

func (s *store) GetByID(ctx context.Context, id string) (*directory.ServiceRecord, error) {
	key, err := directory.ParseID(id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM services WHERE id = ?", key.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	return rec, nil
}

func (s *store) List(ctx context.Context, filter directory.Filter) ([]*directory.ServiceRecord, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}

	query := "SELECT " + selectColumns + " FROM services"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	result := make([]*directory.ServiceRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		// SQLite lower() only folds ASCII, so text search runs here.
		if !filter.Matches(rec) {
			continue
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return result, nil
}

func (s *store) Save(ctx context.Context, id string, u directory.Update) (*directory.ServiceRecord, error) {
	key, err := directory.ParseID(id)
	if err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
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
		set("status_last_checked", formatTime(*u.StatusLastChecked))
	}
	if u.Rating != nil {
		set("rating", *u.Rating)
	}
	set("updated_at", formatTime(s.now()))
	args = append(args, key.String())

	query := "UPDATE services SET " + strings.Join(sets, ", ") + " WHERE id = ? RETURNING " + selectColumns
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("save service %s: %w", id, err)
	}
	return rec, nil
}

func (s *store) Seed(ctx context.Context, records []*directory.ServiceRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM services"); err != nil {
		return 0, fmt.Errorf("clear services: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO services (id, name, category, description, address, lat, lng,
		external_ref, is_open, status_last_checked, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()

	now := formatTime(s.now())
	for _, r := range records {
		if err := directory.ValidateRecord(r); err != nil {
			return 0, err
		}
		id := r.ID
		if id == "" {
			id = directory.NewID()
		} else {
			parsed, err := directory.ParseID(id)
			if err != nil {
				return 0, err
			}
			id = parsed.String()
		}

		var checked sql.NullString
		if r.StatusLastChecked != nil {
			checked = sql.NullString{String: formatTime(*r.StatusLastChecked), Valid: true}
		}
		var ref sql.NullString
		if r.ExternalRef != nil {
			ref = sql.NullString{String: *r.ExternalRef, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, id, r.Name, r.Category, r.Description, r.Address,
			r.Location.Lat, r.Location.Lng, ref, r.IsOpen, checked, r.Rating, now, now); err != nil {
			return 0, fmt.Errorf("insert service %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(records), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*directory.ServiceRecord, error) {
	var (
		rec                  directory.ServiceRecord
		ref, checked         sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Category,
		&rec.Description,
		&rec.Address,
		&rec.Location.Lat,
		&rec.Location.Lng,
		&ref,
		&rec.IsOpen,
		&checked,
		&rec.Rating,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ref.Valid {
		rec.ExternalRef = &ref.String
	}
	if checked.Valid {
		ts, err := parseTime(checked.String)
		if err != nil {
			return nil, fmt.Errorf("status_last_checked: %w", err)
		}
		rec.StatusLastChecked = &ts
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
