// Package database owns the Postgres schema and the tooling that migrates it.
package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator is the part of *migrate.Migrate the migrate commands drive
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

var _ Migrator = (*migrate.Migrate)(nil)

func migrationsSource() (source.Driver, error) {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	return d, nil
}

// NewFromConnectionString returns a Migrator for the Postgres database at
// connString, using the embedded migrations as its source.
func NewFromConnectionString(connString string) (Migrator, error) {
	src, err := migrationsSource()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, driverURL(connString))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// driverURL swaps the libpq scheme for the one the pgx/v5 driver registers
func driverURL(connString string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(connString, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return connString
}

// Up applies every pending migration. An up-to-date schema is not an error.
func Up(m Migrator) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Down reverts the newest steps migrations, or all of them when steps is
// zero. Asking for more steps than are applied reverts what there is.
func Down(m Migrator, steps uint) error {
	var err error
	if steps == 0 {
		err = m.Down()
	} else {
		err = m.Steps(-int(steps))
	}

	var short migrate.ErrShortLimit
	switch {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	case errors.As(err, &short):
		slog.Warn("Fewer migrations applied than requested", "requested", steps, "short", short.Short)
		return nil
	default:
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
}

// CurrentVersion reports the applied schema version. An empty database is
// version zero.
func CurrentVersion(m Migrator) (uint, bool, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the migrator's source and database handles
func Close(m Migrator) error {
	srcErr, dbErr := m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLogger forwards golang-migrate progress to slog
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	slog.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrateLogger) Verbose() bool { return false }
