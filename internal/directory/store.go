package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record exists for an identifier
	ErrNotFound = errors.New("service not found")
	// ErrInvalidIdentifier is returned when an identifier is not well formed
	ErrInvalidIdentifier = errors.New("invalid service identifier")
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store provides durable storage and retrieval of service records
type Store interface {
	// GetByID returns the record with the given identifier
	GetByID(ctx context.Context, id string) (*ServiceRecord, error)

	// List returns the records matching the filter, ordered by name ascending
	List(ctx context.Context, filter Filter) ([]*ServiceRecord, error)

	// Save applies a partial update to an existing record and returns the stored result
	Save(ctx context.Context, id string, update Update) (*ServiceRecord, error)

	// Ping checks that the backing medium is reachable
	Ping(ctx context.Context) error
}

// Seeder replaces the whole collection. It is used by administrative seeding only.
type Seeder interface {
	// Seed removes every existing record and inserts the given ones, returning
	// the number of inserted records. Records without an ID get a new one.
	Seed(ctx context.Context, records []*ServiceRecord) (int, error)
}

// ParseID validates a record identifier and returns its canonical form.
func ParseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return parsed, nil
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidateRecord checks the fields a record needs before it can be stored.
func ValidateRecord(r *ServiceRecord) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record name is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("record %q: category is required", r.Name)
	}
	if r.Location.Lat < -90 || r.Location.Lat > 90 {
		return fmt.Errorf("record %q: latitude %f out of range", r.Name, r.Location.Lat)
	}
	if r.Location.Lng < -180 || r.Location.Lng > 180 {
		return fmt.Errorf("record %q: longitude %f out of range", r.Name, r.Location.Lng)
	}
	return nil
}
