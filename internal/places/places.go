// Package places talks to the Google Places web service. It supplies live
// open/closed status for a place reference and resolves a free-text name near
// a coordinate into a place reference.
package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuslink/campuslink-server/internal/directory"
)

var (
	// ErrStatusUnknown is returned when Places answers but does not say whether
	// the place is open right now
	ErrStatusUnknown = errors.New("open status unknown")
	// ErrNoCandidate is returned when a text search finds no place
	ErrNoCandidate = errors.New("no matching place")
)

//go:generate mockgen -destination=mocks/mock_places.go -package=mocks -source=places.go StatusSource,PlaceFinder

// StatusSource supplies the live open/closed status for a place reference
type StatusSource interface {
	// FetchOpenStatus returns whether the place is open now. It returns
	// ErrStatusUnknown when the upstream is reachable but has no status.
	FetchOpenStatus(ctx context.Context, ref string) (bool, error)
}

// PlaceFinder resolves a free-text query near a location to a place
type PlaceFinder interface {
	// FindPlace returns the best candidate within radiusMeters of near, or
	// ErrNoCandidate.
	FindPlace(ctx context.Context, query string, near directory.Location, radiusMeters int) (*Candidate, error)
}

// Candidate is a place returned by a text search
type Candidate struct {
	PlaceID  string
	Address  string
	Location *directory.Location
}

// APIError is a non-OK status reported inside a Places response body
type APIError struct {
	Operation string
	Status    string
	Message   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places %s: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("places %s: %s: %s", e.Operation, e.Status, e.Message)
}

// Places response status codes
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusNotFound       = "NOT_FOUND"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
)
