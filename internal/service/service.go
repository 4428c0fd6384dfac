// Package service provides the business logic for the campus directory API
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/freshness"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go DirectoryService

// DirectoryService defines the interface for directory read operations
type DirectoryService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// ListServices returns the records matching the options, without refreshing their status
	ListServices(ctx context.Context, opts ...Option[ListServicesOptions]) ([]*directory.ServiceRecord, error)

	// GetService returns one record with its open status refreshed when stale
	GetService(ctx context.Context, id string) (*directory.ServiceRecord, error)
}

// StatusSynchronizer refreshes a record's open status on read
type StatusSynchronizer interface {
	Sync(ctx context.Context, rec *directory.ServiceRecord) (*directory.ServiceRecord, freshness.Outcome)
}

// Option is a function that sets an option for a service operation
type Option[T ListServicesOptions] func(*T) error

// ListServicesOptions is the options for the ListServices operation
type ListServicesOptions struct {
	Category string
	Search   string
}

// Filter converts the options to a directory filter
func (o ListServicesOptions) Filter() directory.Filter {
	return directory.Filter{Category: o.Category, Search: o.Search}.Normalize()
}

// WithCategory restricts ListServices to one category. "All" matches every category.
func WithCategory(category string) Option[ListServicesOptions] {
	return func(o *ListServicesOptions) error {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("invalid category: %q", category)
		}
		o.Category = category
		return nil
	}
}

// WithSearch sets the search text for the ListServices operation
func WithSearch(search string) Option[ListServicesOptions] {
	return func(o *ListServicesOptions) error {
		if strings.TrimSpace(search) == "" {
			return fmt.Errorf("invalid search: %q", search)
		}
		o.Search = search
		return nil
	}
}
