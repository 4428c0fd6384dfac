// Package directory defines the campus service record model and the storage
// contract shared by every directory backend.
package directory

import (
	"strings"
	"time"
)

// CategoryAll is the category value clients send to mean "no category filter".
const CategoryAll = "All"

// Location is a latitude/longitude pair in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// ServiceRecord is one campus-adjacent business or resource.
type ServiceRecord struct {
	ID          string   `json:"id" yaml:"id,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description,omitempty"`
	Address     string   `json:"address" yaml:"address,omitempty"`
	Location    Location `json:"location" yaml:"location"`

	// ExternalRef correlates the record with a Places entry. Nil means the
	// record cannot be synchronized.
	ExternalRef *string `json:"externalRef,omitempty" yaml:"externalRef,omitempty"`

	// IsOpen is the last known open/closed status.
	IsOpen bool `json:"isOpen" yaml:"isOpen,omitempty"`

	// StatusLastChecked is only ever set together with a successful fetch.
	StatusLastChecked *time.Time `json:"statusLastChecked" yaml:"statusLastChecked,omitempty"`

	Rating    float64   `json:"rating" yaml:"rating,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// HasExternalRef reports whether the record carries a usable external reference.
func (r *ServiceRecord) HasExternalRef() bool {
	return r.ExternalRef != nil && strings.TrimSpace(*r.ExternalRef) != ""
}

// Clone returns a deep copy of the record.
func (r *ServiceRecord) Clone() *ServiceRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ExternalRef != nil {
		ref := *r.ExternalRef
		c.ExternalRef = &ref
	}
	if r.StatusLastChecked != nil {
		ts := *r.StatusLastChecked
		c.StatusLastChecked = &ts
	}
	return &c
}

// Filter selects records in List. The zero value matches everything.
type Filter struct {
	// Category is matched by equality. Empty or CategoryAll matches any category.
	Category string

	// Search is a case-insensitive substring matched against name or description.
	Search string
}

// Normalize trims the filter and folds CategoryAll into "no filter".
func (f Filter) Normalize() Filter {
	f.Category = strings.TrimSpace(f.Category)
	if strings.EqualFold(f.Category, CategoryAll) {
		f.Category = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Matches reports whether the record satisfies the filter. Stores that cannot
// push the predicate down to their medium use it directly.
func (f Filter) Matches(r *ServiceRecord) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle)
}

// Update is a partial update. Nil fields are left untouched, so concurrent
// saves only race on the fields they set.
type Update struct {
	Name              *string
	Category          *string
	Description       *string
	Address           *string
	ExternalRef       *string
	IsOpen            *bool
	StatusLastChecked *time.Time
	Rating            *float64
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Category == nil && u.Description == nil && u.Address == nil &&
		u.ExternalRef == nil && u.IsOpen == nil && u.StatusLastChecked == nil && u.Rating == nil
}

// ApplyTo writes the non-nil fields of the update onto rec and stamps UpdatedAt.
func (u Update) ApplyTo(rec *ServiceRecord, now time.Time) {
	if u.Name != nil {
		rec.Name = *u.Name
	}
	if u.Category != nil {
		rec.Category = *u.Category
	}
	if u.Description != nil {
		rec.Description = *u.Description
	}
	if u.Address != nil {
		rec.Address = *u.Address
	}
	if u.ExternalRef != nil {
		ref := *u.ExternalRef
		rec.ExternalRef = &ref
	}
	if u.IsOpen != nil {
		rec.IsOpen = *u.IsOpen
	}
	if u.StatusLastChecked != nil {
		ts := *u.StatusLastChecked
		rec.StatusLastChecked = &ts
	}
	if u.Rating != nil {
		rec.Rating = *u.Rating
	}
	rec.UpdatedAt = now
}
