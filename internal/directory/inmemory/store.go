// Package inmemory provides an in-memory implementation of the directory Store
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/campuslink/campuslink-server/internal/directory"
)

// store implements directory.Store and directory.Seeder on a map
type store struct {
	mu      sync.RWMutex // Protects records
	records map[string]*directory.ServiceRecord
	now     func() time.Time
}

var (
	_ directory.Store  = (*store)(nil)
	_ directory.Seeder = (*store)(nil)
)

// Option is a functional option for configuring the in-memory store
type Option func(*store)

// WithClock overrides the clock used to stamp CreatedAt and UpdatedAt
func WithClock(now func() time.Time) Option {
	return func(s *store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the concrete in-memory store type returned by New
type Store interface {
	directory.Store
	directory.Seeder
}

// New creates an empty in-memory store
func New(opts ...Option) Store {
	s := &store{
		records: make(map[string]*directory.ServiceRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetByID returns a copy of the stored record
func (s *store) GetByID(_ context.Context, id string) (*directory.ServiceRecord, error) {
	key, err := directory.ParseID(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// List returns copies of the matching records sorted by name
func (s *store) List(_ context.Context, filter directory.Filter) ([]*directory.ServiceRecord, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	result := make([]*directory.ServiceRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Matches(rec) {
			result = append(result, rec.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b *directory.ServiceRecord) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return result, nil
}

// Save applies the update in place under the write lock
func (s *store) Save(_ context.Context, id string, update directory.Update) (*directory.ServiceRecord, error) {
	key, err := directory.ParseID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, id)
	}
	update.ApplyTo(rec, s.now().UTC())
	return rec.Clone(), nil
}

// Ping always succeeds
func (*store) Ping(context.Context) error {
	return nil
}

// Seed replaces all records
func (s *store) Seed(_ context.Context, records []*directory.ServiceRecord) (int, error) {
	now := s.now().UTC()
	next := make(map[string]*directory.ServiceRecord, len(records))

	for _, r := range records {
		if err := directory.ValidateRecord(r); err != nil {
			return 0, err
		}
		rec := r.Clone()
		if rec.ID == "" {
			rec.ID = directory.NewID()
		} else {
			parsed, err := directory.ParseID(rec.ID)
			if err != nil {
				return 0, err
			}
			rec.ID = parsed.String()
		}
		if _, dup := next[rec.ID]; dup {
			return 0, fmt.Errorf("duplicate record id %s", rec.ID)
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		next[rec.ID] = rec
	}

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()

	return len(next), nil
}
