package helpers

import (
	"context"
	"sync"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/events"
)

// Fixed identifiers of the records returned by CreateTestRecords
const (
	CanteenID  = "7c0b0d52-3f7e-4c8e-9d1a-0f6b1c2d3e01"
	XeroxID    = "7c0b0d52-3f7e-4c8e-9d1a-0f6b1c2d3e02"
	PharmacyID = "7c0b0d52-3f7e-4c8e-9d1a-0f6b1c2d3e03"
	LibraryID  = "7c0b0d52-3f7e-4c8e-9d1a-0f6b1c2d3e04"

	CanteenPlaceID  = "ChIJcanteen"
	XeroxPlaceID    = "ChIJxerox"
	PharmacyPlaceID = "ChIJpharmacy"
)

func ref(s string) *string {
	return &s
}

// CreateTestRecords returns a small directory. Every record except the
// library is linked to a place.
func CreateTestRecords() []*directory.ServiceRecord {
	return []*directory.ServiceRecord{
		{
			ID:          CanteenID,
			Name:        "Campus Canteen",
			Category:    "Food",
			Description: "Multi-cuisine student hub",
			Location:    directory.Location{Lat: 22.5576984, Lng: 88.3939082},
			ExternalRef: ref(CanteenPlaceID),
		},
		{
			ID:          XeroxID,
			Name:        "Maa Xerox",
			Category:    "Stationery Store",
			Description: "Printing and binding",
			Location:    directory.Location{Lat: 22.5581, Lng: 88.3944},
			ExternalRef: ref(XeroxPlaceID),
		},
		{
			ID:          PharmacyID,
			Name:        "Apollo Pharmacy",
			Category:    "Pharmacy",
			Description: "Open late for students",
			Location:    directory.Location{Lat: 22.5569, Lng: 88.3951},
			ExternalRef: ref(PharmacyPlaceID),
		},
		{
			ID:          LibraryID,
			Name:        "Central Library",
			Category:    "Study",
			Description: "Quiet reading rooms",
			Location:    directory.Location{Lat: 22.5590, Lng: 88.3930},
		},
	}
}

// RecordingPublisher collects status change events in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.StatusChanged
}

// PublishStatusChanged records the event
func (p *RecordingPublisher) PublishStatusChanged(_ context.Context, event events.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Close is a no-op
func (*RecordingPublisher) Close() error {
	return nil
}

// Events returns a copy of the recorded events
func (p *RecordingPublisher) Events() []events.StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.StatusChanged(nil), p.events...)
}
