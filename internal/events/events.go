// Package events publishes directory change notifications
package events

import (
	"context"
	"time"
)

// StatusChanged is emitted when a synchronization flips a service's open flag
type StatusChanged struct {
	ServiceID string    `json:"serviceId"`
	Name      string    `json:"name"`
	Previous  bool      `json:"previous"`
	IsOpen    bool      `json:"isOpen"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Publisher delivers events to downstream consumers
type Publisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChanged) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

// PublishStatusChanged does nothing
func (NopPublisher) PublishStatusChanged(context.Context, StatusChanged) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }
