package app

import (
	"github.com/campuslink/campuslink-server/internal/app/storage"
	"github.com/campuslink/campuslink-server/internal/events"
	"github.com/campuslink/campuslink-server/internal/freshness"
	"github.com/campuslink/campuslink-server/internal/service"
	"github.com/campuslink/campuslink-server/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store is the directory backend selected by storage.type
	Store storage.Store

	// Synchronizer refreshes stale open/closed status on reads
	Synchronizer *freshness.Synchronizer

	// DirectoryService provides directory business logic
	DirectoryService service.DirectoryService

	// Publisher receives status change events
	Publisher events.Publisher

	// Telemetry holds the tracer and meter providers
	Telemetry *telemetry.Telemetry
}
