// Package v1 provides the REST handlers for the campus services directory.
package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campuslink/campuslink-server/internal/api/common"
	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/service"
)

// ListServicesResponse is the body of GET /services
type ListServicesResponse struct {
	Services []*directory.ServiceRecord `json:"services"`
	Count    int                        `json:"count"`
}

// Routes holds the handlers for the services API
type Routes struct {
	service service.DirectoryService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.DirectoryService) *Routes {
	return &Routes{service: svc}
}

// Router creates a router for the services API
func Router(svc service.DirectoryService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()
	r.Get("/services", routes.listServices)
	r.Get("/services/{id}", routes.getService)

	return r
}

// listServices handles GET /api/services?category=&search=
//
// Listing never refreshes open status; clients fetch a single service to get
// a synchronized record.
func (rr *Routes) listServices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var opts []service.Option[service.ListServicesOptions]
	if category := strings.TrimSpace(query.Get("category")); category != "" {
		opts = append(opts, service.WithCategory(category))
	}
	if search := strings.TrimSpace(query.Get("search")); search != "" {
		opts = append(opts, service.WithSearch(search))
	}

	records, err := rr.service.ListServices(r.Context(), opts...)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list services",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		common.WriteErrorResponse(w, r, "failed to list services", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*directory.ServiceRecord{}
	}

	common.WriteJSONResponse(w, r, ListServicesResponse{Services: records, Count: len(records)}, http.StatusOK)
}

// getService handles GET /api/services/{id}
func (rr *Routes) getService(w http.ResponseWriter, r *http.Request) {
	id, err := common.PathParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := rr.service.GetService(r.Context(), id)
	switch {
	case err == nil:
		common.WriteJSONResponse(w, r, rec, http.StatusOK)
	case errors.Is(err, directory.ErrInvalidIdentifier):
		common.WriteErrorResponse(w, r, "invalid service id", http.StatusBadRequest)
	case errors.Is(err, directory.ErrNotFound):
		common.WriteErrorResponse(w, r, "service not found", http.StatusNotFound)
	default:
		slog.ErrorContext(r.Context(), "Failed to get service",
			"service_id", id,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		common.WriteErrorResponse(w, r, "failed to get service", http.StatusInternalServerError)
	}
}
