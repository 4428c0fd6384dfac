package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/campuslink-server/internal/api/common"
	"github.com/campuslink/campuslink-server/internal/service"
	"github.com/campuslink/campuslink-server/internal/versions"
)

// StatusResponse is the body of the health and readiness endpoints
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.DirectoryService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	common.WriteJSONResponse(w, r, StatusResponse{Status: "healthy"}, http.StatusOK)
}

func readinessHandler(svc service.DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			common.WriteErrorResponse(w, r, "service not ready", http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, r, StatusResponse{Status: "ready"}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	common.WriteJSONResponse(w, r, versions.GetVersionInfo(), http.StatusOK)
}
