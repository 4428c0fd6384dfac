// Package api provides the REST API server for the campus services directory.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/campuslink/campuslink-server/internal/api/common"
	"github.com/campuslink/campuslink-server/internal/api/middleware"
	v1 "github.com/campuslink/campuslink-server/internal/api/v1"
	"github.com/campuslink/campuslink-server/internal/service"
)

// DefaultRequestTimeout bounds every request, including a status refresh
const DefaultRequestTimeout = 30 * time.Second

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	requestTimeout time.Duration
	rateLimit      middleware.RateLimitConfig
	middlewares    []func(http.Handler) http.Handler
}

// WithMiddlewares adds middleware to the server, after the built-in chain
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithRequestTimeout overrides DefaultRequestTimeout
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(cfg *serverConfig) {
		if timeout > 0 {
			cfg.requestTimeout = timeout
		}
	}
}

// WithRateLimit limits /api routes per client. A disabled config is ignored.
func WithRateLimit(rl middleware.RateLimitConfig) ServerOption {
	return func(cfg *serverConfig) {
		cfg.rateLimit = rl
	}
}

// NewServer creates and configures the HTTP router with the given service and options
func NewServer(svc service.DirectoryService, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.Recoverer,
		chimw.Timeout(cfg.requestTimeout),
		middleware.Logging,
	)
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		common.WriteErrorResponse(w, req, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		common.WriteErrorResponse(w, req, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Mount("/", v1.HealthRouter(svc))

	r.Route("/api", func(api chi.Router) {
		if cfg.rateLimit.Enabled() {
			api.Use(middleware.RateLimit(cfg.rateLimit))
		}
		api.Mount("/", v1.Router(svc))
	})

	return r
}
