package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SDB-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SDB-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.  Nil handlers leave their routes
// unregistered and nil middleware is skipped.
type RouterConfig struct {
	// Handlers
	ExtractionHandler *handlers.ExtractionHandler
	JobHandler        *handlers.JobHandler
	HealthHandler     *handlers.HealthHandler

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	CORSMiddleware      *middleware.CORSMiddleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// MaxBodySize caps request bodies; zero leaves them unbounded.
	MaxBodySize int64

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the complete HTTP route tree from the given configuration.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	if cfg.RateLimitMiddleware != nil {
		r.Use(cfg.RateLimitMiddleware.Handler)
	}

	// --- Public health endpoints (no auth) ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/healthz/detail", cfg.HealthHandler.Detailed)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	// Scraped from inside the cluster only.
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Handler)
		}

		registerExtractionRoutes(api, cfg.ExtractionHandler)
		registerJobRoutes(api, cfg.JobHandler)
	})

	return r
}

// registerExtractionRoutes mounts synchronous extraction, the profile list
// and stored records.
func registerExtractionRoutes(r chi.Router, h *handlers.ExtractionHandler) {
	if h == nil {
		return
	}
	r.Post("/extract", h.Extract)
	r.Get("/profiles", h.Profiles)
	r.Route("/records", func(rr chi.Router) {
		rr.Get("/", h.ListRecords)
		rr.Get("/{recordID}", h.GetRecord)
	})
}

// registerJobRoutes mounts the job intake.
func registerJobRoutes(r chi.Router, h *handlers.JobHandler) {
	if h == nil {
		return
	}
	r.Post("/jobs", h.Submit)
}

//Personal.AI order the ending
