// Package http wires the compliance API: router, middleware chain, and
// server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/efilo-ai/compliance-engine/internal/interfaces/http/handlers"
	"github.com/efilo-ai/compliance-engine/internal/interfaces/http/middleware"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

// RouterConfig aggregates everything the router composes.
type RouterConfig struct {
	Logger logging.Logger

	ClauseHandler   *handlers.ClauseHandler
	DeadlineHandler *handlers.DeadlineHandler
	NoticeHandler   *handlers.NoticeHandler
	ScoreHandler    *handlers.ScoreHandler
	SearchHandler   *handlers.SearchHandler
	HolidayHandler  *handlers.HolidayHandler
	HealthHandler   *handlers.HealthHandler

	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter

	// GeneralLimit and SearchLimit are the per-user request budgets.
	// Both are bypassed entirely in development.
	GeneralLimit middleware.RateLimitConfig
	SearchLimit  middleware.RateLimitConfig

	CORS middleware.CORSConfig

	// MetricsHandler serves the prometheus scrape endpoint; nil disables it.
	MetricsHandler http.Handler

	// MetricsMiddleware records per-request metrics; nil disables it.
	MetricsMiddleware func(http.Handler) http.Handler
}

// NewRouter assembles the full HTTP surface.
//
// Public: /healthz, /readyz, /metrics.
// Authenticated under /api: the project-scoped compliance subtree.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.MetricsMiddleware != nil {
		r.Use(cfg.MetricsMiddleware)
	}
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))

	// Probes and scrape endpoint stay outside auth so the orchestrator and
	// prometheus can reach them.
	r.Get("/healthz", cfg.HealthHandler.Healthz)
	r.Get("/readyz", cfg.HealthHandler.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(cfg.Auth.Authenticate())
		api.Use(cfg.RateLimiter.Limit(cfg.GeneralLimit))

		api.Route("/projects/{projectID}", func(project chi.Router) {
			project.Use(middleware.ProjectScope)

			project.Route("/compliance", func(c chi.Router) {
				cfg.ClauseHandler.Routes(c)
				cfg.DeadlineHandler.Routes(c)
				cfg.NoticeHandler.Routes(c)
				cfg.ScoreHandler.Routes(c)
				cfg.HolidayHandler.Routes(c)

				// Search carries its own tighter budget on top of the
				// general one.
				c.Group(func(s chi.Router) {
					s.Use(cfg.RateLimiter.Limit(cfg.SearchLimit))
					cfg.SearchHandler.Routes(s)
				})
			})

			project.Route("/health", func(ph chi.Router) {
				cfg.HealthHandler.ProjectRoutes(ph)
			})
		})
	})

	return r
}
