package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

// Pinger is implemented by backing stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes plus the
// project-scoped compliance health component.
type HealthHandler struct {
	scores     appcompliance.ScoreService
	dependents map[string]Pinger
	logger     logging.Logger
}

// NewHealthHandler creates a HealthHandler.  dependents maps a component
// name ("postgres", "redis") to its liveness check.
func NewHealthHandler(scores appcompliance.ScoreService, dependents map[string]Pinger, logger logging.Logger) *HealthHandler {
	return &HealthHandler{
		scores:     scores,
		dependents: dependents,
		logger:     logger.Named("health_handler"),
	}
}

// Healthz is the liveness probe: the process is up and serving.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readinessResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Readyz is the readiness probe: every backing store answers a ping within
// two seconds or the instance reports unready.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := readinessResponse{Status: "ready", Components: make(map[string]string, len(h.dependents))}
	status := http.StatusOK
	for name, pinger := range h.dependents {
		if err := pinger.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed",
				logging.String("component", name), logging.Err(err))
			resp.Components[name] = "down"
			resp.Status = "unready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "up"
	}

	writeData(w, status, resp)
}

// ProjectRoutes mounts the project-scoped health component.
func (h *HealthHandler) ProjectRoutes(r chi.Router) {
	r.Get("/compliance", h.ComplianceComponent)
}

// ComplianceComponent summarizes compliance for the project health rollup.
func (h *HealthHandler) ComplianceComponent(w http.ResponseWriter, r *http.Request) {
	component, err := h.scores.HealthComponent(r.Context(), requestProject(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, component)
}
