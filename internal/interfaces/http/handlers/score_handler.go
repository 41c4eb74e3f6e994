package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

// Score history periods the API accepts.
var validHistoryPeriods = map[string]bool{
	"week":    true,
	"month":   true,
	"quarter": true,
	"year":    true,
}

// ScoreHandler serves the compliance score, its history, and recalculation.
type ScoreHandler struct {
	scores appcompliance.ScoreService
	logger logging.Logger
}

// NewScoreHandler creates a ScoreHandler.
func NewScoreHandler(scores appcompliance.ScoreService, logger logging.Logger) *ScoreHandler {
	return &ScoreHandler{
		scores: scores,
		logger: logger.Named("score_handler"),
	}
}

// Routes mounts the handler under the project compliance subtree.
func (h *ScoreHandler) Routes(r chi.Router) {
	r.Get("/score", h.Get)
	r.Get("/score/history", h.History)
	r.Post("/score/recalculate", h.Recalculate)
}

// Get returns the live score, calculating one on first access.
func (h *ScoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	score, err := h.scores.Get(r.Context(), requestProject(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, score)
}

// History returns score snapshots for a named range.
func (h *ScoreHandler) History(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	if !validHistoryPeriods[period] {
		writeDetail(w, http.StatusBadRequest, "period must be one of week, month, quarter, year")
		return
	}
	limit := queryInt(r, "limit", 0)

	history, err := h.scores.History(r.Context(), requestProject(r), period, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, history)
}

// Recalculate forces a recomputation from the full notice history.
func (h *ScoreHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	score, err := h.scores.Calculate(r.Context(), requestProject(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, score)
}
