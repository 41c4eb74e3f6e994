package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

// SearchHandler serves cross-entity compliance search.
type SearchHandler struct {
	search appcompliance.SearchService
	logger logging.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(search appcompliance.SearchService, logger logging.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger.Named("search_handler"),
	}
}

// Routes mounts the handler under the project compliance subtree.  The
// router wraps this subtree with the tighter search rate limit.
func (h *SearchHandler) Routes(r chi.Router) {
	r.Get("/search", h.Search)
}

type searchResponse struct {
	Results []appcompliance.SearchResult `json:"results"`
	Count   int                          `json:"count"`
}

// Search runs a substring search across clauses, deadlines, and notices.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, h.logger, errors.InvalidParam("q query parameter is required"))
		return
	}

	req := appcompliance.SearchRequest{
		Query: query,
		Types: queryCSV(r, "types"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.DeadlineStatus(raw)
		if !status.IsValid() {
			writeError(w, h.logger, errors.InvalidParam("unknown deadline status "+raw))
			return
		}
		req.Status = &status
	}
	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity := domain.Severity(raw)
		if !severity.IsValid() {
			writeError(w, h.logger, errors.InvalidParam("unknown severity "+raw))
			return
		}
		req.Severity = &severity
	}

	results, err := h.search.Search(r.Context(), requestProject(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if results == nil {
		results = []appcompliance.SearchResult{}
	}
	writeData(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}
