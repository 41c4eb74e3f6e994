package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ClauseHandler serves contract parsing and the clause read/confirm surface.
type ClauseHandler struct {
	clauses appcompliance.ClauseService
	logger  logging.Logger
}

// NewClauseHandler creates a ClauseHandler.
func NewClauseHandler(clauses appcompliance.ClauseService, logger logging.Logger) *ClauseHandler {
	return &ClauseHandler{
		clauses: clauses,
		logger:  logger.Named("clause_handler"),
	}
}

// Routes mounts the handler under the project compliance subtree.
func (h *ClauseHandler) Routes(r chi.Router) {
	r.Post("/parse-contract", h.ParseContract)
	r.Get("/clauses", h.List)
	r.Get("/clauses/{clauseID}", h.Get)
	r.Patch("/clauses/{clauseID}/confirm", h.Confirm)
}

type parseContractRequest struct {
	DocumentID string `json:"documentId"`
}

type parseContractResponse struct {
	Clauses []*domain.ContractClause `json:"clauses"`
	Count   int                      `json:"count"`
}

// ParseContract runs clause extraction over one document and returns the
// extracted clauses.  Extraction replaces earlier AI results for the same
// document, so re-parsing is safe.
func (h *ClauseHandler) ParseContract(w http.ResponseWriter, r *http.Request) {
	var req parseContractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.DocumentID == "" {
		writeError(w, h.logger, errors.InvalidParam("documentId is required"))
		return
	}

	userID := requestIdentity(r)
	var actor *common.UserID
	if userID != "" {
		actor = &userID
	}

	clauses, err := h.clauses.ExtractFromDocument(r.Context(), requestProject(r), common.ID(req.DocumentID), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, parseContractResponse{Clauses: clauses, Count: len(clauses)})
}

// List returns the project's clauses, optionally filtered by kind and
// confirmation state.
func (h *ClauseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, page, pageSize := parsePagination(r)
	filter := domain.ClauseFilter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := domain.ClauseKind(raw)
		if !kind.IsValid() {
			writeError(w, h.logger, errors.InvalidParam("unknown clause kind "+raw))
			return
		}
		filter.Kind = &kind
	}
	confirmed, err := queryBool(r, "confirmed")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filter.Confirmed = confirmed
	requiresReview, err := queryBool(r, "requiresReview")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filter.RequiresReview = requiresReview

	clauses, total, err := h.clauses.List(r.Context(), requestProject(r), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, pageOf(clauses, total, page, pageSize))
}

// Get returns one clause.
func (h *ClauseHandler) Get(w http.ResponseWriter, r *http.Request) {
	clauseID, err := pathID(r, "clauseID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	clause, err := h.clauses.Get(r.Context(), requestProject(r), clauseID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, clause)
}

// Confirm marks a clause human-verified.
func (h *ClauseHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	clauseID, err := pathID(r, "clauseID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	clause, err := h.clauses.Confirm(r.Context(), requestProject(r), clauseID, requestIdentity(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, clause)
}
