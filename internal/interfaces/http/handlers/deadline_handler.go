package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// DeadlineHandler serves the deadline listing, manual triggers, and waivers.
type DeadlineHandler struct {
	deadlines appcompliance.DeadlineService
	logger    logging.Logger
}

// NewDeadlineHandler creates a DeadlineHandler.
func NewDeadlineHandler(deadlines appcompliance.DeadlineService, logger logging.Logger) *DeadlineHandler {
	return &DeadlineHandler{
		deadlines: deadlines,
		logger:    logger.Named("deadline_handler"),
	}
}

// Routes mounts the handler under the project compliance subtree.
func (h *DeadlineHandler) Routes(r chi.Router) {
	r.Get("/deadlines", h.List)
	r.Post("/deadlines", h.Create)
	r.Get("/deadlines/{deadlineID}", h.Get)
	r.Post("/deadlines/{deadlineID}/waive", h.Waive)
}

// List returns deadlines with clause display fields, filtered by status and
// severity.
func (h *DeadlineHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, page, pageSize := parsePagination(r)
	filter := domain.DeadlineFilter{Limit: limit, Offset: offset}

	for _, raw := range queryCSV(r, "status") {
		status := domain.DeadlineStatus(raw)
		if !status.IsValid() {
			writeError(w, h.logger, errors.InvalidParam("unknown deadline status "+raw))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range queryCSV(r, "severity") {
		severity := domain.Severity(raw)
		if !severity.IsValid() {
			writeError(w, h.logger, errors.InvalidParam("unknown severity "+raw))
			return
		}
		filter.Severities = append(filter.Severities, severity)
	}

	deadlines, total, err := h.deadlines.List(r.Context(), requestProject(r), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, pageOf(deadlines, total, page, pageSize))
}

type createDeadlineRequest struct {
	ClauseID           string  `json:"clauseId"`
	TriggerEventType   string  `json:"triggerEventType"`
	TriggerEventID     *string `json:"triggerEventId,omitempty"`
	TriggerDescription string  `json:"triggerDescription"`
	TriggeredAt        string  `json:"triggeredAt,omitempty"`
	Timezone           string  `json:"timezone,omitempty"`
}

// Create makes a deadline from a manual trigger.  Omitting triggeredAt uses
// the current time.
func (h *DeadlineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeadlineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.ClauseID == "" {
		writeError(w, h.logger, errors.InvalidParam("clauseId is required"))
		return
	}
	eventType := domain.TriggerEventType(req.TriggerEventType)
	if !eventType.IsValid() {
		writeError(w, h.logger, errors.InvalidParam("unknown triggerEventType "+req.TriggerEventType))
		return
	}

	triggeredAt := time.Now().UTC()
	if req.TriggeredAt != "" {
		t, err := parseDate("triggeredAt", req.TriggeredAt)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		triggeredAt = t
	}

	userID := requestIdentity(r)
	var triggeredBy *common.UserID
	if userID != "" {
		triggeredBy = &userID
	}

	deadline, err := h.deadlines.Create(r.Context(), appcompliance.CreateDeadlineRequest{
		ProjectID:          requestProject(r),
		ClauseID:           common.ID(req.ClauseID),
		TriggerEventType:   eventType,
		TriggerEventID:     req.TriggerEventID,
		TriggerDescription: req.TriggerDescription,
		TriggeredAt:        triggeredAt,
		TriggeredBy:        triggeredBy,
		Timezone:           req.Timezone,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, deadline)
}

// Get returns one deadline.
func (h *DeadlineHandler) Get(w http.ResponseWriter, r *http.Request) {
	deadlineID, err := pathID(r, "deadlineID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	deadline, err := h.deadlines.Get(r.Context(), requestProject(r), deadlineID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, deadline)
}

type waiveDeadlineRequest struct {
	Reason string `json:"reason"`
}

// Waive retires a deadline with a reason.
func (h *DeadlineHandler) Waive(w http.ResponseWriter, r *http.Request) {
	deadlineID, err := pathID(r, "deadlineID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req waiveDeadlineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Reason == "" {
		writeError(w, h.logger, errors.InvalidParam("reason is required"))
		return
	}

	deadline, err := h.deadlines.Waive(r.Context(), requestProject(r), deadlineID, requestIdentity(r), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, deadline)
}
