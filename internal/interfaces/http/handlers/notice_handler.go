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

// NoticeHandler serves the notice lifecycle: drafting, editing, sending,
// and delivery confirmation.
type NoticeHandler struct {
	notices appcompliance.NoticeService
	logger  logging.Logger
}

// NewNoticeHandler creates a NoticeHandler.
func NewNoticeHandler(notices appcompliance.NoticeService, logger logging.Logger) *NoticeHandler {
	return &NoticeHandler{
		notices: notices,
		logger:  logger.Named("notice_handler"),
	}
}

// Routes mounts the handler under the project compliance subtree.
func (h *NoticeHandler) Routes(r chi.Router) {
	r.Get("/notices", h.List)
	r.Post("/notices", h.Create)
	r.Post("/notices/generate-draft", h.GenerateDraft)
	r.Get("/notices/{noticeID}", h.Get)
	r.Patch("/notices/{noticeID}", h.Update)
	r.Delete("/notices/{noticeID}", h.Delete)
	r.Post("/notices/{noticeID}/send", h.Send)
	r.Post("/notices/{noticeID}/confirm-delivery", h.ConfirmDelivery)
	r.Post("/notices/{noticeID}/regenerate", h.Regenerate)
}

// List returns notices, optionally filtered by status.
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, page, pageSize := parsePagination(r)
	filter := domain.NoticeFilter{Limit: limit, Offset: offset}

	for _, raw := range queryCSV(r, "status") {
		status := domain.NoticeStatus(raw)
		if !status.IsValid() {
			writeError(w, h.logger, errors.InvalidParam("unknown notice status "+raw))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	notices, total, err := h.notices.List(r.Context(), requestProject(r), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, pageOf(notices, total, page, pageSize))
}

type createNoticeRequest struct {
	DeadlineID     *string `json:"deadlineId,omitempty"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	RecipientName  string  `json:"recipientName"`
	RecipientEmail *string `json:"recipientEmail,omitempty"`
}

// Create makes a DRAFT notice, optionally linked to a deadline.
func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoticeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var deadlineID *common.ID
	if req.DeadlineID != nil && *req.DeadlineID != "" {
		id := common.ID(*req.DeadlineID)
		deadlineID = &id
	}

	notice, err := h.notices.Create(r.Context(), appcompliance.CreateNoticeRequest{
		ProjectID:      requestProject(r),
		DeadlineID:     deadlineID,
		Type:           req.Type,
		Title:          req.Title,
		Content:        req.Content,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		CreatedBy:      requestIdentity(r),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, notice)
}

type generateDraftRequest struct {
	DeadlineID        string `json:"deadlineId"`
	FromName          string `json:"fromName,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// GenerateDraft asks the drafting model for notice content for a deadline.
// Nothing is persisted; the client decides whether to create a notice from
// the result.
func (h *NoticeHandler) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req generateDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.DeadlineID == "" {
		writeError(w, h.logger, errors.InvalidParam("deadlineId is required"))
		return
	}

	draft, err := h.notices.GenerateDraft(r.Context(), requestProject(r), common.ID(req.DeadlineID),
		appcompliance.GenerateDraftParams{
			FromName:          req.FromName,
			AdditionalContext: req.AdditionalContext,
		})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, draft)
}

// Get returns one notice.
func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	noticeID, err := pathID(r, "noticeID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	notice, err := h.notices.Get(r.Context(), requestProject(r), noticeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, notice)
}

type updateNoticeRequest struct {
	Title          *string `json:"title,omitempty"`
	Content        *string `json:"content,omitempty"`
	RecipientName  *string `json:"recipientName,omitempty"`
	RecipientEmail *string `json:"recipientEmail,omitempty"`
}

// Update patches an editable notice; omitted fields are untouched.
func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	noticeID, err := pathID(r, "noticeID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req updateNoticeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	notice, err := h.notices.Update(r.Context(), requestProject(r), noticeID, appcompliance.UpdateNoticeRequest{
		Title:          req.Title,
		Content:        req.Content,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, notice)
}

// Delete removes a draft notice.
func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noticeID, err := pathID(r, "noticeID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.notices.Delete(r.Context(), requestProject(r), noticeID, requestIdentity(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Send emails the notice and freezes its content and on-time outcome.
func (h *NoticeHandler) Send(w http.ResponseWriter, r *http.Request) {
	noticeID, err := pathID(r, "noticeID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	notice, err := h.notices.Send(r.Context(), requestProject(r), noticeID, requestIdentity(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, notice)
}

type confirmDeliveryRequest struct {
	Method         string  `json:"method"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
	Carrier        *string `json:"carrier,omitempty"`
	DeliveredAt    *string `json:"deliveredAt,omitempty"`
	SignedBy       *string `json:"signedBy,omitempty"`
	ReceivedBy     *string `json:"receivedBy,omitempty"`
}

// ConfirmDelivery records a per-channel delivery confirmation on a sent
// notice.
func (h *NoticeHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	noticeID, err := pathID(r, "noticeID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req confirmDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Method == "" {
		writeError(w, h.logger, errors.InvalidParam("method is required"))
		return
	}

	confirm := appcompliance.ConfirmDeliveryRequest{
		Method:         req.Method,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		SignedBy:       req.SignedBy,
		ReceivedBy:     req.ReceivedBy,
		ConfirmedBy:    requestIdentity(r),
	}
	if req.DeliveredAt != nil && *req.DeliveredAt != "" {
		t, err := parseDate("deliveredAt", *req.DeliveredAt)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		confirm.DeliveredAt = &t
	}

	notice, err := h.notices.ConfirmDelivery(r.Context(), requestProject(r), noticeID, confirm)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, notice)
}

type regenerateRequest struct {
	FromName          string `json:"fromName,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Regenerate replaces an editable notice's content with a fresh AI draft.
func (h *NoticeHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	noticeID, err := pathID(r, "noticeID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req regenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	notice, err := h.notices.Regenerate(r.Context(), requestProject(r), noticeID,
		appcompliance.GenerateDraftParams{
			FromName:          req.FromName,
			AdditionalContext: req.AdditionalContext,
		})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, notice)
}
