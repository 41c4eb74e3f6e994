package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

// HolidayHandler manages per-project holiday overrides.  New holidays take
// effect on the next business-day deadline calculation.
type HolidayHandler struct {
	holidays appcompliance.HolidayService
	logger   logging.Logger
}

// NewHolidayHandler creates a HolidayHandler.
func NewHolidayHandler(holidays appcompliance.HolidayService, logger logging.Logger) *HolidayHandler {
	return &HolidayHandler{
		holidays: holidays,
		logger:   logger.Named("holiday_handler"),
	}
}

// Routes mounts the handler under the project compliance subtree.
func (h *HolidayHandler) Routes(r chi.Router) {
	r.Get("/holidays", h.List)
	r.Post("/holidays", h.Add)
	r.Delete("/holidays/{holidayID}", h.Remove)
}

// List returns the project's holiday overrides.
func (h *HolidayHandler) List(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.holidays.List(r.Context(), requestProject(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, holidays)
}

type addHolidayRequest struct {
	Date        string  `json:"date"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Recurring   bool    `json:"recurring"`
}

// Add records a project holiday.  Duplicate dates surface as 409.
func (h *HolidayHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addHolidayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Name == "" {
		writeError(w, h.logger, errors.InvalidParam("name is required"))
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	holiday, err := h.holidays.Add(r.Context(), appcompliance.AddHolidayRequest{
		ProjectID:   requestProject(r),
		Date:        date,
		Name:        req.Name,
		Description: req.Description,
		Recurring:   req.Recurring,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, holiday)
}

// Remove deletes a project holiday override.
func (h *HolidayHandler) Remove(w http.ResponseWriter, r *http.Request) {
	holidayID, err := pathID(r, "holidayID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.holidays.Remove(r.Context(), requestProject(r), holidayID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
