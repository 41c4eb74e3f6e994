package compliance

import (
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// HolidaySource records where a project holiday came from.
type HolidaySource string

const (
	HolidayManual  HolidaySource = "MANUAL"
	HolidayFederal HolidaySource = "FEDERAL"
)

// ProjectHoliday is a project-specific non-working day layered on top of the
// compiled federal holiday table.  A project has at most one holiday per date.
type ProjectHoliday struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`

	// Date is start of day UTC; only the calendar date is significant.
	Date        time.Time     `json:"date"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Recurring   bool          `json:"recurring"`
	Source      HolidaySource `json:"source"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewHoliday creates a ProjectHoliday with the date normalized to start of
// day UTC.
func NewHoliday(projectID common.ProjectID, date time.Time, name string) (*ProjectHoliday, error) {
	if name == "" {
		return nil, errors.InvalidParam("holiday name must not be empty")
	}
	if date.IsZero() {
		return nil, errors.InvalidParam("holiday date must not be zero")
	}
	date = date.UTC()
	return &ProjectHoliday{
		ID:        common.NewID(),
		ProjectID: projectID,
		Date:      time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Name:      name,
		Source:    HolidayManual,
		CreatedAt: time.Now().UTC(),
	}, nil
}
