package compliance

import (
	"context"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// AddHolidayRequest creates one project-specific non-working day.
type AddHolidayRequest struct {
	ProjectID   common.ProjectID
	Date        time.Time
	Name        string
	Description *string
	Recurring   bool
}

// HolidayService manages project holidays layered on the federal table.
// Business-day deadline arithmetic picks these up immediately.
type HolidayService interface {
	Add(ctx context.Context, req AddHolidayRequest) (*domain.ProjectHoliday, error)
	Remove(ctx context.Context, projectID common.ProjectID, holidayID common.ID) error
	List(ctx context.Context, projectID common.ProjectID) ([]*domain.ProjectHoliday, error)
}

type holidayService struct {
	holidays domain.HolidayRepository
	logger   logging.Logger
}

// NewHolidayService constructs a HolidayService.
func NewHolidayService(holidays domain.HolidayRepository, logger logging.Logger) HolidayService {
	return &holidayService{
		holidays: holidays,
		logger:   logger.Named("holidays"),
	}
}

func (s *holidayService) Add(ctx context.Context, req AddHolidayRequest) (*domain.ProjectHoliday, error) {
	holiday, err := domain.NewHoliday(req.ProjectID, req.Date, req.Name)
	if err != nil {
		return nil, err
	}
	holiday.Description = req.Description
	holiday.Recurring = req.Recurring

	if err := s.holidays.Create(ctx, holiday); err != nil {
		return nil, err
	}

	s.logger.Info("project holiday added",
		logging.String("project_id", string(req.ProjectID)),
		logging.Time("date", holiday.Date),
		logging.String("name", holiday.Name),
	)
	return holiday, nil
}

func (s *holidayService) Remove(ctx context.Context, projectID common.ProjectID, holidayID common.ID) error {
	return s.holidays.Delete(ctx, projectID, holidayID)
}

func (s *holidayService) List(ctx context.Context, projectID common.ProjectID) ([]*domain.ProjectHoliday, error) {
	return s.holidays.List(ctx, projectID)
}
