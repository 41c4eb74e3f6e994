package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

func TestIsBusinessDay(t *testing.T) {
	holidays := NewHolidaySet(day(2025, 7, 4))

	assert.True(t, IsBusinessDay(day(2025, 7, 1), holidays), "Tuesday")
	assert.False(t, IsBusinessDay(day(2025, 7, 4), holidays), "holiday Friday")
	assert.False(t, IsBusinessDay(day(2025, 7, 5), holidays), "Saturday")
	assert.False(t, IsBusinessDay(day(2025, 7, 6), holidays), "Sunday")
	assert.True(t, IsBusinessDay(day(2025, 7, 7), holidays), "Monday")
}

func TestAddBusinessDays(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		n        int
		holidays HolidaySet
		want     time.Time
	}{
		{"zero returns start", day(2025, 7, 1), 0, NewHolidaySet(), day(2025, 7, 1)},
		{"friday plus one is monday", day(2025, 8, 1), 1, NewHolidaySet(), day(2025, 8, 4)},
		{"friday plus one with monday holiday is tuesday",
			day(2025, 8, 1), 1, NewHolidaySet(day(2025, 8, 4)), day(2025, 8, 5)},
		{"three business days over july 4th weekend",
			day(2025, 7, 1), 3, NewHolidaySet(day(2025, 7, 4)), day(2025, 7, 7)},
		{"mid week no holidays", day(2025, 7, 7), 2, NewHolidaySet(), day(2025, 7, 9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddBusinessDays(tt.start, tt.n, tt.holidays)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddBusinessDays_NegativeRejected(t *testing.T) {
	_, err := AddBusinessDays(day(2025, 7, 1), -1, NewHolidaySet())
	assert.Error(t, err)
}

func TestCountBusinessDaysBetween(t *testing.T) {
	holidays := NewHolidaySet(day(2025, 7, 4))

	// Round-trip with AddBusinessDays: the span must contain exactly n.
	end, err := AddBusinessDays(day(2025, 7, 1), 3, holidays)
	require.NoError(t, err)
	assert.Equal(t, 3, CountBusinessDaysBetween(day(2025, 7, 1), end, holidays))

	assert.Equal(t, 0, CountBusinessDaysBetween(day(2025, 7, 1), day(2025, 7, 1), holidays))
}

func TestComputeDeadline_BusinessDays(t *testing.T) {
	holidays := NewHolidaySet(day(2025, 7, 4))
	trigger := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	got, err := ComputeDeadline(trigger, 3, domain.PeriodBusinessDays, holidays)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 7, 23, 59, 59, 0, time.UTC), got)
}

func TestComputeDeadline_CalendarDays(t *testing.T) {
	trigger := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	got, err := ComputeDeadline(trigger, 10, domain.PeriodCalendarDays, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 11, 23, 59, 59, 0, time.UTC), got)
}

func TestComputeDeadline_HoursIgnoreWeekends(t *testing.T) {
	// Friday noon plus 24 hours is Saturday noon.
	trigger := time.Date(2025, 7, 11, 12, 0, 0, 0, time.UTC)

	got, err := ComputeDeadline(trigger, 24, domain.PeriodHours, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 12, 12, 0, 0, 0, time.UTC), got)
}

func TestComputeDeadline_Invalid(t *testing.T) {
	_, err := ComputeDeadline(time.Now(), 0, domain.PeriodCalendarDays, nil)
	assert.Error(t, err)

	_, err = ComputeDeadline(time.Now(), 3, domain.DeadlinePeriodType("FORTNIGHTS"), nil)
	assert.Error(t, err)
}

func TestFederalHolidays_ObservedDates(t *testing.T) {
	assert.Contains(t, FederalHolidays(2025), day(2025, 7, 4))
	assert.Contains(t, FederalHolidays(2026), day(2026, 7, 3), "July 4th 2026 observed Friday")
	assert.Contains(t, FederalHolidays(2027), day(2027, 7, 5), "July 4th 2027 observed Monday")
	assert.Contains(t, FederalHolidays(2027), day(2027, 12, 24), "Christmas 2027 observed Friday")
	assert.Contains(t, FederalHolidays(2027), day(2027, 6, 18), "Juneteenth 2027 observed Friday")
	assert.Empty(t, FederalHolidays(2024))
	for year := 2025; year <= 2027; year++ {
		assert.Len(t, FederalHolidays(year), 11)
	}
}

// ---------------------------------------------------------------------------
// Calendar service
// ---------------------------------------------------------------------------

type mockHolidayRepo struct {
	mock.Mock
}

func (m *mockHolidayRepo) Create(ctx context.Context, h *domain.ProjectHoliday) error {
	return m.Called(ctx, h).Error(0)
}

func (m *mockHolidayRepo) Delete(ctx context.Context, projectID common.ProjectID, id common.ID) error {
	return m.Called(ctx, projectID, id).Error(0)
}

func (m *mockHolidayRepo) List(ctx context.Context, projectID common.ProjectID) ([]*domain.ProjectHoliday, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.ProjectHoliday), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHolidayRepo) ListInRange(ctx context.Context, projectID common.ProjectID, from, to time.Time) ([]*domain.ProjectHoliday, error) {
	args := m.Called(ctx, projectID, from, to)
	if v := args.Get(0); v != nil {
		return v.([]*domain.ProjectHoliday), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCalendarService_DeadlineFor_MergesProjectHolidays(t *testing.T) {
	repo := new(mockHolidayRepo)
	// 2025-07-07 (Mon) is a project shutdown day, so the third business day
	// after 2025-07-01 slides to Tuesday the 8th.
	repo.On("ListInRange", mock.Anything, common.ProjectID("proj-1"), mock.Anything, mock.Anything).
		Return([]*domain.ProjectHoliday{
			{Date: day(2025, 7, 4), Name: "Independence Day"},
			{Date: day(2025, 7, 7), Name: "Plant shutdown"},
		}, nil)

	svc := NewCalendarService(repo, logging.NewNopLogger())
	trigger := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	got, err := svc.DeadlineFor(context.Background(), "proj-1", trigger, 3, domain.PeriodBusinessDays)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 8, 23, 59, 59, 0, time.UTC), got)
	repo.AssertExpectations(t)
}

func TestCalendarService_DeadlineFor_CalendarDaysSkipsRepo(t *testing.T) {
	repo := new(mockHolidayRepo)
	svc := NewCalendarService(repo, logging.NewNopLogger())

	got, err := svc.DeadlineFor(context.Background(), "proj-1",
		time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), 7, domain.PeriodCalendarDays)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 8, 23, 59, 59, 0, time.UTC), got)
	repo.AssertNotCalled(t, "ListInRange")
}

func TestCalendarService_HolidaysInRange_SpansYears(t *testing.T) {
	repo := new(mockHolidayRepo)
	repo.On("ListInRange", mock.Anything, common.ProjectID("proj-1"), mock.Anything, mock.Anything).
		Return(nil, nil)

	svc := NewCalendarService(repo, logging.NewNopLogger())
	set, err := svc.HolidaysInRange(context.Background(), "proj-1",
		day(2025, 12, 1), day(2026, 1, 31))
	require.NoError(t, err)

	assert.True(t, set.Contains(day(2025, 12, 25)))
	assert.True(t, set.Contains(day(2026, 1, 1)))
}
