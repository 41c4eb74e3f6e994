// Package compliance contains the application services of the compliance
// engine: deadline calendar math, severity classification, clause extraction,
// deadline and notice lifecycles, scoring, trigger handling, alert fan-out,
// and compliance search.
package compliance

import (
	"context"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Federal holidays (US, observed) 2025-2027
// ---------------------------------------------------------------------------

var federalHolidays = map[int][]time.Time{
	2025: {
		day(2025, 1, 1),   // New Year's Day
		day(2025, 1, 20),  // MLK Jr. Day
		day(2025, 2, 17),  // Presidents' Day
		day(2025, 5, 26),  // Memorial Day
		day(2025, 6, 19),  // Juneteenth
		day(2025, 7, 4),   // Independence Day
		day(2025, 9, 1),   // Labor Day
		day(2025, 10, 13), // Columbus Day
		day(2025, 11, 11), // Veterans Day
		day(2025, 11, 27), // Thanksgiving
		day(2025, 12, 25), // Christmas
	},
	2026: {
		day(2026, 1, 1),
		day(2026, 1, 19),
		day(2026, 2, 16),
		day(2026, 5, 25),
		day(2026, 6, 19),
		day(2026, 7, 3), // Independence Day (observed)
		day(2026, 9, 7),
		day(2026, 10, 12),
		day(2026, 11, 11),
		day(2026, 11, 26),
		day(2026, 12, 25),
	},
	2027: {
		day(2027, 1, 1),
		day(2027, 1, 18),
		day(2027, 2, 15),
		day(2027, 5, 31),
		day(2027, 6, 18), // Juneteenth (observed)
		day(2027, 7, 5),  // Independence Day (observed)
		day(2027, 9, 6),
		day(2027, 10, 11),
		day(2027, 11, 11),
		day(2027, 11, 25),
		day(2027, 12, 24), // Christmas (observed)
	},
}

// FederalHolidays returns the observed US federal holidays for a year.
// Years outside the compiled table return an empty slice.
func FederalHolidays(year int) []time.Time {
	return federalHolidays[year]
}

// ---------------------------------------------------------------------------
// Holiday set and pure date arithmetic
// ---------------------------------------------------------------------------

// HolidaySet is a set of non-working dates keyed by start-of-day UTC.
type HolidaySet map[time.Time]struct{}

// NewHolidaySet builds a set from the given dates, normalizing each to
// start of day UTC.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	h := make(HolidaySet, len(dates))
	for _, d := range dates {
		h[dateOnly(d)] = struct{}{}
	}
	return h
}

// Add inserts a date into the set.
func (h HolidaySet) Add(d time.Time) {
	h[dateOnly(d)] = struct{}{}
}

// Contains reports whether the set holds the given date.
func (h HolidaySet) Contains(d time.Time) bool {
	_, ok := h[dateOnly(d)]
	return ok
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func IsBusinessDay(d time.Time, holidays HolidaySet) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !holidays.Contains(d)
}

// AddCalendarDays returns d plus n calendar days.
func AddCalendarDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// AddBusinessDays walks forward from d counting only business days until n
// have elapsed.  n = 0 returns d unchanged; negative n is rejected.
func AddBusinessDays(d time.Time, n int, holidays HolidaySet) (time.Time, error) {
	if n < 0 {
		return time.Time{}, errors.InvalidParam("business day count must not be negative")
	}
	current := dateOnly(d)
	remaining := n
	for remaining > 0 {
		current = current.AddDate(0, 0, 1)
		if IsBusinessDay(current, holidays) {
			remaining--
		}
	}
	return current, nil
}

// AddHours returns t plus n hours with no weekend or holiday adjustment.
func AddHours(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Hour)
}

// CountBusinessDaysBetween counts business days in (start, end].
func CountBusinessDaysBetween(start, end time.Time, holidays HolidaySet) int {
	count := 0
	current := dateOnly(start)
	end = dateOnly(end)
	for current.Before(end) {
		current = current.AddDate(0, 0, 1)
		if IsBusinessDay(current, holidays) {
			count++
		}
	}
	return count
}

// EndOfDayUTC returns 23:59:59 UTC on the calendar date of d.
func EndOfDayUTC(d time.Time) time.Time {
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
}

// ComputeDeadline derives a deadline from a trigger time and clause terms
// against a fixed holiday set.  Day-granular types land on end of day UTC;
// HOURS is exact from the trigger instant.
func ComputeDeadline(triggeredAt time.Time, days int, typ domain.DeadlinePeriodType, holidays HolidaySet) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, errors.New(errors.ErrCodeDeadlineTypeInvalid, "deadline days must be positive")
	}
	switch typ {
	case domain.PeriodBusinessDays:
		d, err := AddBusinessDays(triggeredAt, days, holidays)
		if err != nil {
			return time.Time{}, err
		}
		return EndOfDayUTC(d), nil
	case domain.PeriodHours:
		return AddHours(triggeredAt.UTC(), days), nil
	case domain.PeriodCalendarDays:
		return EndOfDayUTC(AddCalendarDays(dateOnly(triggeredAt), days)), nil
	default:
		return time.Time{}, errors.New(errors.ErrCodeDeadlineTypeInvalid, "unknown deadline type: "+string(typ))
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// Calendar service
// ---------------------------------------------------------------------------

// CalendarService resolves a project's working calendar and computes
// deadlines against it.
type CalendarService interface {
	// HolidaysInRange returns federal plus project holidays covering every
	// year touched by [start, end].
	HolidaysInRange(ctx context.Context, projectID common.ProjectID, start, end time.Time) (HolidaySet, error)

	// DeadlineFor computes a clause deadline from its trigger instant.
	DeadlineFor(ctx context.Context, projectID common.ProjectID, triggeredAt time.Time, days int, typ domain.DeadlinePeriodType) (time.Time, error)
}

type calendarService struct {
	holidayRepo domain.HolidayRepository
	logger      logging.Logger
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(holidayRepo domain.HolidayRepository, logger logging.Logger) CalendarService {
	return &calendarService{holidayRepo: holidayRepo, logger: logger.Named("calendar")}
}

func (s *calendarService) HolidaysInRange(ctx context.Context, projectID common.ProjectID, start, end time.Time) (HolidaySet, error) {
	if end.Before(start) {
		end = start
	}
	holidays := make(HolidaySet)
	for year := start.Year(); year <= end.Year(); year++ {
		for _, d := range FederalHolidays(year) {
			holidays.Add(d)
		}
	}

	projectHolidays, err := s.holidayRepo.ListInRange(ctx, projectID, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, err
	}
	for _, h := range projectHolidays {
		holidays.Add(h.Date)
	}
	return holidays, nil
}

func (s *calendarService) DeadlineFor(ctx context.Context, projectID common.ProjectID, triggeredAt time.Time, days int, typ domain.DeadlinePeriodType) (time.Time, error) {
	var holidays HolidaySet
	if typ == domain.PeriodBusinessDays {
		// A generous horizon: n business days never span more than ~3n
		// calendar days plus the holiday tail.
		horizon := dateOnly(triggeredAt).AddDate(0, 0, days*3+30)
		var err error
		holidays, err = s.HolidaysInRange(ctx, projectID, triggeredAt, horizon)
		if err != nil {
			return time.Time{}, err
		}
	}

	deadline, err := ComputeDeadline(triggeredAt, days, typ, holidays)
	if err != nil {
		return time.Time{}, err
	}

	s.logger.Debug("deadline computed",
		logging.String("project_id", string(projectID)),
		logging.String("deadline_type", string(typ)),
		logging.Int("days", days),
		logging.Time("triggered_at", triggeredAt),
		logging.Time("deadline", deadline),
	)
	return deadline, nil
}
