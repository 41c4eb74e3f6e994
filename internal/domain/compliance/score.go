package compliance

import (
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// ComplianceScore entity
// ─────────────────────────────────────────────────────────────────────────────

// ComplianceScore is the single live scorecard for a project.  Exactly one
// row exists per project; every recalculation overwrites it in place.
type ComplianceScore struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`

	// Score is round(onTime/total*100); 100 when no notices have been sent.
	Score int `json:"score"`

	OnTimeCount int `json:"onTimeCount"`
	TotalCount  int `json:"totalCount"`
	MissedCount int `json:"missedCount"`

	// AtRiskCount counts open deadlines at CRITICAL or WARNING severity;
	// UpcomingCount counts open deadlines at LOW or INFO.
	AtRiskCount     int `json:"atRiskCount"`
	ActiveDeadlines int `json:"activeDeadlines"`
	UpcomingCount   int `json:"upcomingCount"`

	// CurrentStreak is the run of consecutive on-time notices ending at the
	// most recent send.  BestStreak only ever grows.
	CurrentStreak  int        `json:"currentStreak"`
	BestStreak     int        `json:"bestStreak"`
	StreakBrokenAt *time.Time `json:"streakBrokenAt,omitempty"`

	// Monetary rollups in cents.
	ProtectedClaimsValueCents int64 `json:"protectedClaimsValueCents"`
	AtRiskValueCents          int64 `json:"atRiskValueCents"`

	LastCalculatedAt time.Time `json:"lastCalculatedAt"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewScore returns the initial scorecard for a project with no notice history.
func NewScore(projectID common.ProjectID) *ComplianceScore {
	now := time.Now().UTC()
	return &ComplianceScore{
		ID:               common.NewID(),
		ProjectID:        projectID,
		Score:            100,
		LastCalculatedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ApplyStreak updates the streak fields from a freshly computed current
// streak.  BestStreak never decreases; StreakBrokenAt is stamped only when a
// previously non-zero streak drops.
func (s *ComplianceScore) ApplyStreak(newStreak int, now time.Time) {
	if newStreak > s.BestStreak {
		s.BestStreak = newStreak
	}
	if newStreak < s.CurrentStreak && s.CurrentStreak > 0 {
		now = now.UTC()
		s.StreakBrokenAt = &now
	}
	s.CurrentStreak = newStreak
}

// ─────────────────────────────────────────────────────────────────────────────
// ScoreSnapshot entity
// ─────────────────────────────────────────────────────────────────────────────

// SnapshotPeriod is the aggregation granularity of a score snapshot.
type SnapshotPeriod string

const (
	PeriodDaily   SnapshotPeriod = "daily"
	PeriodWeekly  SnapshotPeriod = "weekly"
	PeriodMonthly SnapshotPeriod = "monthly"
)

// IsValid reports whether p is a recognized snapshot period.
func (p SnapshotPeriod) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// ScoreSnapshot is a historical point on the score timeline, unique per
// (project, snapshot date, period).  Re-running a snapshot job for the same
// key upserts rather than duplicates.
type ScoreSnapshot struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`

	// SnapshotDate is start of day UTC.
	SnapshotDate time.Time      `json:"snapshotDate"`
	PeriodType   SnapshotPeriod `json:"periodType"`

	Score                     int   `json:"score"`
	OnTimeCount               int   `json:"onTimeCount"`
	TotalCount                int   `json:"totalCount"`
	CurrentStreak             int   `json:"currentStreak"`
	ProtectedClaimsValueCents int64 `json:"protectedClaimsValueCents"`

	// NoticesSentInPeriod counts sends in the trailing window: 24h for daily
	// snapshots, 7d for weekly.
	NoticesSentInPeriod int `json:"noticesSentInPeriod"`

	CreatedAt time.Time `json:"createdAt"`
}

// SnapshotOf captures the live score as a snapshot for the given date and
// period.  SnapshotDate is normalized to start of day UTC.
func SnapshotOf(score *ComplianceScore, date time.Time, period SnapshotPeriod, noticesSent int) *ScoreSnapshot {
	date = date.UTC()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return &ScoreSnapshot{
		ID:                        common.NewID(),
		ProjectID:                 score.ProjectID,
		SnapshotDate:              day,
		PeriodType:                period,
		Score:                     score.Score,
		OnTimeCount:               score.OnTimeCount,
		TotalCount:                score.TotalCount,
		CurrentStreak:             score.CurrentStreak,
		ProtectedClaimsValueCents: score.ProtectedClaimsValueCents,
		NoticesSentInPeriod:       noticesSent,
		CreatedAt:                 time.Now().UTC(),
	}
}
