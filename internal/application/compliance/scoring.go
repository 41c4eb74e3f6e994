package compliance

import (
	"context"
	"math"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// defaultClaimValueCents is the assumed value protected by each on-time
// notice and put at risk by each at-risk deadline when no override is
// configured: $50,000.
const defaultClaimValueCents int64 = 50_000_00

// healthWeight is this component's share of the overall project health score.
const healthWeight = 0.2

// historyPeriods maps API history ranges to snapshot granularity and point
// count.
var historyPeriods = map[string]struct {
	granularity domain.SnapshotPeriod
	points      int
}{
	"week":    {domain.PeriodDaily, 7},
	"month":   {domain.PeriodDaily, 30},
	"quarter": {domain.PeriodWeekly, 13},
	"year":    {domain.PeriodMonthly, 12},
}

// snapshotWindows maps snapshot granularity to the trailing window used for
// the notices-sent-in-period count.
var snapshotWindows = map[domain.SnapshotPeriod]time.Duration{
	domain.PeriodDaily:   24 * time.Hour,
	domain.PeriodWeekly:  7 * 24 * time.Hour,
	domain.PeriodMonthly: 30 * 24 * time.Hour,
}

// HealthComponent is the compliance slice of the overall project health
// rollup consumed by the wider platform.
type HealthComponent struct {
	Score   int            `json:"score"`
	Weight  float64        `json:"weight"`
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

// ---------------------------------------------------------------------------
// Score service
// ---------------------------------------------------------------------------

// ScoreService owns score calculation, streak tracking, history snapshots,
// and the project-health contribution.
type ScoreService interface {
	// Get returns the live score, calculating one on first access.
	Get(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error)

	// Calculate recomputes the live score from the full notice history and
	// open deadlines, and upserts it.
	Calculate(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error)

	// Snapshot recalculates the score and records a history point for today.
	// Re-running for the same (project, day, period) overwrites the point.
	Snapshot(ctx context.Context, projectID common.ProjectID, period domain.SnapshotPeriod) (*domain.ScoreSnapshot, error)

	// History returns score history for an API range: "week", "month",
	// "quarter", or "year".  A limit of 0 uses the range's natural point count.
	History(ctx context.Context, projectID common.ProjectID, period string, limit int) ([]*domain.ScoreSnapshot, error)

	// HealthComponent summarizes compliance for the project health rollup.
	HealthComponent(ctx context.Context, projectID common.ProjectID) (*HealthComponent, error)
}

type scoreService struct {
	scores          domain.ScoreRepository
	notices         domain.NoticeRepository
	deadlines       domain.DeadlineRepository
	claimValueCents int64
	logger          logging.Logger
	now             func() time.Time
}

// NewScoreService constructs a ScoreService.  A claimValueCents of zero or
// less falls back to the $50,000 default.
func NewScoreService(
	scores domain.ScoreRepository,
	notices domain.NoticeRepository,
	deadlines domain.DeadlineRepository,
	claimValueCents int64,
	logger logging.Logger,
) ScoreService {
	if claimValueCents <= 0 {
		claimValueCents = defaultClaimValueCents
	}
	return &scoreService{
		scores:          scores,
		notices:         notices,
		deadlines:       deadlines,
		claimValueCents: claimValueCents,
		logger:          logger.Named("scoring"),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *scoreService) Get(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error) {
	score, err := s.scores.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if score == nil {
		return s.Calculate(ctx, projectID)
	}
	return score, nil
}

func (s *scoreService) Calculate(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error) {
	sent, err := s.notices.ListSent(ctx, projectID)
	if err != nil {
		return nil, err
	}
	open, err := s.deadlines.ListOpen(ctx, projectID)
	if err != nil {
		return nil, err
	}

	score, err := s.scores.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if score == nil {
		score = domain.NewScore(projectID)
	}

	total := len(sent)
	onTime := 0
	for _, n := range sent {
		if n.OnTimeStatus != nil && *n.OnTimeStatus {
			onTime++
		}
	}

	if total > 0 {
		score.Score = int(math.Round(float64(onTime) / float64(total) * 100))
	} else {
		score.Score = 100
	}
	score.OnTimeCount = onTime
	score.TotalCount = total
	score.MissedCount = total - onTime

	atRisk, upcoming, active := 0, 0, 0
	for _, d := range open {
		if d.Status != domain.DeadlineActive && d.Status != domain.DeadlineNoticeDrafted {
			continue
		}
		active++
		switch d.Severity {
		case domain.SeverityCritical, domain.SeverityWarning:
			atRisk++
		case domain.SeverityLow, domain.SeverityInfo:
			upcoming++
		}
	}
	score.AtRiskCount = atRisk
	score.UpcomingCount = upcoming
	score.ActiveDeadlines = active
	score.ProtectedClaimsValueCents = int64(onTime) * s.claimValueCents
	score.AtRiskValueCents = int64(atRisk) * s.claimValueCents

	now := s.now()
	score.ApplyStreak(currentStreak(sent), now)
	score.LastCalculatedAt = now
	score.UpdatedAt = now

	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, err
	}

	s.logger.Debug("score calculated",
		logging.String("project_id", string(projectID)),
		logging.Int("score", score.Score),
		logging.Int("streak", score.CurrentStreak),
		logging.Int("at_risk", atRisk),
	)
	return score, nil
}

// currentStreak counts consecutive on-time notices from the most recent send
// backward, stopping at the first late one.  Notices arrive sorted by sentAt
// descending.
func currentStreak(sent []*domain.ComplianceNotice) int {
	streak := 0
	for _, n := range sent {
		if n.OnTimeStatus == nil || !*n.OnTimeStatus {
			break
		}
		streak++
	}
	return streak
}

func (s *scoreService) Snapshot(ctx context.Context, projectID common.ProjectID, period domain.SnapshotPeriod) (*domain.ScoreSnapshot, error) {
	if !period.IsValid() {
		return nil, errors.InvalidParam("unknown snapshot period " + string(period))
	}

	score, err := s.Calculate(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sentInPeriod, err := s.notices.CountSentSince(ctx, projectID, now.Add(-snapshotWindows[period]))
	if err != nil {
		return nil, err
	}

	snapshot := domain.SnapshotOf(score, now, period, sentInPeriod)
	if err := s.scores.UpsertSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *scoreService) History(ctx context.Context, projectID common.ProjectID, period string, limit int) ([]*domain.ScoreSnapshot, error) {
	rng, ok := historyPeriods[period]
	if !ok {
		return nil, errors.New(errors.ErrCodeHistoryPeriodInvalid,
			"unknown history period "+period+"; expected week, month, quarter, or year")
	}
	if limit <= 0 {
		limit = rng.points
	}
	if limit > 365 {
		limit = 365
	}
	return s.scores.ListSnapshots(ctx, projectID, rng.granularity, limit)
}

func (s *scoreService) HealthComponent(ctx context.Context, projectID common.ProjectID) (*HealthComponent, error) {
	score, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	component := score.Score - 5*score.AtRiskCount
	if component < 0 {
		component = 0
	}

	status := "good"
	switch {
	case score.Score < 60 || score.AtRiskCount > 5:
		status = "critical"
	case score.Score < 80 || score.AtRiskCount > 2:
		status = "warning"
	}

	percentage := 0.0
	if score.TotalCount > 0 {
		percentage = math.Round(float64(score.OnTimeCount)/float64(score.TotalCount)*1000) / 10
	}

	return &HealthComponent{
		Score:  component,
		Weight: healthWeight,
		Status: status,
		Details: map[string]any{
			"compliancePercentage": percentage,
			"onTimeCount":          score.OnTimeCount,
			"totalCount":           score.TotalCount,
			"currentStreak":        score.CurrentStreak,
			"protectedClaimsValue": score.ProtectedClaimsValueCents / 100,
			"atRiskCount":          score.AtRiskCount,
			"activeDeadlines":      score.ActiveDeadlines,
		},
	}, nil
}
