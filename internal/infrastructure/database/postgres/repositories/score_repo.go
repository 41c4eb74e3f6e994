package repositories

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type postgresScoreRepo struct {
	baseRepo
}

// NewPostgresScoreRepo constructs the score repository.
func NewPostgresScoreRepo(conn *postgres.Connection, log logging.Logger) domain.ScoreRepository {
	return &postgresScoreRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresScoreRepo) GetByProject(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error) {
	query := `
		SELECT id, project_id, score,
		       on_time_count, total_count, missed_count,
		       at_risk_count, active_deadlines, upcoming_count,
		       current_streak, best_streak, streak_broken_at,
		       protected_claims_value_cents, at_risk_value_cents,
		       last_calculated_at, created_at, updated_at
		FROM compliance_scores
		WHERE project_id = $1`

	var s domain.ComplianceScore
	err := r.executor(ctx).QueryRowContext(ctx, query, projectID).Scan(
		&s.ID, &s.ProjectID, &s.Score,
		&s.OnTimeCount, &s.TotalCount, &s.MissedCount,
		&s.AtRiskCount, &s.ActiveDeadlines, &s.UpcomingCount,
		&s.CurrentStreak, &s.BestStreak, &s.StreakBrokenAt,
		&s.ProtectedClaimsValueCents, &s.AtRiskValueCents,
		&s.LastCalculatedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load score")
	}
	return &s, nil
}

func (r *postgresScoreRepo) Upsert(ctx context.Context, score *domain.ComplianceScore) error {
	query := `
		INSERT INTO compliance_scores (
			id, project_id, score,
			on_time_count, total_count, missed_count,
			at_risk_count, active_deadlines, upcoming_count,
			current_streak, best_streak, streak_broken_at,
			protected_claims_value_cents, at_risk_value_cents,
			last_calculated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (project_id) DO UPDATE SET
			score = EXCLUDED.score,
			on_time_count = EXCLUDED.on_time_count,
			total_count = EXCLUDED.total_count,
			missed_count = EXCLUDED.missed_count,
			at_risk_count = EXCLUDED.at_risk_count,
			active_deadlines = EXCLUDED.active_deadlines,
			upcoming_count = EXCLUDED.upcoming_count,
			current_streak = EXCLUDED.current_streak,
			best_streak = EXCLUDED.best_streak,
			streak_broken_at = EXCLUDED.streak_broken_at,
			protected_claims_value_cents = EXCLUDED.protected_claims_value_cents,
			at_risk_value_cents = EXCLUDED.at_risk_value_cents,
			last_calculated_at = EXCLUDED.last_calculated_at,
			updated_at = NOW()`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		score.ID, score.ProjectID, score.Score,
		score.OnTimeCount, score.TotalCount, score.MissedCount,
		score.AtRiskCount, score.ActiveDeadlines, score.UpcomingCount,
		score.CurrentStreak, score.BestStreak, score.StreakBrokenAt,
		score.ProtectedClaimsValueCents, score.AtRiskValueCents,
		score.LastCalculatedAt, score.CreatedAt, score.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert score")
	}
	return nil
}

func (r *postgresScoreRepo) UpsertSnapshot(ctx context.Context, snapshot *domain.ScoreSnapshot) error {
	query := `
		INSERT INTO compliance_score_snapshots (
			id, project_id, snapshot_date, period_type,
			score, on_time_count, total_count, current_streak,
			protected_claims_value_cents, notices_sent_in_period, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (project_id, snapshot_date, period_type) DO UPDATE SET
			score = EXCLUDED.score,
			on_time_count = EXCLUDED.on_time_count,
			total_count = EXCLUDED.total_count,
			current_streak = EXCLUDED.current_streak,
			protected_claims_value_cents = EXCLUDED.protected_claims_value_cents,
			notices_sent_in_period = EXCLUDED.notices_sent_in_period`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		snapshot.ID, snapshot.ProjectID, snapshot.SnapshotDate, snapshot.PeriodType,
		snapshot.Score, snapshot.OnTimeCount, snapshot.TotalCount, snapshot.CurrentStreak,
		snapshot.ProtectedClaimsValueCents, snapshot.NoticesSentInPeriod, snapshot.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert score snapshot")
	}
	return nil
}

func (r *postgresScoreRepo) HasSnapshot(ctx context.Context, projectID common.ProjectID, date time.Time, period domain.SnapshotPeriod) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM compliance_score_snapshots
			WHERE project_id = $1 AND snapshot_date = $2 AND period_type = $3
		)`

	var exists bool
	if err := r.executor(ctx).QueryRowContext(ctx, query, projectID, date, period).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check snapshot existence")
	}
	return exists, nil
}

func (r *postgresScoreRepo) ListSnapshots(ctx context.Context, projectID common.ProjectID, period domain.SnapshotPeriod, limit int) ([]*domain.ScoreSnapshot, error) {
	query := `
		SELECT id, project_id, snapshot_date, period_type,
		       score, on_time_count, total_count, current_streak,
		       protected_claims_value_cents, notices_sent_in_period, created_at
		FROM compliance_score_snapshots
		WHERE project_id = $1 AND period_type = $2
		ORDER BY snapshot_date DESC
		LIMIT $3`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, period, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list score snapshots")
	}
	defer rows.Close()

	var snapshots []*domain.ScoreSnapshot
	for rows.Next() {
		var s domain.ScoreSnapshot
		err := rows.Scan(
			&s.ID, &s.ProjectID, &s.SnapshotDate, &s.PeriodType,
			&s.Score, &s.OnTimeCount, &s.TotalCount, &s.CurrentStreak,
			&s.ProtectedClaimsValueCents, &s.NoticesSentInPeriod, &s.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan score snapshot")
		}
		s.SnapshotDate = s.SnapshotDate.UTC()
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "snapshot row iteration failed")
	}
	return snapshots, nil
}
