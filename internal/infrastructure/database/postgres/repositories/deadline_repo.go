package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

const deadlineColumns = `
	d.id, d.project_id, d.clause_id,
	d.trigger_event_type, d.trigger_event_id, d.trigger_description, d.triggered_at,
	d.calculated_deadline, d.deadline_timezone, d.status, d.severity,
	d.notice_id, d.notice_created_at,
	d.waived_at, d.waived_by, d.waived_reason,
	d.created_at, d.updated_at`

var terminalStatuses = []string{
	string(domain.DeadlineCompleted),
	string(domain.DeadlineExpired),
	string(domain.DeadlineWaived),
}

type postgresDeadlineRepo struct {
	baseRepo
}

// NewPostgresDeadlineRepo constructs the deadline repository.
func NewPostgresDeadlineRepo(conn *postgres.Connection, log logging.Logger) domain.DeadlineRepository {
	return &postgresDeadlineRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresDeadlineRepo) Create(ctx context.Context, deadline *domain.ComplianceDeadline) error {
	query := `
		INSERT INTO compliance_deadlines (
			id, project_id, clause_id,
			trigger_event_type, trigger_event_id, trigger_description, triggered_at,
			calculated_deadline, deadline_timezone, status, severity,
			notice_id, notice_created_at,
			waived_at, waived_by, waived_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		deadline.ID, deadline.ProjectID, deadline.ClauseID,
		deadline.TriggerEventType, deadline.TriggerEventID, deadline.TriggerDescription, deadline.TriggeredAt,
		deadline.CalculatedDeadline, deadline.DeadlineTimezone, deadline.Status, deadline.Severity,
		deadline.NoticeID, deadline.NoticeCreatedAt,
		deadline.WaivedAt, deadline.WaivedBy, deadline.WaivedReason,
		deadline.CreatedAt, deadline.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert deadline")
	}
	return nil
}

func (r *postgresDeadlineRepo) GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*domain.ComplianceDeadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM compliance_deadlines d WHERE d.project_id = $1 AND d.id = $2`
	deadline, err := scanDeadline(r.executor(ctx).QueryRowContext(ctx, query, projectID, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeDeadlineNotFound, "deadline "+string(id)+" not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load deadline")
	}
	return deadline, nil
}

func (r *postgresDeadlineRepo) Update(ctx context.Context, deadline *domain.ComplianceDeadline) error {
	query := `
		UPDATE compliance_deadlines SET
			status = $3, severity = $4,
			notice_id = $5, notice_created_at = $6,
			waived_at = $7, waived_by = $8, waived_reason = $9,
			updated_at = $10
		WHERE project_id = $1 AND id = $2`

	result, err := r.executor(ctx).ExecContext(ctx, query,
		deadline.ProjectID, deadline.ID,
		deadline.Status, deadline.Severity,
		deadline.NoticeID, deadline.NoticeCreatedAt,
		deadline.WaivedAt, deadline.WaivedBy, deadline.WaivedReason,
		deadline.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update deadline")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeDeadlineNotFound, "deadline "+string(deadline.ID)+" not found")
	}
	return nil
}

func (r *postgresDeadlineRepo) List(ctx context.Context, projectID common.ProjectID, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, int64, error) {
	where := "WHERE d.project_id = $1"
	args := []interface{}{projectID}

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		where += fmt.Sprintf(" AND d.status = ANY($%d)", len(args))
	}
	if len(filter.Severities) > 0 {
		args = append(args, pq.Array(severityStrings(filter.Severities)))
		where += fmt.Sprintf(" AND d.severity = ANY($%d)", len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM compliance_deadlines d " + where
	if err := r.executor(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count deadlines")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s, c.title, c.kind, c.section_ref
		FROM compliance_deadlines d
		JOIN contract_clauses c ON c.id = d.clause_id
		%s
		ORDER BY d.calculated_deadline ASC
		LIMIT $%d OFFSET $%d`,
		deadlineColumns, where, len(args)-1, len(args))

	rows, err := r.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list deadlines")
	}
	defer rows.Close()

	joined, err := collectDeadlinesWithClause(rows)
	if err != nil {
		return nil, 0, err
	}
	return joined, total, nil
}

func (r *postgresDeadlineRepo) FindOpenByKey(ctx context.Context, key domain.IdempotencyKey) (*domain.ComplianceDeadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM compliance_deadlines d
		WHERE d.project_id = $1
		  AND d.clause_id = $2
		  AND COALESCE(d.trigger_event_id, '') = $3
		  AND d.trigger_event_type = $4
		  AND d.status <> ALL($5)
		ORDER BY d.created_at DESC
		LIMIT 1`

	deadline, err := scanDeadline(r.executor(ctx).QueryRowContext(ctx, query,
		key.ProjectID, key.ClauseID, key.TriggerEventID, key.TriggerEventType,
		pq.Array(terminalStatuses),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to look up deadline by trigger key")
	}
	return deadline, nil
}

func (r *postgresDeadlineRepo) ListOpen(ctx context.Context, projectID common.ProjectID) ([]*domain.ComplianceDeadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM compliance_deadlines d
		WHERE d.project_id = $1 AND d.status <> ALL($2)
		ORDER BY d.calculated_deadline ASC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, pq.Array(terminalStatuses))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list open deadlines")
	}
	defer rows.Close()
	return collectDeadlines(rows)
}

func (r *postgresDeadlineRepo) ListOpenDueBefore(ctx context.Context, projectID common.ProjectID, cutoff time.Time) ([]*domain.DeadlineWithClause, error) {
	query := `
		SELECT ` + deadlineColumns + `, c.title, c.kind, c.section_ref
		FROM compliance_deadlines d
		JOIN contract_clauses c ON c.id = d.clause_id
		WHERE d.project_id = $1
		  AND d.status <> ALL($2)
		  AND d.calculated_deadline <= $3
		ORDER BY d.calculated_deadline ASC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, pq.Array(terminalStatuses), cutoff)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list upcoming deadlines")
	}
	defer rows.Close()
	return collectDeadlinesWithClause(rows)
}

func (r *postgresDeadlineRepo) ProjectsWithOpenDeadlines(ctx context.Context) ([]common.ProjectID, error) {
	query := `
		SELECT DISTINCT project_id
		FROM compliance_deadlines
		WHERE status IN ($1, $2)
		ORDER BY project_id`

	rows, err := r.executor(ctx).QueryContext(ctx, query, domain.DeadlineActive, domain.DeadlineNoticeDrafted)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list projects with open deadlines")
	}
	defer rows.Close()

	var projects []common.ProjectID
	for rows.Next() {
		var id common.ProjectID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan project id")
		}
		projects = append(projects, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "project row iteration failed")
	}
	return projects, nil
}

func (r *postgresDeadlineRepo) GetByNoticeID(ctx context.Context, projectID common.ProjectID, noticeID common.ID) (*domain.ComplianceDeadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM compliance_deadlines d WHERE d.project_id = $1 AND d.notice_id = $2`
	deadline, err := scanDeadline(r.executor(ctx).QueryRowContext(ctx, query, projectID, noticeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load deadline by notice")
	}
	return deadline, nil
}

func (r *postgresDeadlineRepo) Search(ctx context.Context, projectID common.ProjectID, queryText string, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, error) {
	where := "WHERE d.project_id = $1 AND (d.trigger_description ILIKE $2 OR c.title ILIKE $2)"
	args := []interface{}{projectID, "%" + queryText + "%"}

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		where += fmt.Sprintf(" AND d.status = ANY($%d)", len(args))
	}
	if len(filter.Severities) > 0 {
		args = append(args, pq.Array(severityStrings(filter.Severities)))
		where += fmt.Sprintf(" AND d.severity = ANY($%d)", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT %s, c.title, c.kind, c.section_ref
		FROM compliance_deadlines d
		JOIN contract_clauses c ON c.id = d.clause_id
		%s
		ORDER BY d.calculated_deadline ASC
		LIMIT $%d`,
		deadlineColumns, where, len(args))

	rows, err := r.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to search deadlines")
	}
	defer rows.Close()
	return collectDeadlinesWithClause(rows)
}

func statusStrings(statuses []domain.DeadlineStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func severityStrings(severities []domain.Severity) []string {
	out := make([]string, len(severities))
	for i, s := range severities {
		out[i] = string(s)
	}
	return out
}

func scanDeadlineInto(s scanner, d *domain.ComplianceDeadline, extra ...interface{}) error {
	dest := []interface{}{
		&d.ID, &d.ProjectID, &d.ClauseID,
		&d.TriggerEventType, &d.TriggerEventID, &d.TriggerDescription, &d.TriggeredAt,
		&d.CalculatedDeadline, &d.DeadlineTimezone, &d.Status, &d.Severity,
		&d.NoticeID, &d.NoticeCreatedAt,
		&d.WaivedAt, &d.WaivedBy, &d.WaivedReason,
		&d.CreatedAt, &d.UpdatedAt,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

func scanDeadline(s scanner) (*domain.ComplianceDeadline, error) {
	var d domain.ComplianceDeadline
	if err := scanDeadlineInto(s, &d); err != nil {
		return nil, err
	}
	normalizeDeadlineTimes(&d)
	return &d, nil
}

func collectDeadlines(rows *sql.Rows) ([]*domain.ComplianceDeadline, error) {
	var deadlines []*domain.ComplianceDeadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan deadline")
		}
		deadlines = append(deadlines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "deadline row iteration failed")
	}
	return deadlines, nil
}

func collectDeadlinesWithClause(rows *sql.Rows) ([]*domain.DeadlineWithClause, error) {
	var joined []*domain.DeadlineWithClause
	for rows.Next() {
		var j domain.DeadlineWithClause
		err := scanDeadlineInto(rows, &j.ComplianceDeadline,
			&j.ClauseTitle, &j.ClauseKind, &j.ClauseSectionRef)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan deadline with clause")
		}
		normalizeDeadlineTimes(&j.ComplianceDeadline)
		joined = append(joined, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "deadline row iteration failed")
	}
	return joined, nil
}

// normalizeDeadlineTimes forces UTC on scanned timestamps so comparisons in
// the application layer do not depend on the session timezone.
func normalizeDeadlineTimes(d *domain.ComplianceDeadline) {
	d.TriggeredAt = d.TriggeredAt.UTC()
	d.CalculatedDeadline = d.CalculatedDeadline.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
}
