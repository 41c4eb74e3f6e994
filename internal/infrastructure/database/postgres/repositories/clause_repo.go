package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

const clauseColumns = `
	id, project_id, kind, title, content, section_ref,
	deadline_days, deadline_type, notice_method, trigger_text,
	cure_period_days, cure_period_type, flow_down_provisions, parent_clause_ref,
	requires_review, review_reason, confirmed, confirmed_at, confirmed_by,
	ai_extracted, ai_model, source_doc_id, created_at, updated_at`

type postgresClauseRepo struct {
	baseRepo
}

// NewPostgresClauseRepo constructs the clause repository.
func NewPostgresClauseRepo(conn *postgres.Connection, log logging.Logger) domain.ClauseRepository {
	return &postgresClauseRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresClauseRepo) Create(ctx context.Context, clause *domain.ContractClause) error {
	query := `
		INSERT INTO contract_clauses (` + clauseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err := r.executor(ctx).ExecContext(ctx, query, clauseArgs(clause)...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert clause")
	}
	return nil
}

func (r *postgresClauseRepo) CreateBatch(ctx context.Context, clauses []*domain.ContractClause) error {
	for _, clause := range clauses {
		if err := r.Create(ctx, clause); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresClauseRepo) GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*domain.ContractClause, error) {
	query := `SELECT ` + clauseColumns + ` FROM contract_clauses WHERE project_id = $1 AND id = $2`
	clause, err := scanClause(r.executor(ctx).QueryRowContext(ctx, query, projectID, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeClauseNotFound, "clause "+string(id)+" not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load clause")
	}
	return clause, nil
}

func (r *postgresClauseRepo) List(ctx context.Context, projectID common.ProjectID, filter domain.ClauseFilter) ([]*domain.ContractClause, int64, error) {
	where := "WHERE project_id = $1"
	args := []interface{}{projectID}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		where += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.Confirmed != nil {
		args = append(args, *filter.Confirmed)
		where += fmt.Sprintf(" AND confirmed = $%d", len(args))
	}
	if filter.RequiresReview != nil {
		args = append(args, *filter.RequiresReview)
		where += fmt.Sprintf(" AND requires_review = $%d", len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM contract_clauses " + where
	if err := r.executor(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count clauses")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM contract_clauses %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		clauseColumns, where, len(args)-1, len(args))

	rows, err := r.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list clauses")
	}
	defer rows.Close()

	clauses, err := collectClauses(rows)
	if err != nil {
		return nil, 0, err
	}
	return clauses, total, nil
}

func (r *postgresClauseRepo) Update(ctx context.Context, clause *domain.ContractClause) error {
	query := `
		UPDATE contract_clauses SET
			kind = $3, title = $4, content = $5, section_ref = $6,
			deadline_days = $7, deadline_type = $8, notice_method = $9, trigger_text = $10,
			cure_period_days = $11, cure_period_type = $12,
			flow_down_provisions = $13, parent_clause_ref = $14,
			requires_review = $15, review_reason = $16,
			confirmed = $17, confirmed_at = $18, confirmed_by = $19,
			updated_at = NOW()
		WHERE project_id = $1 AND id = $2`

	result, err := r.executor(ctx).ExecContext(ctx, query,
		clause.ProjectID, clause.ID,
		clause.Kind, clause.Title, clause.Content, clause.SectionRef,
		clause.DeadlineDays, clause.DeadlineType, clause.NoticeMethod, clause.Trigger,
		clause.CurePeriodDays, clause.CurePeriodType,
		clause.FlowDownProvisions, clause.ParentClauseRef,
		clause.RequiresReview, clause.ReviewReason,
		clause.Confirmed, clause.ConfirmedAt, clause.ConfirmedBy,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update clause")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeClauseNotFound, "clause "+string(clause.ID)+" not found")
	}
	return nil
}

func (r *postgresClauseRepo) DeleteExtracted(ctx context.Context, projectID common.ProjectID, sourceDocID string) (int, error) {
	query := `DELETE FROM contract_clauses WHERE project_id = $1 AND source_doc_id = $2 AND ai_extracted = TRUE`
	result, err := r.executor(ctx).ExecContext(ctx, query, projectID, sourceDocID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete extracted clauses")
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *postgresClauseRepo) ListTriggerable(ctx context.Context, projectID common.ProjectID, kinds []domain.ClauseKind) ([]*domain.ContractClause, error) {
	kindStrings := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrings[i] = string(k)
	}

	query := `
		SELECT ` + clauseColumns + `
		FROM contract_clauses
		WHERE project_id = $1
		  AND kind = ANY($2)
		  AND deadline_days IS NOT NULL AND deadline_days > 0
		  AND deadline_type IS NOT NULL
		ORDER BY created_at ASC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, pq.Array(kindStrings))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list triggerable clauses")
	}
	defer rows.Close()
	return collectClauses(rows)
}

func (r *postgresClauseRepo) Search(ctx context.Context, projectID common.ProjectID, queryText string, limit int) ([]*domain.ContractClause, error) {
	query := `
		SELECT ` + clauseColumns + `
		FROM contract_clauses
		WHERE project_id = $1
		  AND (title ILIKE $2 OR content ILIKE $2 OR section_ref ILIKE $2 OR trigger_text ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, "%"+queryText+"%", limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to search clauses")
	}
	defer rows.Close()
	return collectClauses(rows)
}

func clauseArgs(c *domain.ContractClause) []interface{} {
	return []interface{}{
		c.ID, c.ProjectID, c.Kind, c.Title, c.Content, c.SectionRef,
		c.DeadlineDays, c.DeadlineType, c.NoticeMethod, c.Trigger,
		c.CurePeriodDays, c.CurePeriodType, c.FlowDownProvisions, c.ParentClauseRef,
		c.RequiresReview, c.ReviewReason, c.Confirmed, c.ConfirmedAt, c.ConfirmedBy,
		c.AIExtracted, c.AIModel, c.SourceDocID, c.CreatedAt, c.UpdatedAt,
	}
}

func scanClause(s scanner) (*domain.ContractClause, error) {
	var c domain.ContractClause
	var deadlineType, noticeMethod, cureType sql.NullString

	err := s.Scan(
		&c.ID, &c.ProjectID, &c.Kind, &c.Title, &c.Content, &c.SectionRef,
		&c.DeadlineDays, &deadlineType, &noticeMethod, &c.Trigger,
		&c.CurePeriodDays, &cureType, &c.FlowDownProvisions, &c.ParentClauseRef,
		&c.RequiresReview, &c.ReviewReason, &c.Confirmed, &c.ConfirmedAt, &c.ConfirmedBy,
		&c.AIExtracted, &c.AIModel, &c.SourceDocID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadlineType.Valid {
		t := domain.DeadlinePeriodType(deadlineType.String)
		c.DeadlineType = &t
	}
	if noticeMethod.Valid {
		m := domain.NoticeMethod(noticeMethod.String)
		c.NoticeMethod = &m
	}
	if cureType.Valid {
		t := domain.DeadlinePeriodType(cureType.String)
		c.CurePeriodType = &t
	}
	return &c, nil
}

func collectClauses(rows *sql.Rows) ([]*domain.ContractClause, error) {
	var clauses []*domain.ContractClause
	for rows.Next() {
		c, err := scanClause(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan clause")
		}
		clauses = append(clauses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "clause row iteration failed")
	}
	return clauses, nil
}
