package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

const noticeColumns = `
	id, project_id, clause_id, type, status, title, content,
	recipient_name, recipient_email, due_date,
	sent_at, delivered_at, acknowledged_at,
	delivery_methods, delivery_confirmation, on_time_status,
	generated_by_ai, ai_model, ai_prompt_version,
	reviewed_by, reviewed_at, approved_by, approved_at,
	created_by_id, created_at, updated_at`

type postgresNoticeRepo struct {
	baseRepo
}

// NewPostgresNoticeRepo constructs the notice repository.
func NewPostgresNoticeRepo(conn *postgres.Connection, log logging.Logger) domain.NoticeRepository {
	return &postgresNoticeRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresNoticeRepo) Create(ctx context.Context, notice *domain.ComplianceNotice) error {
	confirmation, err := marshalConfirmation(notice.DeliveryConfirmation)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO compliance_notices (` + noticeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err = r.executor(ctx).ExecContext(ctx, query,
		notice.ID, notice.ProjectID, notice.ClauseID, notice.Type, notice.Status, notice.Title, notice.Content,
		notice.RecipientName, notice.RecipientEmail, notice.DueDate,
		notice.SentAt, notice.DeliveredAt, notice.AcknowledgedAt,
		pq.Array(notice.DeliveryMethods), confirmation, notice.OnTimeStatus,
		notice.GeneratedByAI, notice.AIModel, notice.AIPromptVersion,
		notice.ReviewedBy, notice.ReviewedAt, notice.ApprovedBy, notice.ApprovedAt,
		notice.CreatedByID, notice.CreatedAt, notice.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert notice")
	}
	return nil
}

func (r *postgresNoticeRepo) GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*domain.ComplianceNotice, error) {
	query := `SELECT ` + noticeColumns + ` FROM compliance_notices WHERE project_id = $1 AND id = $2`
	notice, err := scanNotice(r.executor(ctx).QueryRowContext(ctx, query, projectID, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeNoticeNotFound, "notice "+string(id)+" not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load notice")
	}
	return notice, nil
}

func (r *postgresNoticeRepo) Update(ctx context.Context, notice *domain.ComplianceNotice) error {
	confirmation, err := marshalConfirmation(notice.DeliveryConfirmation)
	if err != nil {
		return err
	}

	query := `
		UPDATE compliance_notices SET
			clause_id = $3, type = $4, status = $5, title = $6, content = $7,
			recipient_name = $8, recipient_email = $9, due_date = $10,
			sent_at = $11, delivered_at = $12, acknowledged_at = $13,
			delivery_methods = $14, delivery_confirmation = $15, on_time_status = $16,
			generated_by_ai = $17, ai_model = $18, ai_prompt_version = $19,
			reviewed_by = $20, reviewed_at = $21, approved_by = $22, approved_at = $23,
			updated_at = $24
		WHERE project_id = $1 AND id = $2`

	result, err := r.executor(ctx).ExecContext(ctx, query,
		notice.ProjectID, notice.ID,
		notice.ClauseID, notice.Type, notice.Status, notice.Title, notice.Content,
		notice.RecipientName, notice.RecipientEmail, notice.DueDate,
		notice.SentAt, notice.DeliveredAt, notice.AcknowledgedAt,
		pq.Array(notice.DeliveryMethods), confirmation, notice.OnTimeStatus,
		notice.GeneratedByAI, notice.AIModel, notice.AIPromptVersion,
		notice.ReviewedBy, notice.ReviewedAt, notice.ApprovedBy, notice.ApprovedAt,
		notice.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update notice")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNoticeNotFound, "notice "+string(notice.ID)+" not found")
	}
	return nil
}

func (r *postgresNoticeRepo) Delete(ctx context.Context, projectID common.ProjectID, id common.ID) error {
	result, err := r.executor(ctx).ExecContext(ctx,
		`DELETE FROM compliance_notices WHERE project_id = $1 AND id = $2`, projectID, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete notice")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNoticeNotFound, "notice "+string(id)+" not found")
	}
	return nil
}

func (r *postgresNoticeRepo) List(ctx context.Context, projectID common.ProjectID, filter domain.NoticeFilter) ([]*domain.ComplianceNotice, int64, error) {
	where := "WHERE project_id = $1"
	args := []interface{}{projectID}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM compliance_notices " + where
	if err := r.executor(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count notices")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM compliance_notices %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		noticeColumns, where, len(args)-1, len(args))

	rows, err := r.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list notices")
	}
	defer rows.Close()

	notices, err := collectNotices(rows)
	if err != nil {
		return nil, 0, err
	}
	return notices, total, nil
}

func (r *postgresNoticeRepo) ListSent(ctx context.Context, projectID common.ProjectID) ([]*domain.ComplianceNotice, error) {
	query := `
		SELECT ` + noticeColumns + `
		FROM compliance_notices
		WHERE project_id = $1 AND status IN ($2, $3)
		ORDER BY sent_at DESC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, domain.NoticeSent, domain.NoticeAcknowledged)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list sent notices")
	}
	defer rows.Close()
	return collectNotices(rows)
}

func (r *postgresNoticeRepo) CountSentSince(ctx context.Context, projectID common.ProjectID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM compliance_notices WHERE project_id = $1 AND sent_at >= $2`
	var count int
	if err := r.executor(ctx).QueryRowContext(ctx, query, projectID, since).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count sent notices")
	}
	return count, nil
}

func (r *postgresNoticeRepo) Search(ctx context.Context, projectID common.ProjectID, queryText string, limit int) ([]*domain.ComplianceNotice, error) {
	query := `
		SELECT ` + noticeColumns + `
		FROM compliance_notices
		WHERE project_id = $1
		  AND (title ILIKE $2 OR content ILIKE $2 OR recipient_name ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, "%"+queryText+"%", limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to search notices")
	}
	defer rows.Close()
	return collectNotices(rows)
}

// marshalConfirmation serializes the per-method confirmation map for the
// JSONB column; nil maps are stored as SQL NULL.
func marshalConfirmation(m map[string]domain.DeliveryConfirmation) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal delivery confirmation")
	}
	return raw, nil
}

func scanNotice(s scanner) (*domain.ComplianceNotice, error) {
	var n domain.ComplianceNotice
	var methods pq.StringArray
	var confirmation []byte

	err := s.Scan(
		&n.ID, &n.ProjectID, &n.ClauseID, &n.Type, &n.Status, &n.Title, &n.Content,
		&n.RecipientName, &n.RecipientEmail, &n.DueDate,
		&n.SentAt, &n.DeliveredAt, &n.AcknowledgedAt,
		&methods, &confirmation, &n.OnTimeStatus,
		&n.GeneratedByAI, &n.AIModel, &n.AIPromptVersion,
		&n.ReviewedBy, &n.ReviewedAt, &n.ApprovedBy, &n.ApprovedAt,
		&n.CreatedByID, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.DeliveryMethods = []string(methods)
	if n.DeliveryMethods == nil {
		n.DeliveryMethods = []string{}
	}
	if len(confirmation) > 0 {
		if err := json.Unmarshal(confirmation, &n.DeliveryConfirmation); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal delivery confirmation")
		}
	}
	return &n, nil
}

func collectNotices(rows *sql.Rows) ([]*domain.ComplianceNotice, error) {
	var notices []*domain.ComplianceNotice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan notice")
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "notice row iteration failed")
	}
	return notices, nil
}
