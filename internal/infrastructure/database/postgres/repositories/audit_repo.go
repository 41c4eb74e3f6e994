package repositories

import (
	"context"
	"encoding/json"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type postgresAuditRepo struct {
	baseRepo
}

// NewPostgresAuditRepo constructs the append-only audit repository.
func NewPostgresAuditRepo(conn *postgres.Connection, log logging.Logger) domain.AuditRepository {
	return &postgresAuditRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	var detail interface{}
	if len(entry.Detail) > 0 {
		raw, err := json.Marshal(entry.Detail)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit detail")
		}
		detail = raw
	}

	query := `
		INSERT INTO compliance_audit_log (
			id, project_id, event_type, entity_type, entity_id,
			actor_type, actor_id, action, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		entry.ID, entry.ProjectID, entry.EventType, entry.EntityType, entry.EntityID,
		entry.ActorType, entry.ActorID, entry.Action, detail, entry.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to append audit entry")
	}
	return nil
}

func (r *postgresAuditRepo) List(ctx context.Context, projectID common.ProjectID, limit, offset int) ([]*domain.AuditEntry, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM compliance_audit_log WHERE project_id = $1`
	if err := r.executor(ctx).QueryRowContext(ctx, countQuery, projectID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count audit entries")
	}

	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, project_id, event_type, entity_type, entity_id,
		       actor_type, actor_id, action, detail, created_at
		FROM compliance_audit_log
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list audit entries")
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detail []byte
		err := rows.Scan(
			&e.ID, &e.ProjectID, &e.EventType, &e.EntityType, &e.EntityID,
			&e.ActorType, &e.ActorID, &e.Action, &detail, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan audit entry")
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit detail")
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "audit row iteration failed")
	}
	return entries, total, nil
}
