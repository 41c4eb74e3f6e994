package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type postgresProjectRepo struct {
	baseRepo
}

// NewPostgresProjectRepo constructs the read-side project repository over the
// platform's project and membership tables.
func NewPostgresProjectRepo(conn *postgres.Connection, log logging.Logger) project.Repository {
	return &postgresProjectRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresProjectRepo) GetProject(ctx context.Context, id common.ProjectID) (*project.Project, error) {
	query := `
		SELECT id, name, gc_contact_name, gc_contact_email, timezone, created_at, updated_at
		FROM projects
		WHERE id = $1`

	var p project.Project
	err := r.executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.GCContactName, &p.GCContactEmail,
		&p.Timezone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("project " + string(id) + " not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load project")
	}
	return &p, nil
}

func (r *postgresProjectRepo) ListMembersByRoles(ctx context.Context, id common.ProjectID, roles []project.Role) ([]*project.Member, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	roleStrings := make([]string, len(roles))
	for i, role := range roles {
		roleStrings[i] = string(role)
	}

	query := `
		SELECT m.user_id, m.project_id, u.email, u.name, m.role
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1 AND m.role = ANY($2)
		ORDER BY u.name ASC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, id, pq.Array(roleStrings))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list project members")
	}
	defer rows.Close()

	var members []*project.Member
	for rows.Next() {
		var m project.Member
		if err := rows.Scan(&m.UserID, &m.ProjectID, &m.Email, &m.Name, &m.Role); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan project member")
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "member row iteration failed")
	}
	return members, nil
}

func (r *postgresProjectRepo) ListProjectIDs(ctx context.Context) ([]common.ProjectID, error) {
	query := `SELECT id FROM projects ORDER BY id`

	rows, err := r.executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list project ids")
	}
	defer rows.Close()

	var ids []common.ProjectID
	for rows.Next() {
		var id common.ProjectID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan project id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "project id iteration failed")
	}
	return ids, nil
}

type postgresNotificationRepo struct {
	baseRepo
}

// NewPostgresNotificationRepo constructs the in-app notification repository.
func NewPostgresNotificationRepo(conn *postgres.Connection, log logging.Logger) project.NotificationRepository {
	return &postgresNotificationRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresNotificationRepo) Create(ctx context.Context, n *project.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, project_id, type, severity, title, body, resource_id, read_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		n.ID, n.UserID, n.ProjectID, n.Type, n.Severity, n.Title, n.Body,
		n.ResourceID, n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert notification")
	}
	return nil
}

func (r *postgresNotificationRepo) CreateBatch(ctx context.Context, ns []*project.Notification) error {
	for _, n := range ns {
		if err := r.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
