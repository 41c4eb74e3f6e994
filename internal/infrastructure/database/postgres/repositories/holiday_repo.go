package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type postgresHolidayRepo struct {
	baseRepo
}

// NewPostgresHolidayRepo constructs the project holiday repository.
func NewPostgresHolidayRepo(conn *postgres.Connection, log logging.Logger) domain.HolidayRepository {
	return &postgresHolidayRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresHolidayRepo) Create(ctx context.Context, holiday *domain.ProjectHoliday) error {
	query := `
		INSERT INTO project_holidays (
			id, project_id, date, name, description, recurring, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		holiday.ID, holiday.ProjectID, holiday.Date, holiday.Name,
		holiday.Description, holiday.Recurring, holiday.Source, holiday.CreatedAt,
	)
	if err != nil {
		// The (project_id, date) unique constraint enforces at most one
		// holiday per project per date.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.New(errors.ErrCodeHolidayDuplicate,
				"project already has a holiday on "+holiday.Date.Format("2006-01-02"))
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert holiday")
	}
	return nil
}

func (r *postgresHolidayRepo) Delete(ctx context.Context, projectID common.ProjectID, id common.ID) error {
	result, err := r.executor(ctx).ExecContext(ctx,
		`DELETE FROM project_holidays WHERE project_id = $1 AND id = $2`, projectID, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete holiday")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeHolidayNotFound, "holiday "+string(id)+" not found")
	}
	return nil
}

func (r *postgresHolidayRepo) List(ctx context.Context, projectID common.ProjectID) ([]*domain.ProjectHoliday, error) {
	query := `
		SELECT id, project_id, date, name, description, recurring, source, created_at
		FROM project_holidays
		WHERE project_id = $1
		ORDER BY date ASC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list holidays")
	}
	defer rows.Close()
	return collectHolidays(rows)
}

func (r *postgresHolidayRepo) ListInRange(ctx context.Context, projectID common.ProjectID, from, to time.Time) ([]*domain.ProjectHoliday, error) {
	query := `
		SELECT id, project_id, date, name, description, recurring, source, created_at
		FROM project_holidays
		WHERE project_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := r.executor(ctx).QueryContext(ctx, query, projectID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list holidays in range")
	}
	defer rows.Close()
	return collectHolidays(rows)
}

func collectHolidays(rows *sql.Rows) ([]*domain.ProjectHoliday, error) {
	var holidays []*domain.ProjectHoliday
	for rows.Next() {
		var h domain.ProjectHoliday
		err := rows.Scan(
			&h.ID, &h.ProjectID, &h.Date, &h.Name,
			&h.Description, &h.Recurring, &h.Source, &h.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan holiday")
		}
		h.Date = h.Date.UTC()
		holidays = append(holidays, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "holiday row iteration failed")
	}
	return holidays, nil
}
