//go:build integration

// Package integration holds end-to-end tests that run the compliance engine's
// services against a real PostgreSQL instance.  Tests require Docker and are
// gated behind the "integration" build tag.
package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

const containerStartupTimeout = 60 * time.Second

// startPostgres launches a PostgreSQL 16 container, connects, and applies the
// schema migrations.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "compliance_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(containerStartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Host:         host,
		Port:         port.Int(),
		Database:     "compliance_test",
		Username:     "test",
		Password:     "test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.RunMigrations("../../migrations"))
	return conn
}

// services bundles the repositories and application services the flow tests
// exercise.
type services struct {
	Clauses   domain.ClauseRepository
	Deadlines appcompliance.DeadlineService
	Triggers  appcompliance.TriggerService
	Scores    appcompliance.ScoreService
	Holidays  appcompliance.HolidayService
}

func newServices(t *testing.T, conn *postgres.Connection) *services {
	t.Helper()
	logger := logging.NewNopLogger()

	tx := postgres.NewTxRunner(conn, logger)
	clauseRepo := repositories.NewPostgresClauseRepo(conn, logger)
	deadlineRepo := repositories.NewPostgresDeadlineRepo(conn, logger)
	noticeRepo := repositories.NewPostgresNoticeRepo(conn, logger)
	scoreRepo := repositories.NewPostgresScoreRepo(conn, logger)
	holidayRepo := repositories.NewPostgresHolidayRepo(conn, logger)
	auditRepo := repositories.NewPostgresAuditRepo(conn, logger)

	calendar := appcompliance.NewCalendarService(holidayRepo, logger)
	deadlines := appcompliance.NewDeadlineService(deadlineRepo, clauseRepo, auditRepo, calendar, tx, logger)
	triggers := appcompliance.NewTriggerService(clauseRepo, deadlines, deadlineRepo, logger)
	scores := appcompliance.NewScoreService(scoreRepo, noticeRepo, deadlineRepo, 0, logger)
	holidays := appcompliance.NewHolidayService(holidayRepo, logger)

	return &services{
		Clauses:   clauseRepo,
		Deadlines: deadlines,
		Triggers:  triggers,
		Scores:    scores,
		Holidays:  holidays,
	}
}

// seedClause inserts a confirmed clause carrying deadline terms.
func seedClause(t *testing.T, repo domain.ClauseRepository, projectID common.ProjectID, kind domain.ClauseKind, days int, periodType domain.DeadlinePeriodType) *domain.ContractClause {
	t.Helper()

	now := time.Now().UTC()
	section := fmt.Sprintf("Article %d.1", days)
	clause := &domain.ContractClause{
		ID:           common.NewID(),
		ProjectID:    projectID,
		Kind:         kind,
		Title:        "Notice of claims",
		Content:      "The Subcontractor shall give written notice of any claim within the stated period.",
		SectionRef:   &section,
		DeadlineDays: &days,
		DeadlineType: &periodType,
		Confirmed:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), clause))
	return clause
}
