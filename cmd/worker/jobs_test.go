package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type mockScoreService struct {
	mock.Mock
}

func (m *mockScoreService) Get(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error) {
	args := m.Called(ctx, projectID)
	if s := args.Get(0); s != nil {
		return s.(*domain.ComplianceScore), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreService) Calculate(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error) {
	args := m.Called(ctx, projectID)
	if s := args.Get(0); s != nil {
		return s.(*domain.ComplianceScore), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreService) Snapshot(ctx context.Context, projectID common.ProjectID, period domain.SnapshotPeriod) (*domain.ScoreSnapshot, error) {
	args := m.Called(ctx, projectID, period)
	if s := args.Get(0); s != nil {
		return s.(*domain.ScoreSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreService) History(ctx context.Context, projectID common.ProjectID, period string, limit int) ([]*domain.ScoreSnapshot, error) {
	args := m.Called(ctx, projectID, period, limit)
	if s := args.Get(0); s != nil {
		return s.([]*domain.ScoreSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreService) HealthComponent(ctx context.Context, projectID common.ProjectID) (*appcompliance.HealthComponent, error) {
	args := m.Called(ctx, projectID)
	if c := args.Get(0); c != nil {
		return c.(*appcompliance.HealthComponent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAlertService struct {
	mock.Mock
}

func (m *mockAlertService) CheckDeadlines(ctx context.Context, projectID common.ProjectID) (*appcompliance.AlertRunResult, error) {
	args := m.Called(ctx, projectID)
	if r := args.Get(0); r != nil {
		return r.(*appcompliance.AlertRunResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAlertService) WeeklySummary(ctx context.Context, projectID common.ProjectID) error {
	return m.Called(ctx, projectID).Error(0)
}

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) GetProject(ctx context.Context, id common.ProjectID) (*project.Project, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*project.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) ListMembersByRoles(ctx context.Context, id common.ProjectID, roles []project.Role) ([]*project.Member, error) {
	args := m.Called(ctx, id, roles)
	if members := args.Get(0); members != nil {
		return members.([]*project.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) ListProjectIDs(ctx context.Context) ([]common.ProjectID, error) {
	args := m.Called(ctx)
	if ids := args.Get(0); ids != nil {
		return ids.([]common.ProjectID), args.Error(1)
	}
	return nil, args.Error(1)
}

// Snapshots must cover every project, including ones with nothing open, so
// quiet weeks still get history points.
func TestScheduler_DailySnapshot_CoversEveryProject(t *testing.T) {
	ctx := context.Background()

	projects := new(mockProjectRepo)
	projects.On("ListProjectIDs", ctx).
		Return([]common.ProjectID{"proj-active", "proj-quiet"}, nil)

	scores := new(mockScoreService)
	snapshot := &domain.ScoreSnapshot{Score: 100}
	scores.On("Snapshot", ctx, common.ProjectID("proj-active"), domain.PeriodDaily).
		Return(snapshot, nil)
	scores.On("Snapshot", ctx, common.ProjectID("proj-quiet"), domain.PeriodDaily).
		Return(snapshot, nil)

	s := &scheduler{
		projects: projects,
		scores:   scores,
		metrics:  testMetrics(t),
		logger:   logging.NewNopLogger(),
	}

	require.NoError(t, s.dailySnapshot(ctx))
	scores.AssertNumberOfCalls(t, "Snapshot", 2)
}

func TestScheduler_WeeklyDigest_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()

	projects := new(mockProjectRepo)
	projects.On("ListProjectIDs", ctx).
		Return([]common.ProjectID{"proj-1", "proj-2"}, nil)

	alerts := new(mockAlertService)
	alerts.On("WeeklySummary", ctx, common.ProjectID("proj-1")).
		Return(errors.Internal("smtp unavailable"))
	alerts.On("WeeklySummary", ctx, common.ProjectID("proj-2")).Return(nil)

	s := &scheduler{
		projects: projects,
		alerts:   alerts,
		metrics:  testMetrics(t),
		logger:   logging.NewNopLogger(),
	}

	require.NoError(t, s.weeklyDigest(ctx))
	alerts.AssertNumberOfCalls(t, "WeeklySummary", 2)
}
