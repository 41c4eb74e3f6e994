package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type mockDeadlineService struct {
	mock.Mock
}

func (m *mockDeadlineService) Create(ctx context.Context, req CreateDeadlineRequest) (*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, req)
	if d := args.Get(0); d != nil {
		return d.(*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineService) Get(ctx context.Context, projectID common.ProjectID, deadlineID common.ID) (*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, projectID, deadlineID)
	if d := args.Get(0); d != nil {
		return d.(*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineService) List(ctx context.Context, projectID common.ProjectID, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, int64, error) {
	args := m.Called(ctx, projectID, filter)
	var out []*domain.DeadlineWithClause
	if d := args.Get(0); d != nil {
		out = d.([]*domain.DeadlineWithClause)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockDeadlineService) Waive(ctx context.Context, projectID common.ProjectID, deadlineID common.ID, userID common.UserID, reason string) (*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, projectID, deadlineID, userID, reason)
	if d := args.Get(0); d != nil {
		return d.(*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineService) RecalculateSeverities(ctx context.Context, projectID common.ProjectID) (*SeverityRecalcResult, error) {
	args := m.Called(ctx, projectID)
	if r := args.Get(0); r != nil {
		return r.(*SeverityRecalcResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func sectionClause(projectID common.ProjectID, kind domain.ClauseKind, title, section string, days int, typ domain.DeadlinePeriodType) *domain.ContractClause {
	clause, _ := domain.NewClause(projectID, kind, title, "clause body")
	clause.SectionRef = &section
	clause.DeadlineDays = &days
	clause.DeadlineType = &typ
	return clause
}

func TestTriggerService_HandleRFIFlagged(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	flaggedAt := time.Date(2025, 7, 1, 15, 30, 0, 0, time.UTC)

	claims := sectionClause(projectID, domain.KindClaimsProcedure,
		"Claims Procedure", "Article 12.3", 3, domain.PeriodBusinessDays)
	change := sectionClause(projectID, domain.KindChangeOrderProcess,
		"Change Order Process", "Article 7.1", 48, domain.PeriodHours)

	clauses := new(mockClauseRepo)
	clauses.On("ListTriggerable", ctx, projectID, rfiTriggerKinds).
		Return([]*domain.ContractClause{claims, change}, nil)

	deadlineSvc := new(mockDeadlineService)
	makeDeadline := func(clauseID common.ID) *domain.ComplianceDeadline {
		eventID := "rfi-42"
		d, err := domain.NewDeadline(projectID, clauseID, domain.TriggerRFI,
			&eventID, "desc", flaggedAt, flaggedAt.Add(72*time.Hour), "UTC")
		require.NoError(t, err)
		return d
	}
	deadlineSvc.On("Create", ctx, mock.MatchedBy(func(req CreateDeadlineRequest) bool {
		return req.ClauseID == claims.ID &&
			req.TriggerEventType == domain.TriggerRFI &&
			req.TriggerDescription == `RFI #42 "Unforeseen rock at grid B4" flagged as potential change order. Per Article 12.3, notice is required within 3 business days.`
	})).Return(makeDeadline(claims.ID), nil)
	deadlineSvc.On("Create", ctx, mock.MatchedBy(func(req CreateDeadlineRequest) bool {
		return req.ClauseID == change.ID &&
			req.TriggerDescription == `RFI #42 "Unforeseen rock at grid B4" flagged as potential change order. Per Article 7.1, notice is required within 48 hours.`
	})).Return(makeDeadline(change.ID), nil)

	svc := NewTriggerService(clauses, deadlineSvc, new(mockDeadlineRepo), logging.NewNopLogger())

	created, err := svc.HandleRFIFlagged(ctx, RFIFlaggedEvent{
		ProjectID: projectID,
		RFIID:     "rfi-42",
		Number:    42,
		Subject:   "Unforeseen rock at grid B4",
		FlaggedAt: flaggedAt,
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	deadlineSvc.AssertExpectations(t)
}

func TestTriggerService_HandleRFIFlagged_NoMatchingClauses(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")

	clauses := new(mockClauseRepo)
	clauses.On("ListTriggerable", ctx, projectID, rfiTriggerKinds).
		Return([]*domain.ContractClause{}, nil)

	deadlineSvc := new(mockDeadlineService)
	svc := NewTriggerService(clauses, deadlineSvc, new(mockDeadlineRepo), logging.NewNopLogger())

	created, err := svc.HandleRFIFlagged(ctx, RFIFlaggedEvent{
		ProjectID: projectID,
		RFIID:     "rfi-7",
		Number:    7,
		Subject:   "Door hardware substitution",
		FlaggedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Empty(t, created)
	deadlineSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTriggerService_HandleRFIFlagged_PartialFailureKeepsGoing(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	flaggedAt := time.Now().UTC()

	broken := sectionClause(projectID, domain.KindClaimsProcedure,
		"Claims Procedure", "12.3", 3, domain.PeriodBusinessDays)
	healthy := sectionClause(projectID, domain.KindChangeOrderProcess,
		"Change Order Process", "7.1", 5, domain.PeriodCalendarDays)

	clauses := new(mockClauseRepo)
	clauses.On("ListTriggerable", ctx, projectID, rfiTriggerKinds).
		Return([]*domain.ContractClause{broken, healthy}, nil)

	eventID := "rfi-9"
	ok, err := domain.NewDeadline(projectID, healthy.ID, domain.TriggerRFI,
		&eventID, "desc", flaggedAt, flaggedAt.Add(120*time.Hour), "UTC")
	require.NoError(t, err)

	deadlineSvc := new(mockDeadlineService)
	deadlineSvc.On("Create", ctx, mock.MatchedBy(func(req CreateDeadlineRequest) bool {
		return req.ClauseID == broken.ID
	})).Return(nil, errors.Internal("database unavailable"))
	deadlineSvc.On("Create", ctx, mock.MatchedBy(func(req CreateDeadlineRequest) bool {
		return req.ClauseID == healthy.ID
	})).Return(ok, nil)

	svc := NewTriggerService(clauses, deadlineSvc, new(mockDeadlineRepo), logging.NewNopLogger())

	created, err2 := svc.HandleRFIFlagged(ctx, RFIFlaggedEvent{
		ProjectID: projectID, RFIID: eventID, Number: 9,
		Subject: "subject", FlaggedAt: flaggedAt,
	})
	require.NoError(t, err2)
	require.Len(t, created, 1)
	assert.Equal(t, ok.ID, created[0].ID)
}

func TestTriggerService_HandleChangeEvent(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	occurredAt := time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)

	notice := sectionClause(projectID, domain.KindNoticeRequirements,
		"Notice Requirements", "Article 4.2", 7, domain.PeriodCalendarDays)

	clauses := new(mockClauseRepo)
	clauses.On("ListTriggerable", ctx, projectID, changeTriggerKinds).
		Return([]*domain.ContractClause{notice}, nil)

	eventID := "evt-15"
	d, err := domain.NewDeadline(projectID, notice.ID, domain.TriggerChangeOrder,
		&eventID, "desc", occurredAt, occurredAt.Add(7*24*time.Hour), "UTC")
	require.NoError(t, err)

	deadlineSvc := new(mockDeadlineService)
	deadlineSvc.On("Create", ctx, mock.MatchedBy(func(req CreateDeadlineRequest) bool {
		return req.TriggerEventType == domain.TriggerChangeOrder &&
			req.TriggerDescription == `Change event "Owner directed added scope in stairwell 2" created. Per Article 4.2, notice is required within 7 calendar days.`
	})).Return(d, nil)

	svc := NewTriggerService(clauses, deadlineSvc, new(mockDeadlineRepo), logging.NewNopLogger())

	created, err := svc.HandleChangeEvent(ctx, ChangeEvent{
		ProjectID:   projectID,
		EventID:     eventID,
		Description: "Owner directed added scope in stairwell 2",
		OccurredAt:  occurredAt,
	})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestTriggerService_HandleChangeEvent_Validation(t *testing.T) {
	svc := NewTriggerService(new(mockClauseRepo), new(mockDeadlineService),
		new(mockDeadlineRepo), logging.NewNopLogger())

	_, err := svc.HandleChangeEvent(context.Background(), ChangeEvent{
		ProjectID: "proj-1", EventID: "", Description: "something changed",
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.HandleChangeEvent(context.Background(), ChangeEvent{
		ProjectID: "proj-1", EventID: "evt-1", Description: "",
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestTriggerService_CheckRFICompliance(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	now := time.Now().UTC()

	rfiID := "rfi-42"
	otherID := "rfi-99"
	matching, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerRFI,
		&rfiID, "desc", now, now.Add(72*time.Hour), "UTC")
	require.NoError(t, err)
	other, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerRFI,
		&otherID, "desc", now, now.Add(72*time.Hour), "UTC")
	require.NoError(t, err)
	manual, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerManual,
		nil, "desc", now, now.Add(72*time.Hour), "UTC")
	require.NoError(t, err)

	deadRepo := new(mockDeadlineRepo)
	deadRepo.On("ListOpen", ctx, projectID).
		Return([]*domain.ComplianceDeadline{matching, other, manual}, nil)

	svc := NewTriggerService(new(mockClauseRepo), new(mockDeadlineService),
		deadRepo, logging.NewNopLogger())

	status, err := svc.CheckRFICompliance(ctx, projectID, rfiID)
	require.NoError(t, err)
	assert.Equal(t, rfiID, status.RFIID)
	assert.Equal(t, 1, status.DeadlineCount)
	require.Len(t, status.Deadlines, 1)
	assert.Equal(t, matching.ID, status.Deadlines[0].ID)
}
