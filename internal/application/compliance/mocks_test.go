package compliance

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	"github.com/efilo-ai/compliance-engine/internal/intelligence/contractllm"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// Shared testify mocks for the application services.  The holiday repository
// mock lives in calendar_test.go next to the calendar tests.

// --- transaction runner -----------------------------------------------------

// passthroughTx runs the function directly; services under test only care
// that the work inside the closure happened.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- clause repository ------------------------------------------------------

type mockClauseRepo struct {
	mock.Mock
}

func (m *mockClauseRepo) Create(ctx context.Context, clause *domain.ContractClause) error {
	return m.Called(ctx, clause).Error(0)
}

func (m *mockClauseRepo) CreateBatch(ctx context.Context, clauses []*domain.ContractClause) error {
	return m.Called(ctx, clauses).Error(0)
}

func (m *mockClauseRepo) GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*domain.ContractClause, error) {
	args := m.Called(ctx, projectID, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.ContractClause), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClauseRepo) List(ctx context.Context, projectID common.ProjectID, filter domain.ClauseFilter) ([]*domain.ContractClause, int64, error) {
	args := m.Called(ctx, projectID, filter)
	var out []*domain.ContractClause
	if c := args.Get(0); c != nil {
		out = c.([]*domain.ContractClause)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockClauseRepo) Update(ctx context.Context, clause *domain.ContractClause) error {
	return m.Called(ctx, clause).Error(0)
}

func (m *mockClauseRepo) DeleteExtracted(ctx context.Context, projectID common.ProjectID, sourceDocID string) (int, error) {
	args := m.Called(ctx, projectID, sourceDocID)
	return args.Int(0), args.Error(1)
}

func (m *mockClauseRepo) ListTriggerable(ctx context.Context, projectID common.ProjectID, kinds []domain.ClauseKind) ([]*domain.ContractClause, error) {
	args := m.Called(ctx, projectID, kinds)
	if c := args.Get(0); c != nil {
		return c.([]*domain.ContractClause), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClauseRepo) Search(ctx context.Context, projectID common.ProjectID, query string, limit int) ([]*domain.ContractClause, error) {
	args := m.Called(ctx, projectID, query, limit)
	if c := args.Get(0); c != nil {
		return c.([]*domain.ContractClause), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- deadline repository ----------------------------------------------------

type mockDeadlineRepo struct {
	mock.Mock
}

func (m *mockDeadlineRepo) Create(ctx context.Context, deadline *domain.ComplianceDeadline) error {
	return m.Called(ctx, deadline).Error(0)
}

func (m *mockDeadlineRepo) GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, projectID, id)
	if d := args.Get(0); d != nil {
		return d.(*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineRepo) Update(ctx context.Context, deadline *domain.ComplianceDeadline) error {
	return m.Called(ctx, deadline).Error(0)
}

func (m *mockDeadlineRepo) List(ctx context.Context, projectID common.ProjectID, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, int64, error) {
	args := m.Called(ctx, projectID, filter)
	var out []*domain.DeadlineWithClause
	if d := args.Get(0); d != nil {
		out = d.([]*domain.DeadlineWithClause)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockDeadlineRepo) FindOpenByKey(ctx context.Context, key domain.IdempotencyKey) (*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, key)
	if d := args.Get(0); d != nil {
		return d.(*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineRepo) ListOpen(ctx context.Context, projectID common.ProjectID) ([]*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, projectID)
	if d := args.Get(0); d != nil {
		return d.([]*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineRepo) ListOpenDueBefore(ctx context.Context, projectID common.ProjectID, cutoff time.Time) ([]*domain.DeadlineWithClause, error) {
	args := m.Called(ctx, projectID, cutoff)
	if d := args.Get(0); d != nil {
		return d.([]*domain.DeadlineWithClause), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineRepo) ProjectsWithOpenDeadlines(ctx context.Context) ([]common.ProjectID, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]common.ProjectID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineRepo) GetByNoticeID(ctx context.Context, projectID common.ProjectID, noticeID common.ID) (*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, projectID, noticeID)
	if d := args.Get(0); d != nil {
		return d.(*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeadlineRepo) Search(ctx context.Context, projectID common.ProjectID, query string, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, error) {
	args := m.Called(ctx, projectID, query, filter)
	if d := args.Get(0); d != nil {
		return d.([]*domain.DeadlineWithClause), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- notice repository ------------------------------------------------------

type mockNoticeRepo struct {
	mock.Mock
}

func (m *mockNoticeRepo) Create(ctx context.Context, notice *domain.ComplianceNotice) error {
	return m.Called(ctx, notice).Error(0)
}

func (m *mockNoticeRepo) GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, id)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeRepo) Update(ctx context.Context, notice *domain.ComplianceNotice) error {
	return m.Called(ctx, notice).Error(0)
}

func (m *mockNoticeRepo) Delete(ctx context.Context, projectID common.ProjectID, id common.ID) error {
	return m.Called(ctx, projectID, id).Error(0)
}

func (m *mockNoticeRepo) List(ctx context.Context, projectID common.ProjectID, filter domain.NoticeFilter) ([]*domain.ComplianceNotice, int64, error) {
	args := m.Called(ctx, projectID, filter)
	var out []*domain.ComplianceNotice
	if n := args.Get(0); n != nil {
		out = n.([]*domain.ComplianceNotice)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockNoticeRepo) ListSent(ctx context.Context, projectID common.ProjectID) ([]*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID)
	if n := args.Get(0); n != nil {
		return n.([]*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeRepo) CountSentSince(ctx context.Context, projectID common.ProjectID, since time.Time) (int, error) {
	args := m.Called(ctx, projectID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockNoticeRepo) Search(ctx context.Context, projectID common.ProjectID, query string, limit int) ([]*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, query, limit)
	if n := args.Get(0); n != nil {
		return n.([]*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- score repository -------------------------------------------------------

type mockScoreRepo struct {
	mock.Mock
}

func (m *mockScoreRepo) GetByProject(ctx context.Context, projectID common.ProjectID) (*domain.ComplianceScore, error) {
	args := m.Called(ctx, projectID)
	if s := args.Get(0); s != nil {
		return s.(*domain.ComplianceScore), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreRepo) Upsert(ctx context.Context, score *domain.ComplianceScore) error {
	return m.Called(ctx, score).Error(0)
}

func (m *mockScoreRepo) UpsertSnapshot(ctx context.Context, snapshot *domain.ScoreSnapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *mockScoreRepo) HasSnapshot(ctx context.Context, projectID common.ProjectID, date time.Time, period domain.SnapshotPeriod) (bool, error) {
	args := m.Called(ctx, projectID, date, period)
	return args.Bool(0), args.Error(1)
}

func (m *mockScoreRepo) ListSnapshots(ctx context.Context, projectID common.ProjectID, period domain.SnapshotPeriod, limit int) ([]*domain.ScoreSnapshot, error) {
	args := m.Called(ctx, projectID, period, limit)
	if s := args.Get(0); s != nil {
		return s.([]*domain.ScoreSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- audit repository -------------------------------------------------------

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAuditRepo) List(ctx context.Context, projectID common.ProjectID, limit, offset int) ([]*domain.AuditEntry, int64, error) {
	args := m.Called(ctx, projectID, limit, offset)
	var out []*domain.AuditEntry
	if e := args.Get(0); e != nil {
		out = e.([]*domain.AuditEntry)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

// --- project repositories ---------------------------------------------------

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) GetProject(ctx context.Context, projectID common.ProjectID) (*project.Project, error) {
	args := m.Called(ctx, projectID)
	if p := args.Get(0); p != nil {
		return p.(*project.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) ListMembersByRoles(ctx context.Context, projectID common.ProjectID, roles []project.Role) ([]*project.Member, error) {
	args := m.Called(ctx, projectID, roles)
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

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *project.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) CreateBatch(ctx context.Context, ns []*project.Notification) error {
	return m.Called(ctx, ns).Error(0)
}

// --- outbound ports ---------------------------------------------------------

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) HolidaysInRange(ctx context.Context, projectID common.ProjectID, start, end time.Time) (HolidaySet, error) {
	args := m.Called(ctx, projectID, start, end)
	if h := args.Get(0); h != nil {
		return h.(HolidaySet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCalendar) DeadlineFor(ctx context.Context, projectID common.ProjectID, triggeredAt time.Time, days int, typ domain.DeadlinePeriodType) (time.Time, error) {
	args := m.Called(ctx, projectID, triggeredAt, days, typ)
	return args.Get(0).(time.Time), args.Error(1)
}

type mockDocumentSource struct {
	mock.Mock
}

func (m *mockDocumentSource) GetDocument(ctx context.Context, projectID common.ProjectID, documentID common.ID) (*DocumentText, error) {
	args := m.Called(ctx, projectID, documentID)
	if d := args.Get(0); d != nil {
		return d.(*DocumentText), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, req contractllm.Request) (*contractllm.Completion, error) {
	args := m.Called(ctx, req)
	if c := args.Get(0); c != nil {
		return c.(*contractllm.Completion), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, toName, subject, body string) error {
	return m.Called(ctx, to, toName, subject, body).Error(0)
}

type mockScoreRefresher struct {
	mock.Mock
}

func (m *mockScoreRefresher) RequestRefresh(ctx context.Context, projectID common.ProjectID) error {
	return m.Called(ctx, projectID).Error(0)
}
