package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/interfaces/http/middleware"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// Shared testify mocks for the application services the handlers call, plus
// a small harness that mounts a handler under a project-scoped route with a
// fixed caller identity.

const (
	testProjectID = "proj-1"
	testUserID    = "user-1"
)

// mountCompliance serves one handler's Routes under the real middleware and
// route layout so URL params and context plumbing are exercised.
func mountCompliance(t *testing.T, register func(chi.Router)) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/projects/{projectID}/compliance", func(c chi.Router) {
		c.Use(middleware.ProjectScope)
		c.Use(injectIdentity)
		register(c)
	})
	return r
}

// injectIdentity plays the role of the auth middleware in tests.
func injectIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), common.ContextKeyUserID, testUserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func doJSON(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// --- clause service ---------------------------------------------------------

type mockClauseService struct {
	mock.Mock
}

func (m *mockClauseService) ExtractFromDocument(ctx context.Context, projectID common.ProjectID, documentID common.ID, userID *common.UserID) ([]*domain.ContractClause, error) {
	args := m.Called(ctx, projectID, documentID, userID)
	var out []*domain.ContractClause
	if c := args.Get(0); c != nil {
		out = c.([]*domain.ContractClause)
	}
	return out, args.Error(1)
}

func (m *mockClauseService) List(ctx context.Context, projectID common.ProjectID, filter domain.ClauseFilter) ([]*domain.ContractClause, int64, error) {
	args := m.Called(ctx, projectID, filter)
	var out []*domain.ContractClause
	if c := args.Get(0); c != nil {
		out = c.([]*domain.ContractClause)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockClauseService) Get(ctx context.Context, projectID common.ProjectID, clauseID common.ID) (*domain.ContractClause, error) {
	args := m.Called(ctx, projectID, clauseID)
	if c := args.Get(0); c != nil {
		return c.(*domain.ContractClause), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClauseService) Confirm(ctx context.Context, projectID common.ProjectID, clauseID common.ID, userID common.UserID) (*domain.ContractClause, error) {
	args := m.Called(ctx, projectID, clauseID, userID)
	if c := args.Get(0); c != nil {
		return c.(*domain.ContractClause), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- deadline service -------------------------------------------------------

type mockDeadlineService struct {
	mock.Mock
}

func (m *mockDeadlineService) Create(ctx context.Context, req appcompliance.CreateDeadlineRequest) (*domain.ComplianceDeadline, error) {
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

func (m *mockDeadlineService) RecalculateSeverities(ctx context.Context, projectID common.ProjectID) (*appcompliance.SeverityRecalcResult, error) {
	args := m.Called(ctx, projectID)
	if r := args.Get(0); r != nil {
		return r.(*appcompliance.SeverityRecalcResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- notice service ---------------------------------------------------------

type mockNoticeService struct {
	mock.Mock
}

func (m *mockNoticeService) Create(ctx context.Context, req appcompliance.CreateNoticeRequest) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, req)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) Get(ctx context.Context, projectID common.ProjectID, noticeID common.ID) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, noticeID)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) List(ctx context.Context, projectID common.ProjectID, filter domain.NoticeFilter) ([]*domain.ComplianceNotice, int64, error) {
	args := m.Called(ctx, projectID, filter)
	var out []*domain.ComplianceNotice
	if n := args.Get(0); n != nil {
		out = n.([]*domain.ComplianceNotice)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockNoticeService) GenerateDraft(ctx context.Context, projectID common.ProjectID, deadlineID common.ID, params appcompliance.GenerateDraftParams) (*appcompliance.DraftResult, error) {
	args := m.Called(ctx, projectID, deadlineID, params)
	if d := args.Get(0); d != nil {
		return d.(*appcompliance.DraftResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) Update(ctx context.Context, projectID common.ProjectID, noticeID common.ID, req appcompliance.UpdateNoticeRequest) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, noticeID, req)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) Regenerate(ctx context.Context, projectID common.ProjectID, noticeID common.ID, params appcompliance.GenerateDraftParams) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, noticeID, params)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) Send(ctx context.Context, projectID common.ProjectID, noticeID common.ID, userID common.UserID) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, noticeID, userID)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) ConfirmDelivery(ctx context.Context, projectID common.ProjectID, noticeID common.ID, req appcompliance.ConfirmDeliveryRequest) (*domain.ComplianceNotice, error) {
	args := m.Called(ctx, projectID, noticeID, req)
	if n := args.Get(0); n != nil {
		return n.(*domain.ComplianceNotice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoticeService) Delete(ctx context.Context, projectID common.ProjectID, noticeID common.ID, userID common.UserID) error {
	return m.Called(ctx, projectID, noticeID, userID).Error(0)
}

// --- score service ----------------------------------------------------------

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
	var out []*domain.ScoreSnapshot
	if s := args.Get(0); s != nil {
		out = s.([]*domain.ScoreSnapshot)
	}
	return out, args.Error(1)
}

func (m *mockScoreService) HealthComponent(ctx context.Context, projectID common.ProjectID) (*appcompliance.HealthComponent, error) {
	args := m.Called(ctx, projectID)
	if h := args.Get(0); h != nil {
		return h.(*appcompliance.HealthComponent), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- search service ---------------------------------------------------------

type mockSearchService struct {
	mock.Mock
}

func (m *mockSearchService) Search(ctx context.Context, projectID common.ProjectID, req appcompliance.SearchRequest) ([]appcompliance.SearchResult, error) {
	args := m.Called(ctx, projectID, req)
	var out []appcompliance.SearchResult
	if r := args.Get(0); r != nil {
		out = r.([]appcompliance.SearchResult)
	}
	return out, args.Error(1)
}

// --- holiday service --------------------------------------------------------

type mockHolidayService struct {
	mock.Mock
}

func (m *mockHolidayService) Add(ctx context.Context, req appcompliance.AddHolidayRequest) (*domain.ProjectHoliday, error) {
	args := m.Called(ctx, req)
	if h := args.Get(0); h != nil {
		return h.(*domain.ProjectHoliday), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHolidayService) Remove(ctx context.Context, projectID common.ProjectID, holidayID common.ID) error {
	return m.Called(ctx, projectID, holidayID).Error(0)
}

func (m *mockHolidayService) List(ctx context.Context, projectID common.ProjectID) ([]*domain.ProjectHoliday, error) {
	args := m.Called(ctx, projectID)
	var out []*domain.ProjectHoliday
	if h := args.Get(0); h != nil {
		return h.([]*domain.ProjectHoliday), args.Error(1)
	}
	return out, args.Error(1)
}

// --- fixtures ---------------------------------------------------------------

func fixtureClause() *domain.ContractClause {
	return &domain.ContractClause{
		ID:        "clause-1",
		ProjectID: testProjectID,
		Kind:      domain.KindChangeOrderProcess,
		Title:     "Change Order Notice",
		Content:   "Contractor shall provide written notice within 7 days.",
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func fixtureDeadline() *domain.ComplianceDeadline {
	return &domain.ComplianceDeadline{
		ID:                 "deadline-1",
		ProjectID:          testProjectID,
		ClauseID:           "clause-1",
		TriggerEventType:   domain.TriggerRFI,
		TriggerDescription: "RFI-042 flagged as potential change order",
		TriggeredAt:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		CalculatedDeadline: time.Date(2025, 3, 20, 23, 59, 59, 0, time.UTC),
		DeadlineTimezone:   "UTC",
		Status:             domain.DeadlineActive,
		Severity:           domain.SeverityLow,
	}
}

func fixtureNotice() *domain.ComplianceNotice {
	return &domain.ComplianceNotice{
		ID:            "notice-1",
		ProjectID:     testProjectID,
		Type:          "CHANGE_ORDER",
		Status:        domain.NoticeDraft,
		Title:         "Notice of Change",
		Content:       "Pursuant to section 4.2...",
		RecipientName: "GC Contracting LLC",
		CreatedByID:   testUserID,
	}
}
