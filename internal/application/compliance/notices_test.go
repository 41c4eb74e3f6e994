package compliance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/intelligence/contractllm"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type noticeFixture struct {
	notices   *mockNoticeRepo
	deadlines *mockDeadlineRepo
	clauses   *mockClauseRepo
	audits    *mockAuditRepo
	projects  *mockProjectRepo
	llm       *mockLLM
	mailer    *mockMailer
	refresher *mockScoreRefresher
	svc       NoticeService
	now       time.Time
}

func newNoticeFixture() *noticeFixture {
	f := &noticeFixture{
		notices:   new(mockNoticeRepo),
		deadlines: new(mockDeadlineRepo),
		clauses:   new(mockClauseRepo),
		audits:    new(mockAuditRepo),
		projects:  new(mockProjectRepo),
		llm:       new(mockLLM),
		mailer:    new(mockMailer),
		refresher: new(mockScoreRefresher),
		now:       time.Date(2025, 7, 3, 16, 0, 0, 0, time.UTC),
	}
	f.svc = NewNoticeService(f.notices, f.deadlines, f.clauses, f.audits,
		f.projects, f.llm, contractllm.DefaultConfig(), f.mailer, f.refresher,
		passthroughTx{}, logging.NewNopLogger())
	f.svc.(*noticeService).now = func() time.Time { return f.now }
	return f
}

func draftNotice(t *testing.T, projectID common.ProjectID, due *time.Time) *domain.ComplianceNotice {
	t.Helper()
	notice, err := domain.NewNotice(projectID, "CLAIMS_PROCEDURE",
		"Notice of Claim - Differing Site Condition",
		"Formal notice content.", "Pat GC", common.UserID("user-1"))
	require.NoError(t, err)
	email := "gc@example.com"
	notice.RecipientEmail = &email
	notice.DueDate = due
	return notice
}

func TestNoticeService_Create_LinksDeadline(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	deadline, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerRFI,
		nil, "desc", f.now.Add(-24*time.Hour), f.now.Add(48*time.Hour), "UTC")
	require.NoError(t, err)

	f.deadlines.On("GetByID", ctx, projectID, deadline.ID).Return(deadline, nil)
	f.notices.On("Create", ctx, mock.Anything).Return(nil)
	f.deadlines.On("Update", ctx, deadline).Return(nil)
	f.audits.On("Append", ctx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.EventType == domain.AuditNoticeCreated &&
			e.Detail["deadlineId"] == string(deadline.ID)
	})).Return(nil)

	got, err := f.svc.Create(ctx, CreateNoticeRequest{
		ProjectID:     projectID,
		DeadlineID:    &deadline.ID,
		Type:          "CLAIMS_PROCEDURE",
		Title:         "Notice of Claim",
		Content:       "body",
		RecipientName: "Pat GC",
		CreatedBy:     "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.NoticeDraft, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(deadline.CalculatedDeadline))
	assert.Equal(t, deadline.ClauseID, *got.ClauseID)

	assert.Equal(t, domain.DeadlineNoticeDrafted, deadline.Status)
	require.NotNil(t, deadline.NoticeID)
	assert.Equal(t, got.ID, *deadline.NoticeID)
	f.audits.AssertExpectations(t)
}

func TestNoticeService_Create_Standalone(t *testing.T) {
	ctx := context.Background()
	f := newNoticeFixture()

	f.notices.On("Create", ctx, mock.Anything).Return(nil)
	f.audits.On("Append", ctx, mock.Anything).Return(nil)

	got, err := f.svc.Create(ctx, CreateNoticeRequest{
		ProjectID:     "proj-1",
		Type:          "GENERAL",
		Title:         "Schedule impact letter",
		RecipientName: "Pat GC",
		CreatedBy:     "user-1",
	})
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
	f.deadlines.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestNoticeService_GenerateDraft(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	clause := sectionClause(projectID, domain.KindClaimsProcedure,
		"Claims Procedure", "Article 12.3", 3, domain.PeriodBusinessDays)
	method := domain.MethodCertifiedMail
	clause.NoticeMethod = &method

	deadline, err := domain.NewDeadline(projectID, clause.ID, domain.TriggerRFI,
		nil, "RFI #42 flagged as potential change order",
		time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 7, 23, 59, 59, 0, time.UTC), "UTC")
	require.NoError(t, err)

	gcName := "Dana Roberts"
	gcEmail := "dana@gcbuilders.com"
	proj := &project.Project{
		ID:             projectID,
		Name:           "Riverside Medical Tower",
		GCContactName:  &gcName,
		GCContactEmail: &gcEmail,
	}

	f.deadlines.On("GetByID", ctx, projectID, deadline.ID).Return(deadline, nil)
	f.clauses.On("GetByID", ctx, projectID, clause.ID).Return(clause, nil)
	f.projects.On("GetProject", ctx, projectID).Return(proj, nil)
	f.llm.On("Complete", ctx, mock.MatchedBy(func(req contractllm.Request) bool {
		return req.Model == contractllm.DefaultConfig().DraftingModel &&
			strings.Contains(req.User, "Claims Procedure") &&
			strings.Contains(req.User, "Article 12.3") &&
			strings.Contains(req.User, "Dana Roberts") &&
			strings.Contains(req.User, "July 07, 2025") &&
			strings.Contains(req.User, "CERTIFIED_MAIL")
	})).Return(&contractllm.Completion{
		Content: "Dear Ms. Roberts, ...",
		Model:   "claude-sonnet-4-20250514",
		Usage:   contractllm.Usage{InputTokens: 900, OutputTokens: 600},
	}, nil)

	draft, err := f.svc.GenerateDraft(ctx, projectID, deadline.ID, GenerateDraftParams{
		FromName: "Alex Kim",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dear Ms. Roberts, ...", draft.Content)
	assert.Equal(t, 1500, draft.TokensUsed)
	f.llm.AssertExpectations(t)
}

func TestNoticeService_GenerateDraft_GCFallback(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	clause := sectionClause(projectID, domain.KindNoticeRequirements,
		"Notice Requirements", "4.2", 7, domain.PeriodCalendarDays)
	deadline, err := domain.NewDeadline(projectID, clause.ID, domain.TriggerManual,
		nil, "desc", f.now, f.now.Add(7*24*time.Hour), "UTC")
	require.NoError(t, err)

	f.deadlines.On("GetByID", ctx, projectID, deadline.ID).Return(deadline, nil)
	f.clauses.On("GetByID", ctx, projectID, clause.ID).Return(clause, nil)
	f.projects.On("GetProject", ctx, projectID).
		Return(&project.Project{ID: projectID, Name: "Bare Project"}, nil)
	f.llm.On("Complete", ctx, mock.MatchedBy(func(req contractllm.Request) bool {
		// Missing GC contact and sender fall back to generic identities.
		return strings.Contains(req.User, "General Contractor") &&
			strings.Contains(req.User, "Project Manager")
	})).Return(&contractllm.Completion{Content: "draft", Model: "m"}, nil)

	_, err = f.svc.GenerateDraft(ctx, projectID, deadline.ID, GenerateDraftParams{})
	require.NoError(t, err)
	f.llm.AssertExpectations(t)
}

func TestNoticeService_Update_SentIsFrozen(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	notice := draftNotice(t, projectID, nil)
	require.NoError(t, notice.MarkSent(f.now, true))

	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)

	title := "edited"
	_, err := f.svc.Update(ctx, projectID, notice.ID, UpdateNoticeRequest{Title: &title})
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeNotEditable))
	f.notices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestNoticeService_Send_OnTime(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	due := f.now.Add(24 * time.Hour)
	notice := draftNotice(t, projectID, &due)

	deadline, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerRFI,
		nil, "desc", f.now.Add(-48*time.Hour), due, "UTC")
	require.NoError(t, err)
	require.NoError(t, deadline.AttachDraft(notice.ID, f.now.Add(-time.Hour)))

	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)
	f.mailer.On("Send", ctx, "gc@example.com", "Pat GC", notice.Title, notice.Content).
		Return(nil)
	f.notices.On("Update", ctx, notice).Return(nil)
	f.deadlines.On("GetByNoticeID", ctx, projectID, notice.ID).Return(deadline, nil)
	f.deadlines.On("Update", ctx, deadline).Return(nil)
	f.audits.On("Append", ctx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.EventType == domain.AuditNoticeSent &&
			e.Detail["emailSent"] == true &&
			e.Detail["onTime"] == true
	})).Return(nil)
	f.refresher.On("RequestRefresh", ctx, projectID).Return(nil)

	got, err := f.svc.Send(ctx, projectID, notice.ID, "user-1")
	require.NoError(t, err)

	assert.Equal(t, domain.NoticeSent, got.Status)
	require.NotNil(t, got.OnTimeStatus)
	assert.True(t, *got.OnTimeStatus)
	assert.NotNil(t, got.DeliveredAt)
	assert.Contains(t, got.DeliveryMethods, domain.DeliveryMethodEmail)
	assert.Equal(t, domain.DeadlineNoticeSent, deadline.Status)
	f.refresher.AssertExpectations(t)
}

func TestNoticeService_Send_LateAndTransportFailure(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	due := f.now.Add(-time.Hour)
	notice := draftNotice(t, projectID, &due)

	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)
	f.mailer.On("Send", ctx, "gc@example.com", "Pat GC", notice.Title, notice.Content).
		Return(errors.New(errors.ErrCodeEmailSendFailed, "smtp refused"))
	f.notices.On("Update", ctx, notice).Return(nil)
	f.deadlines.On("GetByNoticeID", ctx, projectID, notice.ID).Return(nil, nil)
	f.audits.On("Append", ctx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.Detail["emailSent"] == false && e.Detail["onTime"] == false
	})).Return(nil)
	f.refresher.On("RequestRefresh", ctx, projectID).Return(nil)

	got, err := f.svc.Send(ctx, projectID, notice.ID, "user-1")
	require.NoError(t, err)

	// The send is recorded even when the transport refused the message.
	assert.Equal(t, domain.NoticeSent, got.Status)
	assert.Nil(t, got.DeliveredAt)
	assert.False(t, *got.OnTimeStatus)
	f.audits.AssertExpectations(t)
}

func TestNoticeService_Send_RequiresRecipientEmail(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	notice := draftNotice(t, projectID, nil)
	notice.RecipientEmail = nil
	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)

	_, err := f.svc.Send(ctx, projectID, notice.ID, "user-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeRecipientMissing))
	f.mailer.AssertNotCalled(t, "Send",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNoticeService_ConfirmDelivery(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	notice := draftNotice(t, projectID, nil)
	require.NoError(t, notice.MarkSent(f.now.Add(-24*time.Hour), true))

	deadline, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerRFI,
		nil, "desc", f.now.Add(-72*time.Hour), f.now.Add(24*time.Hour), "UTC")
	require.NoError(t, err)
	require.NoError(t, deadline.AttachDraft(notice.ID, f.now.Add(-48*time.Hour)))
	require.NoError(t, deadline.MarkNoticeSent())

	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)
	f.notices.On("Update", ctx, notice).Return(nil)
	f.deadlines.On("GetByNoticeID", ctx, projectID, notice.ID).Return(deadline, nil)
	f.deadlines.On("Update", ctx, deadline).Return(nil)
	f.audits.On("Append", ctx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.EventType == domain.AuditDeliveryConfirmed &&
			e.Detail["method"] == "CERTIFIED_MAIL"
	})).Return(nil)

	tracking := "9407 1000 0000 0000 0000 01"
	got, err := f.svc.ConfirmDelivery(ctx, projectID, notice.ID, ConfirmDeliveryRequest{
		Method:         "CERTIFIED_MAIL",
		TrackingNumber: &tracking,
		ConfirmedBy:    "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.NoticeAcknowledged, got.Status)
	assert.Contains(t, got.DeliveryMethods, "CERTIFIED_MAIL")
	require.Contains(t, got.DeliveryConfirmation, "certifiedMail")
	assert.Equal(t, tracking, *got.DeliveryConfirmation["certifiedMail"].TrackingNumber)
	assert.Equal(t, domain.DeadlineAcknowledged, deadline.Status)
}

func TestNoticeService_Delete_UnlinksDeadline(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	notice := draftNotice(t, projectID, nil)
	deadline, err := domain.NewDeadline(projectID, common.NewID(), domain.TriggerRFI,
		nil, "desc", f.now.Add(-24*time.Hour), f.now.Add(48*time.Hour), "UTC")
	require.NoError(t, err)
	require.NoError(t, deadline.AttachDraft(notice.ID, f.now))

	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)
	f.deadlines.On("GetByNoticeID", ctx, projectID, notice.ID).Return(deadline, nil)
	f.deadlines.On("Update", ctx, deadline).Return(nil)
	f.audits.On("Append", ctx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.EventType == domain.AuditNoticeDeleted &&
			e.Detail["title"] == notice.Title
	})).Return(nil)
	f.notices.On("Delete", ctx, projectID, notice.ID).Return(nil)

	require.NoError(t, f.svc.Delete(ctx, projectID, notice.ID, "user-1"))

	assert.Equal(t, domain.DeadlineActive, deadline.Status)
	assert.Nil(t, deadline.NoticeID)
	assert.Nil(t, deadline.NoticeCreatedAt)
	f.notices.AssertExpectations(t)
}

func TestNoticeService_Delete_SentIsRejected(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")
	f := newNoticeFixture()

	notice := draftNotice(t, projectID, nil)
	require.NoError(t, notice.MarkSent(f.now, true))
	f.notices.On("GetByID", ctx, projectID, notice.ID).Return(notice, nil)

	err := f.svc.Delete(ctx, projectID, notice.ID, "user-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeNotEditable))
	f.notices.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
