package compliance

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

func TestSearchService_AllTypes(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")

	clause := sectionClause(projectID, domain.KindClaimsProcedure,
		"Claims Procedure", "Article 12.3", 3, domain.PeriodBusinessDays)
	method := domain.MethodCertifiedMail
	clause.NoticeMethod = &method
	clause.RequiresReview = true

	deadline := alertDeadline(t, projectID, domain.SeverityCritical,
		time.Now().UTC().Add(48*time.Hour), "Claims Procedure", "Article 12.3")

	notice, err := domain.NewNotice(projectID, "CLAIMS_PROCEDURE",
		"Notice of Claim", "Formal claim notice content.", "Pat GC", "user-1")
	require.NoError(t, err)

	clauses := new(mockClauseRepo)
	deadlines := new(mockDeadlineRepo)
	notices := new(mockNoticeRepo)

	clauses.On("Search", ctx, projectID, "claim", searchLimit).
		Return([]*domain.ContractClause{clause}, nil)
	deadlines.On("Search", ctx, projectID, "claim", domain.DeadlineFilter{Limit: searchLimit}).
		Return([]*domain.DeadlineWithClause{deadline}, nil)
	notices.On("Search", ctx, projectID, "claim", searchLimit).
		Return([]*domain.ComplianceNotice{notice}, nil)

	svc := NewSearchService(clauses, deadlines, notices, logging.NewNopLogger())

	results, err := svc.Search(ctx, projectID, SearchRequest{Query: "  claim "})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, SearchTypeClause, results[0].Type)
	assert.Equal(t, "Claims Procedure · 3 business days · Certified Mail", results[0].Description)
	assert.Equal(t, "Needs Review", results[0].Status)
	assert.Equal(t, "Article 12.3", results[0].Metadata["sectionRef"])

	assert.Equal(t, SearchTypeDeadline, results[1].Type)
	assert.Equal(t, "Deadline: Claims Procedure (Article 12.3)", results[1].Title)
	assert.Equal(t, "ACTIVE", results[1].Status)

	assert.Equal(t, SearchTypeNotice, results[2].Type)
	assert.Equal(t, "Notice of Claim", results[2].Title)
	assert.Equal(t, "DRAFT", results[2].Status)
}

func TestSearchService_TypeFilter(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")

	clauses := new(mockClauseRepo)
	deadlines := new(mockDeadlineRepo)
	notices := new(mockNoticeRepo)

	notices.On("Search", ctx, projectID, "retention", searchLimit).
		Return([]*domain.ComplianceNotice{}, nil)

	svc := NewSearchService(clauses, deadlines, notices, logging.NewNopLogger())

	results, err := svc.Search(ctx, projectID, SearchRequest{
		Query: "retention",
		Types: []string{SearchTypeNotice},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	clauses.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	deadlines.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_DeadlineFilters(t *testing.T) {
	ctx := context.Background()
	projectID := common.ProjectID("proj-1")

	status := domain.DeadlineActive
	severity := domain.SeverityCritical

	deadlines := new(mockDeadlineRepo)
	deadlines.On("Search", ctx, projectID, "rfi", domain.DeadlineFilter{
		Statuses:   []domain.DeadlineStatus{status},
		Severities: []domain.Severity{severity},
		Limit:      searchLimit,
	}).Return([]*domain.DeadlineWithClause{}, nil)

	svc := NewSearchService(new(mockClauseRepo), deadlines, new(mockNoticeRepo),
		logging.NewNopLogger())

	_, err := svc.Search(ctx, projectID, SearchRequest{
		Query:    "rfi",
		Types:    []string{SearchTypeDeadline},
		Status:   &status,
		Severity: &severity,
	})
	require.NoError(t, err)
	deadlines.AssertExpectations(t)
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc := NewSearchService(new(mockClauseRepo), new(mockDeadlineRepo),
		new(mockNoticeRepo), logging.NewNopLogger())

	_, err := svc.Search(context.Background(), "proj-1", SearchRequest{Query: "   "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestNoticeResult_TruncatesOnRuneBoundary(t *testing.T) {
	projectID := common.ProjectID("proj-1")

	// Multi-byte runes straddling the cut must not be split into invalid
	// UTF-8.
	content := strings.Repeat("a", 159) + "§ concrete pour delayed per §4.2"
	notice, err := domain.NewNotice(projectID, "NOTICE_REQUIREMENTS",
		"Notice of Delay", content, "Pat GC", "user-1")
	require.NoError(t, err)

	got := noticeResult(notice).Description
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 159)+"...", got)

	short, err := domain.NewNotice(projectID, "NOTICE_REQUIREMENTS",
		"Notice", "short body", "Pat GC", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "short body", noticeResult(short).Description)
}

func TestSearchService_ClauseStatusDisplay(t *testing.T) {
	projectID := common.ProjectID("proj-1")

	pending := sectionClause(projectID, domain.KindWarranty, "Warranty", "9.1", 0, domain.PeriodCalendarDays)
	pending.DeadlineDays = nil
	pending.DeadlineType = nil

	confirmed := sectionClause(projectID, domain.KindWarranty, "Warranty", "9.1", 0, domain.PeriodCalendarDays)
	confirmed.DeadlineDays = nil
	confirmed.DeadlineType = nil
	confirmed.Confirm("user-1", time.Now().UTC())

	assert.Equal(t, "Pending", clauseResult(pending).Status)
	assert.Equal(t, "Confirmed", clauseResult(confirmed).Status)

	pending.RequiresReview = true
	assert.Equal(t, "Needs Review", clauseResult(pending).Status)

	// Without deadline terms the description is just the kind.
	assert.Equal(t, "Warranty", clauseResult(pending).Description)
}
