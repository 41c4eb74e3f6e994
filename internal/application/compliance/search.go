package compliance

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// Search result types.
const (
	SearchTypeClause   = "contract_clause"
	SearchTypeDeadline = "compliance_deadline"
	SearchTypeNotice   = "compliance_notice"
)

// searchLimit caps results per entity type.
const searchLimit = 20

// SearchRequest is one cross-entity compliance search.
type SearchRequest struct {
	Query string
	// Types restricts which entity types to search; empty means all.
	Types []string
	// Status and Severity filter deadline results only.
	Status   *domain.DeadlineStatus
	Severity *domain.Severity
}

// SearchResult is one hit, shaped uniformly across entity types.
type SearchResult struct {
	ID          common.ID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"createdAt"`
}

// ---------------------------------------------------------------------------
// Search service
// ---------------------------------------------------------------------------

// SearchService runs substring search across clauses, deadlines, and notices.
type SearchService interface {
	Search(ctx context.Context, projectID common.ProjectID, req SearchRequest) ([]SearchResult, error)
}

type searchService struct {
	clauses   domain.ClauseRepository
	deadlines domain.DeadlineRepository
	notices   domain.NoticeRepository
	logger    logging.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(
	clauses domain.ClauseRepository,
	deadlines domain.DeadlineRepository,
	notices domain.NoticeRepository,
	logger logging.Logger,
) SearchService {
	return &searchService{
		clauses:   clauses,
		deadlines: deadlines,
		notices:   notices,
		logger:    logger.Named("search"),
	}
}

func (s *searchService) Search(ctx context.Context, projectID common.ProjectID, req SearchRequest) ([]SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.InvalidParam("search query must not be empty")
	}

	wanted := func(t string) bool {
		if len(req.Types) == 0 {
			return true
		}
		for _, w := range req.Types {
			if w == t {
				return true
			}
		}
		return false
	}

	results := []SearchResult{}

	if wanted(SearchTypeClause) {
		clauses, err := s.clauses.Search(ctx, projectID, query, searchLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range clauses {
			results = append(results, clauseResult(c))
		}
	}

	if wanted(SearchTypeDeadline) {
		filter := domain.DeadlineFilter{Limit: searchLimit}
		if req.Status != nil {
			filter.Statuses = []domain.DeadlineStatus{*req.Status}
		}
		if req.Severity != nil {
			filter.Severities = []domain.Severity{*req.Severity}
		}
		deadlines, err := s.deadlines.Search(ctx, projectID, query, filter)
		if err != nil {
			return nil, err
		}
		for _, d := range deadlines {
			results = append(results, deadlineResult(d))
		}
	}

	if wanted(SearchTypeNotice) {
		notices, err := s.notices.Search(ctx, projectID, query, searchLimit)
		if err != nil {
			return nil, err
		}
		for _, n := range notices {
			results = append(results, noticeResult(n))
		}
	}

	s.logger.Debug("search executed",
		logging.String("project_id", string(projectID)),
		logging.String("query", query),
		logging.Int("results", len(results)),
	)
	return results, nil
}

func clauseResult(c *domain.ContractClause) SearchResult {
	parts := []string{titleizeEnum(string(c.Kind))}
	if c.HasDeadlineTerms() {
		parts = append(parts, fmt.Sprintf("%d %s",
			*c.DeadlineDays, humanizeEnum(string(*c.DeadlineType))))
	}
	if c.NoticeMethod != nil {
		parts = append(parts, titleizeEnum(string(*c.NoticeMethod)))
	}

	status := "Pending"
	switch {
	case c.Confirmed:
		status = "Confirmed"
	case c.RequiresReview:
		status = "Needs Review"
	}

	metadata := map[string]any{"kind": string(c.Kind)}
	if c.SectionRef != nil {
		metadata["sectionRef"] = *c.SectionRef
	}

	return SearchResult{
		ID:          c.ID,
		Type:        SearchTypeClause,
		Title:       c.Title,
		Description: strings.Join(parts, " · "),
		Status:      status,
		Metadata:    metadata,
		CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func deadlineResult(d *domain.DeadlineWithClause) SearchResult {
	title := "Deadline: " + d.ClauseTitle
	if d.ClauseSectionRef != nil && *d.ClauseSectionRef != "" {
		title = fmt.Sprintf("Deadline: %s (%s)", d.ClauseTitle, *d.ClauseSectionRef)
	}
	return SearchResult{
		ID:          d.ID,
		Type:        SearchTypeDeadline,
		Title:       title,
		Description: d.TriggerDescription,
		Status:      string(d.Status),
		Metadata: map[string]any{
			"severity":           string(d.Severity),
			"calculatedDeadline": d.CalculatedDeadline.Format("2006-01-02T15:04:05Z07:00"),
		},
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func noticeResult(n *domain.ComplianceNotice) SearchResult {
	return SearchResult{
		ID:          n.ID,
		Type:        SearchTypeNotice,
		Title:       n.Title,
		Description: truncate(n.Content, 160),
		Status:      string(n.Status),
		Metadata:    map[string]any{"recipientName": n.RecipientName},
		CreatedAt:   n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// truncate shortens s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
