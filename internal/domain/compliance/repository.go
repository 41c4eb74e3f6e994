package compliance

import (
	"context"
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ClauseFilter narrows clause listings.
type ClauseFilter struct {
	Kind           *ClauseKind
	Confirmed      *bool
	RequiresReview *bool
	Limit          int
	Offset         int
}

// DeadlineFilter narrows deadline listings.
type DeadlineFilter struct {
	Statuses   []DeadlineStatus
	Severities []Severity
	Limit      int
	Offset     int
}

// DeadlineWithClause joins a deadline with display fields from its clause.
type DeadlineWithClause struct {
	ComplianceDeadline
	ClauseTitle      string  `json:"clauseTitle"`
	ClauseKind       string  `json:"clauseKind"`
	ClauseSectionRef *string `json:"clauseSectionRef,omitempty"`
}

// ClauseRepository is the persistence contract for contract clauses.
type ClauseRepository interface {
	Create(ctx context.Context, clause *ContractClause) error
	CreateBatch(ctx context.Context, clauses []*ContractClause) error
	GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*ContractClause, error)
	List(ctx context.Context, projectID common.ProjectID, filter ClauseFilter) ([]*ContractClause, int64, error)
	Update(ctx context.Context, clause *ContractClause) error

	// DeleteExtracted removes prior AI-extracted clauses for a source document
	// so that re-parsing replaces rather than accumulates.  Returns the number
	// of rows removed.
	DeleteExtracted(ctx context.Context, projectID common.ProjectID, sourceDocID string) (int, error)

	// ListTriggerable returns clauses of the given kinds that carry usable
	// deadline terms.
	ListTriggerable(ctx context.Context, projectID common.ProjectID, kinds []ClauseKind) ([]*ContractClause, error)

	// Search performs a case-insensitive substring match over title, content,
	// and section reference.
	Search(ctx context.Context, projectID common.ProjectID, query string, limit int) ([]*ContractClause, error)
}

// DeadlineRepository is the persistence contract for compliance deadlines.
type DeadlineRepository interface {
	Create(ctx context.Context, deadline *ComplianceDeadline) error
	GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*ComplianceDeadline, error)
	Update(ctx context.Context, deadline *ComplianceDeadline) error
	List(ctx context.Context, projectID common.ProjectID, filter DeadlineFilter) ([]*DeadlineWithClause, int64, error)

	// FindOpenByKey returns the non-terminal deadline matching the
	// idempotency tuple, or nil when none exists.
	FindOpenByKey(ctx context.Context, key IdempotencyKey) (*ComplianceDeadline, error)

	// ListOpen returns every non-terminal deadline for a project.
	ListOpen(ctx context.Context, projectID common.ProjectID) ([]*ComplianceDeadline, error)

	// ListOpenDueBefore returns non-terminal deadlines whose calculated
	// deadline falls on or before cutoff, joined with clause display fields.
	ListOpenDueBefore(ctx context.Context, projectID common.ProjectID, cutoff time.Time) ([]*DeadlineWithClause, error)

	// ProjectsWithOpenDeadlines returns the distinct projects that have at
	// least one ACTIVE or NOTICE_DRAFTED deadline.  Drives the hourly pass.
	ProjectsWithOpenDeadlines(ctx context.Context) ([]common.ProjectID, error)

	// GetByNoticeID returns the deadline linked to the given notice, or nil.
	GetByNoticeID(ctx context.Context, projectID common.ProjectID, noticeID common.ID) (*ComplianceDeadline, error)

	// Search matches trigger descriptions and joined clause titles.
	Search(ctx context.Context, projectID common.ProjectID, query string, filter DeadlineFilter) ([]*DeadlineWithClause, error)
}

// NoticeFilter narrows notice listings.
type NoticeFilter struct {
	Statuses []NoticeStatus
	Limit    int
	Offset   int
}

// NoticeRepository is the persistence contract for compliance notices.
type NoticeRepository interface {
	Create(ctx context.Context, notice *ComplianceNotice) error
	GetByID(ctx context.Context, projectID common.ProjectID, id common.ID) (*ComplianceNotice, error)
	Update(ctx context.Context, notice *ComplianceNotice) error
	Delete(ctx context.Context, projectID common.ProjectID, id common.ID) error
	List(ctx context.Context, projectID common.ProjectID, filter NoticeFilter) ([]*ComplianceNotice, int64, error)

	// ListSent returns notices in SENT or ACKNOWLEDGED status ordered by
	// sentAt descending.  Feeds the scoring engine.
	ListSent(ctx context.Context, projectID common.ProjectID) ([]*ComplianceNotice, error)

	// CountSentSince counts notices sent at or after since.
	CountSentSince(ctx context.Context, projectID common.ProjectID, since time.Time) (int, error)

	// Search matches title, content, and recipient name.
	Search(ctx context.Context, projectID common.ProjectID, query string, limit int) ([]*ComplianceNotice, error)
}

// ScoreRepository is the persistence contract for scores and their history.
type ScoreRepository interface {
	// GetByProject returns the live score, or nil when the project has none.
	GetByProject(ctx context.Context, projectID common.ProjectID) (*ComplianceScore, error)

	// Upsert writes the live score, keyed on project.
	Upsert(ctx context.Context, score *ComplianceScore) error

	// UpsertSnapshot writes a history point keyed on
	// (project, snapshot date, period).
	UpsertSnapshot(ctx context.Context, snapshot *ScoreSnapshot) error

	// HasSnapshot reports whether a snapshot already exists for the key.
	HasSnapshot(ctx context.Context, projectID common.ProjectID, date time.Time, period SnapshotPeriod) (bool, error)

	// ListSnapshots returns up to limit history points for the period,
	// newest first.
	ListSnapshots(ctx context.Context, projectID common.ProjectID, period SnapshotPeriod, limit int) ([]*ScoreSnapshot, error)
}

// AuditRepository is the persistence contract for the append-only audit log.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, projectID common.ProjectID, limit, offset int) ([]*AuditEntry, int64, error)
}

// HolidayRepository is the persistence contract for project holidays.
type HolidayRepository interface {
	// Create inserts a holiday; a duplicate (project, date) pair yields
	// ErrCodeHolidayDuplicate.
	Create(ctx context.Context, holiday *ProjectHoliday) error
	Delete(ctx context.Context, projectID common.ProjectID, id common.ID) error
	List(ctx context.Context, projectID common.ProjectID) ([]*ProjectHoliday, error)

	// ListInRange returns holidays with from <= date <= to.
	ListInRange(ctx context.Context, projectID common.ProjectID, from, to time.Time) ([]*ProjectHoliday, error)
}
