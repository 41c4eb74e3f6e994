// Package compliance defines the contract-compliance domain model: extracted
// contract clauses, trigger-driven deadlines, formal notices, project scores,
// audit entries, and project holidays.  All business invariants live on these
// types; persistence and transport concerns live elsewhere.
package compliance

import (
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// ClauseKind enumeration
// ─────────────────────────────────────────────────────────────────────────────

// ClauseKind categorizes a contract clause by its legal function.  The set is
// closed: extraction output with any other kind is discarded.
type ClauseKind string

const (
	KindPaymentTerms            ClauseKind = "PAYMENT_TERMS"
	KindChangeOrderProcess      ClauseKind = "CHANGE_ORDER_PROCESS"
	KindClaimsProcedure         ClauseKind = "CLAIMS_PROCEDURE"
	KindDisputeResolution       ClauseKind = "DISPUTE_RESOLUTION"
	KindNoticeRequirements      ClauseKind = "NOTICE_REQUIREMENTS"
	KindRetention               ClauseKind = "RETENTION"
	KindWarranty                ClauseKind = "WARRANTY"
	KindInsurance               ClauseKind = "INSURANCE"
	KindIndemnification         ClauseKind = "INDEMNIFICATION"
	KindTermination             ClauseKind = "TERMINATION"
	KindForceMajeure            ClauseKind = "FORCE_MAJEURE"
	KindLiquidatedDamages       ClauseKind = "LIQUIDATED_DAMAGES"
	KindSchedule                ClauseKind = "SCHEDULE"
	KindSafety                  ClauseKind = "SAFETY"
	KindGeneralConditions       ClauseKind = "GENERAL_CONDITIONS"
	KindSupplementaryConditions ClauseKind = "SUPPLEMENTARY_CONDITIONS"
)

// allClauseKinds is the closed membership set used for validation.
var allClauseKinds = map[ClauseKind]struct{}{
	KindPaymentTerms: {}, KindChangeOrderProcess: {}, KindClaimsProcedure: {},
	KindDisputeResolution: {}, KindNoticeRequirements: {}, KindRetention: {},
	KindWarranty: {}, KindInsurance: {}, KindIndemnification: {},
	KindTermination: {}, KindForceMajeure: {}, KindLiquidatedDamages: {},
	KindSchedule: {}, KindSafety: {}, KindGeneralConditions: {},
	KindSupplementaryConditions: {},
}

// IsValid reports whether k is a member of the closed clause-kind set.
func (k ClauseKind) IsValid() bool {
	_, ok := allClauseKinds[k]
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// DeadlinePeriodType enumeration
// ─────────────────────────────────────────────────────────────────────────────

// DeadlinePeriodType is the unit a clause's deadline window is expressed in.
type DeadlinePeriodType string

const (
	PeriodCalendarDays DeadlinePeriodType = "CALENDAR_DAYS"
	PeriodBusinessDays DeadlinePeriodType = "BUSINESS_DAYS"
	PeriodHours        DeadlinePeriodType = "HOURS"
)

// IsValid reports whether t is a recognized period type.
func (t DeadlinePeriodType) IsValid() bool {
	switch t {
	case PeriodCalendarDays, PeriodBusinessDays, PeriodHours:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// NoticeMethod enumeration
// ─────────────────────────────────────────────────────────────────────────────

// NoticeMethod is the contractually required channel for delivering a notice.
type NoticeMethod string

const (
	MethodWrittenNotice  NoticeMethod = "WRITTEN_NOTICE"
	MethodCertifiedMail  NoticeMethod = "CERTIFIED_MAIL"
	MethodEmail          NoticeMethod = "EMAIL"
	MethodHandDelivery   NoticeMethod = "HAND_DELIVERY"
	MethodRegisteredMail NoticeMethod = "REGISTERED_MAIL"
)

// IsValid reports whether m is a recognized notice method.
func (m NoticeMethod) IsValid() bool {
	switch m {
	case MethodWrittenNotice, MethodCertifiedMail, MethodEmail,
		MethodHandDelivery, MethodRegisteredMail:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// ContractClause entity
// ─────────────────────────────────────────────────────────────────────────────

// ContractClause is a single obligation extracted from a subcontract.  Clauses
// with deadline terms (DeadlineDays + DeadlineType) are the source material
// for compliance deadlines; the rest are informational.
type ContractClause struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`

	Kind       ClauseKind `json:"kind"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	SectionRef *string    `json:"sectionRef,omitempty"`

	// Deadline terms.  Both must be present for the clause to produce
	// compliance deadlines.
	DeadlineDays *int                `json:"deadlineDays,omitempty"`
	DeadlineType *DeadlinePeriodType `json:"deadlineType,omitempty"`

	NoticeMethod *NoticeMethod `json:"noticeMethod,omitempty"`

	// Trigger is the free-text description of the contractual event that
	// starts the clock (e.g. "discovery of differing site condition").
	Trigger *string `json:"trigger,omitempty"`

	// Cure period terms, measured from the primary deadline.
	CurePeriodDays *int                `json:"curePeriodDays,omitempty"`
	CurePeriodType *DeadlinePeriodType `json:"curePeriodType,omitempty"`

	FlowDownProvisions *string `json:"flowDownProvisions,omitempty"`
	ParentClauseRef    *string `json:"parentClauseRef,omitempty"`

	// Review workflow.  RequiresReview is set for AI-extracted clauses the
	// model was uncertain about; confirmation is a one-way latch.
	RequiresReview bool       `json:"requiresReview"`
	ReviewReason   *string    `json:"reviewReason,omitempty"`
	Confirmed      bool       `json:"confirmed"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	ConfirmedBy    *string    `json:"confirmedBy,omitempty"`

	AIExtracted bool    `json:"aiExtracted"`
	AIModel     *string `json:"aiModel,omitempty"`
	SourceDocID *string `json:"sourceDocId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewClause creates a ContractClause with validation.
//
// Business rules:
//   - Kind must be a member of the closed clause-kind set
//   - Title and Content must not be empty
func NewClause(projectID common.ProjectID, kind ClauseKind, title, content string) (*ContractClause, error) {
	if !kind.IsValid() {
		return nil, errors.New(errors.ErrCodeClauseInvalidKind, "unknown clause kind "+string(kind))
	}
	if title == "" {
		return nil, errors.InvalidParam("clause title must not be empty")
	}
	if content == "" {
		return nil, errors.InvalidParam("clause content must not be empty")
	}

	now := time.Now().UTC()
	return &ContractClause{
		ID:        common.NewID(),
		ProjectID: projectID,
		Kind:      kind,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasDeadlineTerms reports whether the clause defines a usable deadline window.
func (c *ContractClause) HasDeadlineTerms() bool {
	return c.DeadlineDays != nil && c.DeadlineType != nil && *c.DeadlineDays > 0
}

// HasCurePeriod reports whether the clause defines cure-period terms.
func (c *ContractClause) HasCurePeriod() bool {
	return c.CurePeriodDays != nil && c.CurePeriodType != nil && *c.CurePeriodDays > 0
}

// Confirm latches the clause as human-verified: Confirmed becomes true,
// ConfirmedAt/ConfirmedBy are stamped, and RequiresReview is cleared.
// Confirmation cannot be undone; confirming an already-confirmed clause only
// refreshes UpdatedAt.
func (c *ContractClause) Confirm(userID string, at time.Time) {
	if !c.Confirmed {
		c.Confirmed = true
		at = at.UTC()
		c.ConfirmedAt = &at
		c.ConfirmedBy = &userID
	}
	c.RequiresReview = false
	c.UpdatedAt = time.Now().UTC()
}

// SectionOrTitle returns the section reference when present, otherwise the
// title.  Used in trigger descriptions and notice bodies.
func (c *ContractClause) SectionOrTitle() string {
	if c.SectionRef != nil && *c.SectionRef != "" {
		return *c.SectionRef
	}
	return c.Title
}
