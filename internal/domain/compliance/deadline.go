package compliance

import (
	"fmt"
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// DeadlineStatus enumeration
// ─────────────────────────────────────────────────────────────────────────────

// DeadlineStatus tracks a compliance deadline through its workflow.
//
// Forward path: ACTIVE → NOTICE_DRAFTED → NOTICE_SENT → ACKNOWLEDGED/COMPLETED.
// WAIVED is reachable from any non-terminal status; EXPIRED is applied by the
// scheduler when the calculated deadline passes without a notice.
type DeadlineStatus string

const (
	// DeadlineActive means the clock is running and no notice has been drafted.
	DeadlineActive DeadlineStatus = "ACTIVE"

	// DeadlineNoticeDrafted means a draft notice is linked to this deadline.
	DeadlineNoticeDrafted DeadlineStatus = "NOTICE_DRAFTED"

	// DeadlineNoticeSent means the linked notice went out before or after the
	// deadline; on-time evaluation is frozen on the notice itself.
	DeadlineNoticeSent DeadlineStatus = "NOTICE_SENT"

	// DeadlineAcknowledged means the recipient confirmed receipt of the notice.
	DeadlineAcknowledged DeadlineStatus = "ACKNOWLEDGED"

	// DeadlineCompleted is the terminal success status.
	DeadlineCompleted DeadlineStatus = "COMPLETED"

	// DeadlineExpired is terminal: the deadline passed with no notice sent.
	// Only the scheduler applies this transition.
	DeadlineExpired DeadlineStatus = "EXPIRED"

	// DeadlineWaived is terminal: a user explicitly released the obligation.
	DeadlineWaived DeadlineStatus = "WAIVED"
)

// IsValid reports whether s is a recognized deadline status.
func (s DeadlineStatus) IsValid() bool {
	switch s {
	case DeadlineActive, DeadlineNoticeDrafted, DeadlineNoticeSent,
		DeadlineAcknowledged, DeadlineCompleted, DeadlineExpired, DeadlineWaived:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s DeadlineStatus) IsTerminal() bool {
	switch s {
	case DeadlineCompleted, DeadlineExpired, DeadlineWaived:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Severity enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Severity is the urgency classification of a deadline, recomputed hourly.
// Ordering: LOW < INFO < WARNING < CRITICAL < EXPIRED.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
	SeverityExpired  Severity = "EXPIRED"
)

// IsValid reports whether s is a recognized severity.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// severityRank fixes the total order used for comparisons and sorting.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityCritical: 3,
	SeverityExpired:  4,
}

// Rank returns the position of s in the severity order; unknown values rank
// below LOW.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at or above other in the severity order.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ─────────────────────────────────────────────────────────────────────────────
// TriggerEventType enumeration
// ─────────────────────────────────────────────────────────────────────────────

// TriggerEventType identifies what kind of project event started a deadline.
type TriggerEventType string

const (
	TriggerRFI              TriggerEventType = "RFI"
	TriggerChangeOrder      TriggerEventType = "CHANGE_ORDER"
	TriggerManual           TriggerEventType = "MANUAL"
	TriggerDocumentReceived TriggerEventType = "DOCUMENT_RECEIVED"
	TriggerOther            TriggerEventType = "OTHER"
)

// IsValid reports whether t is a recognized trigger event type.
func (t TriggerEventType) IsValid() bool {
	switch t {
	case TriggerRFI, TriggerChangeOrder, TriggerManual, TriggerDocumentReceived, TriggerOther:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// ComplianceDeadline entity
// ─────────────────────────────────────────────────────────────────────────────

// ComplianceDeadline is a running clock created when a project event matches a
// clause with deadline terms.  The calculated deadline is fixed at creation;
// status and severity evolve until a terminal status is reached.
type ComplianceDeadline struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`
	ClauseID  common.ID        `json:"clauseId"`

	TriggerEventType   TriggerEventType `json:"triggerEventType"`
	TriggerEventID     *string          `json:"triggerEventId,omitempty"`
	TriggerDescription string           `json:"triggerDescription"`
	TriggeredAt        time.Time        `json:"triggeredAt"`

	// CalculatedDeadline is the UTC instant the notice is due.  For day-based
	// windows this is end of day (23:59:59) on the computed date.
	CalculatedDeadline time.Time `json:"calculatedDeadline"`

	// CureDeadline is a virtual field computed from the clause's cure-period
	// terms relative to CalculatedDeadline.  It is never persisted.
	CureDeadline *time.Time `json:"cureDeadline,omitempty"`

	// DeadlineTimezone is a display hint only; all arithmetic is UTC.
	DeadlineTimezone string `json:"deadlineTimezone"`

	Status   DeadlineStatus `json:"status"`
	Severity Severity       `json:"severity"`

	// Draft-notice linkage, set atomically with the NOTICE_DRAFTED transition.
	NoticeID        *common.ID `json:"noticeId,omitempty"`
	NoticeCreatedAt *time.Time `json:"noticeCreatedAt,omitempty"`

	WaivedAt     *time.Time `json:"waivedAt,omitempty"`
	WaivedBy     *string    `json:"waivedBy,omitempty"`
	WaivedReason *string    `json:"waivedReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDeadline creates an ACTIVE ComplianceDeadline.  calculatedDeadline must
// already be computed by the calendar service.
func NewDeadline(
	projectID common.ProjectID,
	clauseID common.ID,
	eventType TriggerEventType,
	eventID *string,
	description string,
	triggeredAt time.Time,
	calculatedDeadline time.Time,
	timezone string,
) (*ComplianceDeadline, error) {
	if !eventType.IsValid() {
		return nil, errors.New(errors.ErrCodeTriggerEventInvalid,
			"unknown trigger event type "+string(eventType))
	}
	if calculatedDeadline.IsZero() {
		return nil, errors.InvalidParam("calculated deadline must not be zero")
	}

	now := time.Now().UTC()
	return &ComplianceDeadline{
		ID:                 common.NewID(),
		ProjectID:          projectID,
		ClauseID:           clauseID,
		TriggerEventType:   eventType,
		TriggerEventID:     eventID,
		TriggerDescription: description,
		TriggeredAt:        triggeredAt.UTC(),
		CalculatedDeadline: calculatedDeadline.UTC(),
		DeadlineTimezone:   timezone,
		Status:             DeadlineActive,
		Severity:           SeverityLow,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// validTransitions encodes the deadline state machine.  WAIVED is handled
// separately because it is reachable from every non-terminal status.
var validTransitions = map[DeadlineStatus][]DeadlineStatus{
	DeadlineActive:        {DeadlineNoticeDrafted, DeadlineExpired},
	DeadlineNoticeDrafted: {DeadlineActive, DeadlineNoticeSent, DeadlineExpired},
	DeadlineNoticeSent:    {DeadlineAcknowledged, DeadlineCompleted},
	DeadlineAcknowledged:  {DeadlineCompleted},
}

// CanTransitionTo reports whether the state machine allows moving to target.
func (d *ComplianceDeadline) CanTransitionTo(target DeadlineStatus) bool {
	if d.Status.IsTerminal() {
		return false
	}
	if target == DeadlineWaived {
		return true
	}
	for _, next := range validTransitions[d.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// transitionTo applies a validated status change and refreshes UpdatedAt.
func (d *ComplianceDeadline) transitionTo(target DeadlineStatus) error {
	if !d.CanTransitionTo(target) {
		return errors.InvalidState(fmt.Sprintf(
			"deadline cannot move from %s to %s", d.Status, target))
	}
	d.Status = target
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachDraft links a draft notice and moves the deadline to NOTICE_DRAFTED.
// The linkage fields and the status change are a single logical mutation.
func (d *ComplianceDeadline) AttachDraft(noticeID common.ID, at time.Time) error {
	if err := d.transitionTo(DeadlineNoticeDrafted); err != nil {
		return err
	}
	at = at.UTC()
	d.NoticeID = &noticeID
	d.NoticeCreatedAt = &at
	return nil
}

// DetachDraft unlinks a deleted draft notice and returns the deadline to
// ACTIVE so that a new draft can be created.
func (d *ComplianceDeadline) DetachDraft() error {
	if err := d.transitionTo(DeadlineActive); err != nil {
		return err
	}
	d.NoticeID = nil
	d.NoticeCreatedAt = nil
	return nil
}

// MarkNoticeSent records that the linked notice went out.
func (d *ComplianceDeadline) MarkNoticeSent() error {
	return d.transitionTo(DeadlineNoticeSent)
}

// Acknowledge records recipient confirmation of the sent notice.
func (d *ComplianceDeadline) Acknowledge() error {
	return d.transitionTo(DeadlineAcknowledged)
}

// Complete marks the obligation fulfilled.
func (d *ComplianceDeadline) Complete() error {
	return d.transitionTo(DeadlineCompleted)
}

// Expire is the scheduler's terminal transition for deadlines that passed
// without a notice.  Severity is pinned to EXPIRED.
func (d *ComplianceDeadline) Expire() error {
	if err := d.transitionTo(DeadlineExpired); err != nil {
		return err
	}
	d.Severity = SeverityExpired
	return nil
}

// Waive releases the obligation, recording who waived it and why.  Severity
// drops to LOW so waived deadlines never surface in at-risk rollups.
func (d *ComplianceDeadline) Waive(userID, reason string, at time.Time) error {
	if d.Status.IsTerminal() {
		return errors.New(errors.ErrCodeDeadlineTerminal, fmt.Sprintf(
			"deadline is already %s", d.Status))
	}
	if err := d.transitionTo(DeadlineWaived); err != nil {
		return err
	}
	at = at.UTC()
	d.WaivedAt = &at
	d.WaivedBy = &userID
	d.WaivedReason = &reason
	d.Severity = SeverityLow
	return nil
}

// IsOpen reports whether the deadline still needs attention (non-terminal).
func (d *ComplianceDeadline) IsOpen() bool {
	return !d.Status.IsTerminal()
}

// IdempotencyKey identifies the logical trigger so that re-delivered events
// do not create duplicate deadlines while a matching one is non-terminal.
type IdempotencyKey struct {
	ProjectID        common.ProjectID
	ClauseID         common.ID
	TriggerEventID   string
	TriggerEventType TriggerEventType
}

// Key returns the idempotency tuple for this deadline.  TriggerEventID is
// empty for manual triggers, which are never deduplicated.
func (d *ComplianceDeadline) Key() IdempotencyKey {
	id := ""
	if d.TriggerEventID != nil {
		id = *d.TriggerEventID
	}
	return IdempotencyKey{
		ProjectID:        d.ProjectID,
		ClauseID:         d.ClauseID,
		TriggerEventID:   id,
		TriggerEventType: d.TriggerEventType,
	}
}
