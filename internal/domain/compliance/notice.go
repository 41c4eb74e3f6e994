package compliance

import (
	"fmt"
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// NoticeStatus enumeration
// ─────────────────────────────────────────────────────────────────────────────

// NoticeStatus tracks a notice from draft to recipient acknowledgment.
type NoticeStatus string

const (
	// NoticeDraft is the initial editable status.
	NoticeDraft NoticeStatus = "DRAFT"

	// NoticePendingReview means the draft awaits human review; still editable.
	NoticePendingReview NoticeStatus = "PENDING_REVIEW"

	// NoticeSent means the notice went out; content is frozen.
	NoticeSent NoticeStatus = "SENT"

	// NoticeAcknowledged means delivery was confirmed through at least one
	// formal channel.
	NoticeAcknowledged NoticeStatus = "ACKNOWLEDGED"
)

// IsValid reports whether s is a recognized notice status.
func (s NoticeStatus) IsValid() bool {
	switch s {
	case NoticeDraft, NoticePendingReview, NoticeSent, NoticeAcknowledged:
		return true
	}
	return false
}

// IsEditable reports whether content and recipient fields may still change.
func (s NoticeStatus) IsEditable() bool {
	return s == NoticeDraft || s == NoticePendingReview
}

// ─────────────────────────────────────────────────────────────────────────────
// Delivery methods
// ─────────────────────────────────────────────────────────────────────────────

// DeliveryMethodEmail is the canonical key recorded when a notice is sent by
// the engine's own email transport.
const DeliveryMethodEmail = "EMAIL"

// canonicalDeliveryKeys maps accepted confirm-delivery inputs to the
// camelCase keys used in the DeliveryConfirmation map.
var canonicalDeliveryKeys = map[string]string{
	"EMAIL":           "email",
	"CERTIFIED_MAIL":  "certifiedMail",
	"REGISTERED_MAIL": "registeredMail",
	"HAND_DELIVERY":   "handDelivery",
	"FAX":             "fax",
	"COURIER":         "courier",
}

// CanonicalDeliveryKey translates a delivery-method input to its canonical
// confirmation-map key.  Unknown methods are rejected.
func CanonicalDeliveryKey(method string) (string, error) {
	if key, ok := canonicalDeliveryKeys[method]; ok {
		return key, nil
	}
	return "", errors.New(errors.ErrCodeDeliveryMethodInvalid,
		"unsupported delivery method "+method)
}

// DeliveryConfirmation is one per-method confirmation record appended when a
// physical or electronic delivery is verified.
type DeliveryConfirmation struct {
	TrackingNumber *string    `json:"trackingNumber,omitempty"`
	Carrier        *string    `json:"carrier,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	SignedBy       *string    `json:"signedBy,omitempty"`
	ReceivedBy     *string    `json:"receivedBy,omitempty"`
	ConfirmedBy    string     `json:"confirmedBy"`
	ConfirmedAt    time.Time  `json:"confirmedAt"`
}

// ─────────────────────────────────────────────────────────────────────────────
// ComplianceNotice entity
// ─────────────────────────────────────────────────────────────────────────────

// ComplianceNotice is a formal contractual letter tied (usually) to a clause
// and a deadline.  Content may be human-written or AI-drafted; once sent, the
// on-time outcome is frozen and never recomputed.
type ComplianceNotice struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`
	ClauseID  *common.ID       `json:"clauseId,omitempty"`

	Type    string       `json:"type"`
	Status  NoticeStatus `json:"status"`
	Title   string       `json:"title"`
	Content string       `json:"content"`

	RecipientName  string  `json:"recipientName"`
	RecipientEmail *string `json:"recipientEmail,omitempty"`

	// DueDate mirrors the linked deadline's calculated deadline; nil for
	// standalone notices.
	DueDate *time.Time `json:"dueDate,omitempty"`

	SentAt         *time.Time `json:"sentAt,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`

	// DeliveryMethods lists every channel the notice went out or was
	// confirmed on, in canonical input form (e.g. "EMAIL", "CERTIFIED_MAIL").
	DeliveryMethods []string `json:"deliveryMethods"`

	// DeliveryConfirmation holds per-method confirmation records keyed by the
	// canonical camelCase method name.
	DeliveryConfirmation map[string]DeliveryConfirmation `json:"deliveryConfirmation,omitempty"`

	// OnTimeStatus is frozen at send time: true iff DueDate is nil or
	// SentAt <= DueDate.  Nil until the notice is sent.
	OnTimeStatus *bool `json:"onTimeStatus,omitempty"`

	GeneratedByAI   bool    `json:"generatedByAI"`
	AIModel         *string `json:"aiModel,omitempty"`
	AIPromptVersion *string `json:"aiPromptVersion,omitempty"`

	// Review/approval workflow stamps.
	ReviewedBy *string    `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
	ApprovedBy *string    `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	CreatedByID common.UserID `json:"createdById"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NewNotice creates a DRAFT ComplianceNotice.
func NewNotice(projectID common.ProjectID, noticeType, title, content, recipientName string, createdBy common.UserID) (*ComplianceNotice, error) {
	if title == "" {
		return nil, errors.InvalidParam("notice title must not be empty")
	}
	if recipientName == "" {
		return nil, errors.InvalidParam("notice recipient name must not be empty")
	}

	now := time.Now().UTC()
	return &ComplianceNotice{
		ID:              common.NewID(),
		ProjectID:       projectID,
		Type:            noticeType,
		Status:          NoticeDraft,
		Title:           title,
		Content:         content,
		RecipientName:   recipientName,
		DeliveryMethods: []string{},
		CreatedByID:     createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// requireEditable returns a state error naming the current status when the
// notice can no longer be modified.
func (n *ComplianceNotice) requireEditable() error {
	if !n.Status.IsEditable() {
		return errors.New(errors.ErrCodeNoticeNotEditable, fmt.Sprintf(
			"notice status is %s", n.Status))
	}
	return nil
}

// Edit updates mutable fields; allowed only in DRAFT or PENDING_REVIEW.
func (n *ComplianceNotice) Edit(title, content, recipientName *string, recipientEmail *string) error {
	if err := n.requireEditable(); err != nil {
		return err
	}
	if title != nil {
		n.Title = *title
	}
	if content != nil {
		n.Content = *content
	}
	if recipientName != nil {
		n.RecipientName = *recipientName
	}
	if recipientEmail != nil {
		n.RecipientEmail = recipientEmail
	}
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSent freezes the notice after a transport attempt.  sentAt becomes the
// send instant; delivered reports whether the transport confirmed delivery.
// The on-time outcome is computed once, here, and never again.
func (n *ComplianceNotice) MarkSent(sentAt time.Time, delivered bool) error {
	if err := n.requireEditable(); err != nil {
		return err
	}
	if n.RecipientEmail == nil || *n.RecipientEmail == "" {
		return errors.New(errors.ErrCodeNoticeRecipientMissing,
			"notice has no recipient email")
	}

	sentAt = sentAt.UTC()
	n.Status = NoticeSent
	n.SentAt = &sentAt
	if delivered {
		n.DeliveredAt = &sentAt
	}
	n.DeliveryMethods = appendMethod(n.DeliveryMethods, DeliveryMethodEmail)

	onTime := n.DueDate == nil || !sentAt.After(*n.DueDate)
	n.OnTimeStatus = &onTime
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// ConfirmDelivery records a per-method delivery confirmation.  Allowed only
// from SENT; moves the notice to ACKNOWLEDGED.
func (n *ComplianceNotice) ConfirmDelivery(method string, conf DeliveryConfirmation) error {
	if n.Status != NoticeSent {
		return errors.InvalidState(fmt.Sprintf(
			"delivery can only be confirmed for SENT notices; status is %s", n.Status))
	}
	key, err := CanonicalDeliveryKey(method)
	if err != nil {
		return err
	}

	if n.DeliveryConfirmation == nil {
		n.DeliveryConfirmation = make(map[string]DeliveryConfirmation)
	}
	n.DeliveryConfirmation[key] = conf
	n.DeliveryMethods = appendMethod(n.DeliveryMethods, method)

	now := time.Now().UTC()
	if conf.DeliveredAt != nil {
		n.DeliveredAt = conf.DeliveredAt
	} else if n.DeliveredAt == nil {
		n.DeliveredAt = &now
	}
	n.Status = NoticeAcknowledged
	n.AcknowledgedAt = &now
	n.UpdatedAt = now
	return nil
}

// Acknowledge records recipient acknowledgment without a formal delivery
// confirmation (e.g. a verbal or email reply).  Sets AcknowledgedAt once and
// backfills a true on-time status when none was frozen at send time.
func (n *ComplianceNotice) Acknowledge(at time.Time) error {
	if n.Status != NoticeSent {
		return errors.InvalidState(fmt.Sprintf(
			"only SENT notices can be acknowledged; status is %s", n.Status))
	}
	at = at.UTC()
	n.Status = NoticeAcknowledged
	if n.AcknowledgedAt == nil {
		n.AcknowledgedAt = &at
	}
	if n.OnTimeStatus == nil {
		onTime := true
		n.OnTimeStatus = &onTime
	}
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// ReplaceContent swaps in regenerated AI content.  Allowed only while
// editable; marks the notice AI-generated and records the model used.
func (n *ComplianceNotice) ReplaceContent(content, model string) error {
	if err := n.requireEditable(); err != nil {
		return err
	}
	n.Content = content
	n.GeneratedByAI = true
	n.AIModel = &model
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// CanDelete reports whether the notice may be deleted (drafts only).
func (n *ComplianceNotice) CanDelete() bool {
	return n.Status.IsEditable()
}

// appendMethod adds method to methods unless already present.
func appendMethod(methods []string, method string) []string {
	for _, m := range methods {
		if m == method {
			return methods
		}
	}
	return append(methods, method)
}
