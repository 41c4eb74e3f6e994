package compliance

import (
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// AuditEventType names a compliance-relevant occurrence.  The audit log is
// append-only; entries are never updated or deleted.
type AuditEventType string

const (
	AuditClauseExtraction     AuditEventType = "CLAUSE_EXTRACTION"
	AuditClauseConfirmed      AuditEventType = "CLAUSE_CONFIRMED"
	AuditDeadlineCreated      AuditEventType = "DEADLINE_CREATED"
	AuditDeadlineStatusChange AuditEventType = "DEADLINE_STATUS_CHANGE"
	AuditDeadlineWaived       AuditEventType = "DEADLINE_WAIVED"
	AuditNoticeCreated        AuditEventType = "NOTICE_CREATED"
	AuditNoticeSent           AuditEventType = "NOTICE_SENT"
	AuditNoticeDeleted        AuditEventType = "NOTICE_DELETED"
	AuditDeliveryConfirmed    AuditEventType = "DELIVERY_CONFIRMED"
)

// ActorType identifies what kind of agent caused an audited event.
type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
	ActorAI     ActorType = "AI"
)

// AuditEntry is one immutable line in a project's compliance audit trail.
type AuditEntry struct {
	ID        common.ID        `json:"id"`
	ProjectID common.ProjectID `json:"projectId"`

	EventType  AuditEventType `json:"eventType"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`

	ActorType ActorType `json:"actorType"`
	ActorID   *string   `json:"actorId,omitempty"`

	// Action is the short verb phrase of what happened, e.g. "waive_deadline".
	Action string `json:"action"`

	// Detail holds event-specific context (model name, token counts, status
	// transitions, recipient, transport outcome).
	Detail map[string]any `json:"detail,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewAuditEntry builds an audit entry stamped with the current UTC time.
func NewAuditEntry(
	projectID common.ProjectID,
	eventType AuditEventType,
	entityType, entityID string,
	actorType ActorType,
	actorID *string,
	action string,
	detail map[string]any,
) *AuditEntry {
	return &AuditEntry{
		ID:         common.NewID(),
		ProjectID:  projectID,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
}
