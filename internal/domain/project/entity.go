// Package project holds the project, membership, and notification entities
// the compliance engine reads and writes.  Project and user records are owned
// by the wider platform; this package models only the slice the engine needs.
package project

import (
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// Role is a project member's role.  Alert fan-out targets a subset of roles.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleExecutive      Role = "EXECUTIVE"
	RoleForeman        Role = "FOREMAN"
	RoleAccounting     Role = "ACCOUNTING"
	RoleViewer         Role = "VIEWER"
)

// AlertRoles are the roles that receive compliance alerts and digests.
var AlertRoles = []Role{RoleAdmin, RoleProjectManager, RoleExecutive}

// Project is the construction project a subcontract belongs to.
type Project struct {
	ID   common.ProjectID `json:"id"`
	Name string           `json:"name"`

	// GC contact is the default recipient for compliance notices when a
	// notice does not name one explicitly.
	GCContactName  *string `json:"gcContactName,omitempty"`
	GCContactEmail *string `json:"gcContactEmail,omitempty"`

	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member is a user's membership in a project.
type Member struct {
	UserID    common.UserID    `json:"userId"`
	ProjectID common.ProjectID `json:"projectId"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Role      Role             `json:"role"`
}

// NotificationType classifies in-app notifications the engine emits.
type NotificationType string

const (
	NotificationComplianceDeadline NotificationType = "COMPLIANCE_DEADLINE"
	NotificationComplianceDigest   NotificationType = "COMPLIANCE_DIGEST"
)

// Notification is an in-app notification addressed to a single user.
type Notification struct {
	ID        common.ID        `json:"id"`
	UserID    common.UserID    `json:"userId"`
	ProjectID common.ProjectID `json:"projectId"`
	Type      NotificationType `json:"type"`
	Severity  string           `json:"severity"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`

	// ResourceID points at the deadline or notice the alert is about.
	ResourceID *common.ID `json:"resourceId,omitempty"`

	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NewNotification builds an unread notification stamped with the current time.
func NewNotification(userID common.UserID, projectID common.ProjectID, typ NotificationType, severity, title, body string) *Notification {
	return &Notification{
		ID:        common.NewID(),
		UserID:    userID,
		ProjectID: projectID,
		Type:      typ,
		Severity:  severity,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}
