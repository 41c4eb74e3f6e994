package project

import (
	"context"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// Repository is the read-side contract over platform project data.
type Repository interface {
	// GetProject returns the project, or a not-found error.
	GetProject(ctx context.Context, id common.ProjectID) (*Project, error)

	// ListMembersByRoles returns project members holding any of the given
	// roles.  An empty roles slice returns no members.
	ListMembersByRoles(ctx context.Context, id common.ProjectID, roles []Role) ([]*Member, error)

	// ListProjectIDs returns the IDs of every project, for jobs that must
	// visit projects with no open deadlines too.
	ListProjectIDs(ctx context.Context) ([]common.ProjectID, error)
}

// NotificationRepository is the write-side contract for in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	CreateBatch(ctx context.Context, ns []*Notification) error
}
