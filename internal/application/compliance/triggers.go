package compliance

import (
	"context"
	"fmt"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// RFIFlaggedEvent is the inbound event for an RFI flagged as a potential
// change order.
type RFIFlaggedEvent struct {
	ProjectID common.ProjectID `json:"projectId"`
	RFIID     string           `json:"rfiId"`
	Number    int              `json:"number"`
	Subject   string           `json:"subject"`
	FlaggedAt time.Time        `json:"flaggedAt"`
	FlaggedBy *common.UserID   `json:"flaggedBy,omitempty"`
	Timezone  string           `json:"timezone,omitempty"`
}

// ChangeEvent is the inbound event for a recognized change in the field
// (differing site condition, owner directive, delay, and so on).
type ChangeEvent struct {
	ProjectID   common.ProjectID `json:"projectId"`
	EventID     string           `json:"eventId"`
	Description string           `json:"description"`
	OccurredAt  time.Time        `json:"occurredAt"`
	ReportedBy  *common.UserID   `json:"reportedBy,omitempty"`
	Timezone    string           `json:"timezone,omitempty"`
}

// RFIComplianceStatus reports the deadlines an RFI has spawned.
type RFIComplianceStatus struct {
	RFIID         string                       `json:"rfiId"`
	DeadlineCount int                          `json:"deadlineCount"`
	Deadlines     []*domain.ComplianceDeadline `json:"deadlines"`
}

// rfiTriggerKinds and changeTriggerKinds select which clause kinds each
// event type matches against.
var (
	rfiTriggerKinds = []domain.ClauseKind{
		domain.KindClaimsProcedure,
		domain.KindChangeOrderProcess,
	}
	changeTriggerKinds = []domain.ClauseKind{
		domain.KindClaimsProcedure,
		domain.KindChangeOrderProcess,
		domain.KindNoticeRequirements,
	}
)

// ---------------------------------------------------------------------------
// Trigger service
// ---------------------------------------------------------------------------

// TriggerService turns project events into compliance deadlines by matching
// them against triggerable clauses.
type TriggerService interface {
	// HandleRFIFlagged creates one deadline per matching clause for an RFI
	// flagged as a potential change order.  Redelivered events are absorbed by
	// the deadline idempotency check.
	HandleRFIFlagged(ctx context.Context, event RFIFlaggedEvent) ([]*domain.ComplianceDeadline, error)

	// HandleChangeEvent creates one deadline per matching clause for a field
	// change event.
	HandleChangeEvent(ctx context.Context, event ChangeEvent) ([]*domain.ComplianceDeadline, error)

	// CheckRFICompliance reports the open and historical deadlines tied to
	// an RFI.
	CheckRFICompliance(ctx context.Context, projectID common.ProjectID, rfiID string) (*RFIComplianceStatus, error)
}

type triggerService struct {
	clauses   domain.ClauseRepository
	deadlines DeadlineService
	deadRepo  domain.DeadlineRepository
	logger    logging.Logger
}

// NewTriggerService constructs a TriggerService.
func NewTriggerService(
	clauses domain.ClauseRepository,
	deadlines DeadlineService,
	deadRepo domain.DeadlineRepository,
	logger logging.Logger,
) TriggerService {
	return &triggerService{
		clauses:   clauses,
		deadlines: deadlines,
		deadRepo:  deadRepo,
		logger:    logger.Named("triggers"),
	}
}

func (s *triggerService) HandleRFIFlagged(ctx context.Context, event RFIFlaggedEvent) ([]*domain.ComplianceDeadline, error) {
	if event.RFIID == "" {
		return nil, errors.InvalidParam("rfiId is required")
	}

	describe := func(clause *domain.ContractClause) string {
		return fmt.Sprintf(
			"RFI #%d %q flagged as potential change order. Per %s, notice is required within %d %s.",
			event.Number, event.Subject, clause.SectionOrTitle(),
			*clause.DeadlineDays, humanizeEnum(string(*clause.DeadlineType)))
	}

	created, err := s.fanOut(ctx, event.ProjectID, rfiTriggerKinds, domain.TriggerRFI,
		event.RFIID, event.FlaggedAt, event.FlaggedBy, event.Timezone, describe)
	if err != nil {
		return nil, err
	}

	s.logger.Info("rfi trigger processed",
		logging.String("project_id", string(event.ProjectID)),
		logging.String("rfi_id", event.RFIID),
		logging.Int("deadlines", len(created)),
	)
	return created, nil
}

func (s *triggerService) HandleChangeEvent(ctx context.Context, event ChangeEvent) ([]*domain.ComplianceDeadline, error) {
	if event.EventID == "" {
		return nil, errors.InvalidParam("eventId is required")
	}
	if event.Description == "" {
		return nil, errors.InvalidParam("change event description is required")
	}

	describe := func(clause *domain.ContractClause) string {
		return fmt.Sprintf(
			"Change event %q created. Per %s, notice is required within %d %s.",
			event.Description, clause.SectionOrTitle(),
			*clause.DeadlineDays, humanizeEnum(string(*clause.DeadlineType)))
	}

	created, err := s.fanOut(ctx, event.ProjectID, changeTriggerKinds, domain.TriggerChangeOrder,
		event.EventID, event.OccurredAt, event.ReportedBy, event.Timezone, describe)
	if err != nil {
		return nil, err
	}

	s.logger.Info("change event processed",
		logging.String("project_id", string(event.ProjectID)),
		logging.String("event_id", event.EventID),
		logging.Int("deadlines", len(created)),
	)
	return created, nil
}

// fanOut creates one deadline per triggerable clause of the given kinds.  A
// clause that fails individually does not abort the rest; the first error is
// surfaced after the pass when nothing was created.
func (s *triggerService) fanOut(
	ctx context.Context,
	projectID common.ProjectID,
	kinds []domain.ClauseKind,
	eventType domain.TriggerEventType,
	eventID string,
	triggeredAt time.Time,
	triggeredBy *common.UserID,
	timezone string,
	describe func(*domain.ContractClause) string,
) ([]*domain.ComplianceDeadline, error) {
	clauses, err := s.clauses.ListTriggerable(ctx, projectID, kinds)
	if err != nil {
		return nil, err
	}

	var (
		created  []*domain.ComplianceDeadline
		firstErr error
	)
	for _, clause := range clauses {
		deadline, err := s.deadlines.Create(ctx, CreateDeadlineRequest{
			ProjectID:          projectID,
			ClauseID:           clause.ID,
			TriggerEventType:   eventType,
			TriggerEventID:     &eventID,
			TriggerDescription: describe(clause),
			TriggeredAt:        triggeredAt,
			TriggeredBy:        triggeredBy,
			Timezone:           timezone,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Error("deadline creation failed for clause",
				logging.String("clause_id", string(clause.ID)),
				logging.Err(err),
			)
			continue
		}
		created = append(created, deadline)
	}

	if len(created) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return created, nil
}

func (s *triggerService) CheckRFICompliance(ctx context.Context, projectID common.ProjectID, rfiID string) (*RFIComplianceStatus, error) {
	if rfiID == "" {
		return nil, errors.InvalidParam("rfiId is required")
	}

	open, err := s.deadRepo.ListOpen(ctx, projectID)
	if err != nil {
		return nil, err
	}

	status := &RFIComplianceStatus{RFIID: rfiID, Deadlines: []*domain.ComplianceDeadline{}}
	for _, d := range open {
		if d.TriggerEventType == domain.TriggerRFI &&
			d.TriggerEventID != nil && *d.TriggerEventID == rfiID {
			status.Deadlines = append(status.Deadlines, d)
		}
	}
	status.DeadlineCount = len(status.Deadlines)
	return status, nil
}
