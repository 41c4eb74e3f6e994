package compliance

import (
	"context"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// CreateDeadlineRequest carries everything needed to start a deadline clock.
type CreateDeadlineRequest struct {
	ProjectID          common.ProjectID
	ClauseID           common.ID
	TriggerEventType   domain.TriggerEventType
	TriggerEventID     *string
	TriggerDescription string
	TriggeredAt        time.Time
	TriggeredBy        *common.UserID
	Timezone           string
}

// SeverityRecalcResult summarizes one severity pass over a project.  Total
// counts the deadlines still awaiting a notice that the pass examined.
type SeverityRecalcResult struct {
	Total     int `json:"total"`
	Changed   int `json:"changed"`
	Escalated int `json:"escalated"`
	Expired   int `json:"expired"`
}

// ---------------------------------------------------------------------------
// Deadline service
// ---------------------------------------------------------------------------

// DeadlineService enforces the deadline state machine and audit contract.
type DeadlineService interface {
	// Create calculates the deadline from the clause's terms and persists it
	// with a DEADLINE_CREATED audit entry.  A non-terminal deadline already
	// matching the trigger tuple is returned unchanged (idempotency).
	Create(ctx context.Context, req CreateDeadlineRequest) (*domain.ComplianceDeadline, error)

	// Get returns a single deadline.
	Get(ctx context.Context, projectID common.ProjectID, deadlineID common.ID) (*domain.ComplianceDeadline, error)

	// List returns deadlines joined with clause display fields.
	List(ctx context.Context, projectID common.ProjectID, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, int64, error)

	// Waive retires a deadline with a reason.  Waiving an already-waived
	// deadline returns the row unchanged.
	Waive(ctx context.Context, projectID common.ProjectID, deadlineID common.ID, userID common.UserID, reason string) (*domain.ComplianceDeadline, error)

	// RecalculateSeverities reclassifies every ACTIVE or NOTICE_DRAFTED
	// deadline in a project; deadlines that crossed EXPIRED transition state.
	// A failure on one deadline is logged and the pass continues.  Running
	// twice with no time change is a no-op.
	RecalculateSeverities(ctx context.Context, projectID common.ProjectID) (*SeverityRecalcResult, error)
}

type deadlineService struct {
	deadlines domain.DeadlineRepository
	clauses   domain.ClauseRepository
	audits    domain.AuditRepository
	calendar  CalendarService
	tx        TxRunner
	logger    logging.Logger
	now       func() time.Time
}

// NewDeadlineService constructs a DeadlineService.
func NewDeadlineService(
	deadlines domain.DeadlineRepository,
	clauses domain.ClauseRepository,
	audits domain.AuditRepository,
	calendar CalendarService,
	tx TxRunner,
	logger logging.Logger,
) DeadlineService {
	return &deadlineService{
		deadlines: deadlines,
		clauses:   clauses,
		audits:    audits,
		calendar:  calendar,
		tx:        tx,
		logger:    logger.Named("deadlines"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *deadlineService) Create(ctx context.Context, req CreateDeadlineRequest) (*domain.ComplianceDeadline, error) {
	clause, err := s.clauses.GetByID(ctx, req.ProjectID, req.ClauseID)
	if err != nil {
		return nil, err
	}
	if !clause.HasDeadlineTerms() {
		return nil, errors.New(errors.ErrCodeClauseNoDeadlineTerms,
			"clause "+string(req.ClauseID)+" has no deadline terms")
	}

	// Idempotency: an open deadline for the same trigger tuple wins.
	if req.TriggerEventID != nil {
		existing, err := s.deadlines.FindOpenByKey(ctx, domain.IdempotencyKey{
			ProjectID:        req.ProjectID,
			ClauseID:         req.ClauseID,
			TriggerEventID:   *req.TriggerEventID,
			TriggerEventType: req.TriggerEventType,
		})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Debug("deadline already exists for trigger",
				logging.String("deadline_id", string(existing.ID)),
				logging.String("trigger_event_id", *req.TriggerEventID),
			)
			return existing, nil
		}
	}

	calculated, err := s.calendar.DeadlineFor(ctx, req.ProjectID, req.TriggeredAt,
		*clause.DeadlineDays, *clause.DeadlineType)
	if err != nil {
		return nil, err
	}

	deadline, err := domain.NewDeadline(req.ProjectID, req.ClauseID, req.TriggerEventType,
		req.TriggerEventID, req.TriggerDescription, req.TriggeredAt, calculated, req.Timezone)
	if err != nil {
		return nil, err
	}
	deadline.Severity = ClassifySeverity(deadline.Status, calculated, s.now())

	if clause.HasCurePeriod() {
		cure, err := s.calendar.DeadlineFor(ctx, req.ProjectID, calculated,
			*clause.CurePeriodDays, *clause.CurePeriodType)
		if err != nil {
			return nil, err
		}
		deadline.CureDeadline = &cure
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.deadlines.Create(ctx, deadline); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(req.ProjectID, domain.AuditDeadlineCreated,
			"ComplianceDeadline", string(deadline.ID), domain.ActorSystem,
			actorID(req.TriggeredBy), "create_deadline", map[string]any{
				"clauseId":           string(req.ClauseID),
				"clauseTitle":        clause.Title,
				"triggerType":        string(req.TriggerEventType),
				"triggerDescription": req.TriggerDescription,
				"calculatedDeadline": calculated.Format(time.RFC3339),
				"severity":           string(deadline.Severity),
			})
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deadline created",
		logging.String("deadline_id", string(deadline.ID)),
		logging.String("clause_id", string(req.ClauseID)),
		logging.Time("calculated_deadline", calculated),
		logging.String("severity", string(deadline.Severity)),
	)
	return deadline, nil
}

func (s *deadlineService) Get(ctx context.Context, projectID common.ProjectID, deadlineID common.ID) (*domain.ComplianceDeadline, error) {
	return s.deadlines.GetByID(ctx, projectID, deadlineID)
}

func (s *deadlineService) List(ctx context.Context, projectID common.ProjectID, filter domain.DeadlineFilter) ([]*domain.DeadlineWithClause, int64, error) {
	return s.deadlines.List(ctx, projectID, filter)
}

func (s *deadlineService) Waive(ctx context.Context, projectID common.ProjectID, deadlineID common.ID, userID common.UserID, reason string) (*domain.ComplianceDeadline, error) {
	if reason == "" {
		return nil, errors.InvalidParam("waiver reason is required")
	}

	deadline, err := s.deadlines.GetByID(ctx, projectID, deadlineID)
	if err != nil {
		return nil, err
	}
	if deadline.Status == domain.DeadlineWaived {
		return deadline, nil
	}

	if err := deadline.Waive(string(userID), reason, s.now()); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.deadlines.Update(ctx, deadline); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(projectID, domain.AuditDeadlineWaived,
			"ComplianceDeadline", string(deadlineID), domain.ActorUser,
			actorID(&userID), "waive_deadline", map[string]any{"reason": reason})
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return deadline, nil
}

func (s *deadlineService) RecalculateSeverities(ctx context.Context, projectID common.ProjectID) (*SeverityRecalcResult, error) {
	open, err := s.deadlines.ListOpen(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &SeverityRecalcResult{}

	for _, deadline := range open {
		// Only deadlines still awaiting a notice can escalate or expire.
		// NOTICE_SENT and ACKNOWLEDGED rows already have their outcome and
		// the state machine forbids expiring them.
		if deadline.Status != domain.DeadlineActive && deadline.Status != domain.DeadlineNoticeDrafted {
			continue
		}
		result.Total++

		oldSeverity := deadline.Severity
		newSeverity := ClassifySeverity(deadline.Status, deadline.CalculatedDeadline, now)
		if newSeverity == oldSeverity {
			continue
		}
		expired := newSeverity == domain.SeverityExpired

		d := deadline
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			detail := map[string]any{
				"oldSeverity": string(oldSeverity),
				"newSeverity": string(newSeverity),
			}

			if expired {
				oldStatus := d.Status
				if err := d.Expire(); err != nil {
					return err
				}
				detail["oldStatus"] = string(oldStatus)
				detail["newStatus"] = string(domain.DeadlineExpired)
			} else {
				d.Severity = newSeverity
			}

			if err := s.deadlines.Update(ctx, d); err != nil {
				return err
			}
			entry := domain.NewAuditEntry(projectID, domain.AuditDeadlineStatusChange,
				"ComplianceDeadline", string(d.ID), domain.ActorSystem, nil,
				"recalculate_severity", detail)
			return s.audits.Append(ctx, entry)
		})
		if err != nil {
			// One stuck deadline must not block the rest of the pass.
			s.logger.Error("severity update failed",
				logging.String("deadline_id", string(d.ID)),
				logging.Err(err),
			)
			continue
		}

		result.Changed++
		if newSeverity.Rank() > oldSeverity.Rank() {
			result.Escalated++
		}
		if expired {
			result.Expired++
		}
	}

	if result.Changed > 0 {
		s.logger.Info("severities recalculated",
			logging.String("project_id", string(projectID)),
			logging.Int("changed", result.Changed),
			logging.Int("escalated", result.Escalated),
			logging.Int("expired", result.Expired),
		)
	}
	return result, nil
}
