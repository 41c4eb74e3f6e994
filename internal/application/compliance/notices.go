package compliance

import (
	"context"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/intelligence/contractllm"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// noticeDateLayout renders contract dates like "July 07, 2025".
const noticeDateLayout = "January 02, 2006"

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// CreateNoticeRequest creates a draft notice, optionally linked to a deadline.
type CreateNoticeRequest struct {
	ProjectID      common.ProjectID
	DeadlineID     *common.ID
	Type           string
	Title          string
	Content        string
	RecipientName  string
	RecipientEmail *string
	CreatedBy      common.UserID
}

// UpdateNoticeRequest patches an editable notice; nil fields are untouched.
type UpdateNoticeRequest struct {
	Title          *string
	Content        *string
	RecipientName  *string
	RecipientEmail *string
}

// GenerateDraftParams carries the sender identity and free-text context for
// AI drafting.
type GenerateDraftParams struct {
	FromName          string
	AdditionalContext string
}

// DraftResult is the outcome of one AI drafting call.
type DraftResult struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokensUsed"`
}

// ConfirmDeliveryRequest records a formal delivery confirmation for one
// channel.
type ConfirmDeliveryRequest struct {
	Method         string
	TrackingNumber *string
	Carrier        *string
	DeliveredAt    *time.Time
	SignedBy       *string
	ReceivedBy     *string
	ConfirmedBy    common.UserID
}

// ---------------------------------------------------------------------------
// Notice service
// ---------------------------------------------------------------------------

// NoticeService owns the notice lifecycle: drafting (human or AI), editing,
// sending, delivery confirmation, and deletion, with deadline linkage kept
// consistent throughout.
type NoticeService interface {
	// Create makes a DRAFT notice.  Linking a deadline moves that deadline to
	// NOTICE_DRAFTED and copies its due date onto the notice.
	Create(ctx context.Context, req CreateNoticeRequest) (*domain.ComplianceNotice, error)

	// Get returns a single notice.
	Get(ctx context.Context, projectID common.ProjectID, noticeID common.ID) (*domain.ComplianceNotice, error)

	// List returns notices with optional status filters.
	List(ctx context.Context, projectID common.ProjectID, filter domain.NoticeFilter) ([]*domain.ComplianceNotice, int64, error)

	// GenerateDraft asks the drafting model for notice content for a deadline.
	// Nothing is persisted; the caller decides what to do with the draft.
	GenerateDraft(ctx context.Context, projectID common.ProjectID, deadlineID common.ID, params GenerateDraftParams) (*DraftResult, error)

	// Update patches an editable notice.
	Update(ctx context.Context, projectID common.ProjectID, noticeID common.ID, req UpdateNoticeRequest) (*domain.ComplianceNotice, error)

	// Regenerate replaces an editable notice's content with a fresh AI draft.
	Regenerate(ctx context.Context, projectID common.ProjectID, noticeID common.ID, params GenerateDraftParams) (*domain.ComplianceNotice, error)

	// Send emails the notice and freezes it.  The on-time outcome is computed
	// once here; a linked deadline moves to NOTICE_SENT.  A transport failure
	// still marks the notice SENT with the failure recorded in the audit trail.
	Send(ctx context.Context, projectID common.ProjectID, noticeID common.ID, userID common.UserID) (*domain.ComplianceNotice, error)

	// ConfirmDelivery records a per-channel delivery confirmation on a SENT
	// notice and acknowledges the linked deadline.
	ConfirmDelivery(ctx context.Context, projectID common.ProjectID, noticeID common.ID, req ConfirmDeliveryRequest) (*domain.ComplianceNotice, error)

	// Delete removes a draft notice and returns any linked deadline to ACTIVE.
	Delete(ctx context.Context, projectID common.ProjectID, noticeID common.ID, userID common.UserID) error
}

type noticeService struct {
	notices   domain.NoticeRepository
	deadlines domain.DeadlineRepository
	clauses   domain.ClauseRepository
	audits    domain.AuditRepository
	projects  project.Repository
	llm       contractllm.Client
	llmCfg    contractllm.Config
	mailer    Mailer
	refresher ScoreRefresher
	tx        TxRunner
	logger    logging.Logger
	now       func() time.Time
}

// NewNoticeService constructs a NoticeService.
func NewNoticeService(
	notices domain.NoticeRepository,
	deadlines domain.DeadlineRepository,
	clauses domain.ClauseRepository,
	audits domain.AuditRepository,
	projects project.Repository,
	llm contractllm.Client,
	llmCfg contractllm.Config,
	mailer Mailer,
	refresher ScoreRefresher,
	tx TxRunner,
	logger logging.Logger,
) NoticeService {
	return &noticeService{
		notices:   notices,
		deadlines: deadlines,
		clauses:   clauses,
		audits:    audits,
		projects:  projects,
		llm:       llm,
		llmCfg:    llmCfg,
		mailer:    mailer,
		refresher: refresher,
		tx:        tx,
		logger:    logger.Named("notices"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *noticeService) Create(ctx context.Context, req CreateNoticeRequest) (*domain.ComplianceNotice, error) {
	notice, err := domain.NewNotice(req.ProjectID, req.Type, req.Title, req.Content,
		req.RecipientName, req.CreatedBy)
	if err != nil {
		return nil, err
	}
	notice.RecipientEmail = req.RecipientEmail

	var deadline *domain.ComplianceDeadline
	if req.DeadlineID != nil {
		deadline, err = s.deadlines.GetByID(ctx, req.ProjectID, *req.DeadlineID)
		if err != nil {
			return nil, err
		}
		notice.ClauseID = &deadline.ClauseID
		notice.DueDate = &deadline.CalculatedDeadline
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.notices.Create(ctx, notice); err != nil {
			return err
		}
		if deadline != nil {
			if err := deadline.AttachDraft(notice.ID, s.now()); err != nil {
				return err
			}
			if err := s.deadlines.Update(ctx, deadline); err != nil {
				return err
			}
		}
		detail := map[string]any{
			"type":  notice.Type,
			"title": notice.Title,
		}
		if req.DeadlineID != nil {
			detail["deadlineId"] = string(*req.DeadlineID)
		}
		entry := domain.NewAuditEntry(req.ProjectID, domain.AuditNoticeCreated,
			"ComplianceNotice", string(notice.ID), domain.ActorUser,
			actorID(&req.CreatedBy), "create_notice", detail)
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return notice, nil
}

func (s *noticeService) Get(ctx context.Context, projectID common.ProjectID, noticeID common.ID) (*domain.ComplianceNotice, error) {
	return s.notices.GetByID(ctx, projectID, noticeID)
}

func (s *noticeService) List(ctx context.Context, projectID common.ProjectID, filter domain.NoticeFilter) ([]*domain.ComplianceNotice, int64, error) {
	return s.notices.List(ctx, projectID, filter)
}

func (s *noticeService) GenerateDraft(ctx context.Context, projectID common.ProjectID, deadlineID common.ID, params GenerateDraftParams) (*DraftResult, error) {
	deadline, err := s.deadlines.GetByID(ctx, projectID, deadlineID)
	if err != nil {
		return nil, err
	}
	clause, err := s.clauses.GetByID(ctx, projectID, deadline.ClauseID)
	if err != nil {
		return nil, err
	}
	proj, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	completion, err := s.llm.Complete(ctx, contractllm.Request{
		Model:       s.llmCfg.DraftingModel,
		System:      contractllm.NoticeSystemPrompt(),
		User:        contractllm.BuildNoticePrompt(s.promptParams(proj, clause, deadline, params)),
		MaxTokens:   s.llmCfg.DraftingMaxTokens,
		Temperature: s.llmCfg.DraftingTemp,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("notice draft generated",
		logging.String("project_id", string(projectID)),
		logging.String("deadline_id", string(deadlineID)),
		logging.String("model", completion.Model),
	)
	return &DraftResult{
		Content:    completion.Content,
		Model:      completion.Model,
		TokensUsed: completion.Usage.InputTokens + completion.Usage.OutputTokens,
	}, nil
}

// promptParams assembles the drafting prompt inputs, falling back to generic
// identities when the project record is thin.
func (s *noticeService) promptParams(proj *project.Project, clause *domain.ContractClause, deadline *domain.ComplianceDeadline, params GenerateDraftParams) contractllm.NoticePromptParams {
	gcName := "General Contractor"
	gcEmail := ""
	if proj.GCContactName != nil && *proj.GCContactName != "" {
		gcName = *proj.GCContactName
	}
	if proj.GCContactEmail != nil {
		gcEmail = *proj.GCContactEmail
	}

	fromName := params.FromName
	if fromName == "" {
		fromName = "Project Manager"
	}

	method := string(domain.MethodWrittenNotice)
	if clause.NoticeMethod != nil {
		method = string(*clause.NoticeMethod)
	}

	sectionRef := ""
	if clause.SectionRef != nil {
		sectionRef = *clause.SectionRef
	}

	return contractllm.NoticePromptParams{
		NoticeType:         titleizeEnum(string(clause.Kind)),
		ProjectName:        proj.Name,
		ClauseTitle:        clause.Title,
		ClauseSectionRef:   sectionRef,
		ClauseContent:      clause.Content,
		TriggerDescription: deadline.TriggerDescription,
		TriggerDate:        deadline.TriggeredAt.Format(noticeDateLayout),
		DeadlineDate:       deadline.CalculatedDeadline.Format(noticeDateLayout),
		NoticeMethod:       method,
		FromName:           fromName,
		FromCompany:        proj.Name,
		ToName:             gcName,
		ToCompany:          "",
		ToEmail:            gcEmail,
		AdditionalContext:  params.AdditionalContext,
	}
}

func (s *noticeService) Update(ctx context.Context, projectID common.ProjectID, noticeID common.ID, req UpdateNoticeRequest) (*domain.ComplianceNotice, error) {
	notice, err := s.notices.GetByID(ctx, projectID, noticeID)
	if err != nil {
		return nil, err
	}
	if err := notice.Edit(req.Title, req.Content, req.RecipientName, req.RecipientEmail); err != nil {
		return nil, err
	}
	if err := s.notices.Update(ctx, notice); err != nil {
		return nil, err
	}
	return notice, nil
}

func (s *noticeService) Regenerate(ctx context.Context, projectID common.ProjectID, noticeID common.ID, params GenerateDraftParams) (*domain.ComplianceNotice, error) {
	notice, err := s.notices.GetByID(ctx, projectID, noticeID)
	if err != nil {
		return nil, err
	}
	if !notice.Status.IsEditable() {
		return nil, errors.New(errors.ErrCodeNoticeNotEditable,
			"only draft notices can be regenerated")
	}

	deadline, err := s.deadlines.GetByNoticeID(ctx, projectID, noticeID)
	if err != nil {
		return nil, err
	}
	if deadline == nil {
		return nil, errors.InvalidState("notice has no linked deadline to draft from")
	}

	draft, err := s.GenerateDraft(ctx, projectID, deadline.ID, params)
	if err != nil {
		return nil, err
	}
	if err := notice.ReplaceContent(draft.Content, draft.Model); err != nil {
		return nil, err
	}
	if err := s.notices.Update(ctx, notice); err != nil {
		return nil, err
	}
	return notice, nil
}

func (s *noticeService) Send(ctx context.Context, projectID common.ProjectID, noticeID common.ID, userID common.UserID) (*domain.ComplianceNotice, error) {
	notice, err := s.notices.GetByID(ctx, projectID, noticeID)
	if err != nil {
		return nil, err
	}
	if !notice.Status.IsEditable() {
		return nil, errors.New(errors.ErrCodeNoticeNotEditable,
			"notice has already been sent")
	}
	if notice.RecipientEmail == nil || *notice.RecipientEmail == "" {
		return nil, errors.New(errors.ErrCodeNoticeRecipientMissing,
			"notice has no recipient email")
	}

	sentAt := s.now()
	emailSent := true
	if err := s.mailer.Send(ctx, *notice.RecipientEmail, notice.RecipientName,
		notice.Title, notice.Content); err != nil {
		// The legal clock keeps running regardless of transport failures; the
		// send is recorded and the failure lands in the audit trail.
		emailSent = false
		s.logger.Error("notice email delivery failed",
			logging.String("notice_id", string(noticeID)),
			logging.Err(err),
		)
	}

	if err := notice.MarkSent(sentAt, emailSent); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.notices.Update(ctx, notice); err != nil {
			return err
		}
		deadline, err := s.deadlines.GetByNoticeID(ctx, projectID, noticeID)
		if err != nil {
			return err
		}
		if deadline != nil {
			if err := deadline.MarkNoticeSent(); err != nil {
				return err
			}
			if err := s.deadlines.Update(ctx, deadline); err != nil {
				return err
			}
		}
		entry := domain.NewAuditEntry(projectID, domain.AuditNoticeSent,
			"ComplianceNotice", string(noticeID), domain.ActorUser,
			actorID(&userID), "send_notice", map[string]any{
				"recipientEmail": *notice.RecipientEmail,
				"emailSent":      emailSent,
				"onTime":         *notice.OnTimeStatus,
			})
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	if err := s.refresher.RequestRefresh(ctx, projectID); err != nil {
		s.logger.Warn("score refresh request failed",
			logging.String("project_id", string(projectID)),
			logging.Err(err),
		)
	}

	s.logger.Info("notice sent",
		logging.String("notice_id", string(noticeID)),
		logging.Bool("email_sent", emailSent),
		logging.Bool("on_time", *notice.OnTimeStatus),
	)
	return notice, nil
}

func (s *noticeService) ConfirmDelivery(ctx context.Context, projectID common.ProjectID, noticeID common.ID, req ConfirmDeliveryRequest) (*domain.ComplianceNotice, error) {
	notice, err := s.notices.GetByID(ctx, projectID, noticeID)
	if err != nil {
		return nil, err
	}

	conf := domain.DeliveryConfirmation{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		DeliveredAt:    req.DeliveredAt,
		SignedBy:       req.SignedBy,
		ReceivedBy:     req.ReceivedBy,
		ConfirmedBy:    string(req.ConfirmedBy),
		ConfirmedAt:    s.now(),
	}
	if err := notice.ConfirmDelivery(req.Method, conf); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.notices.Update(ctx, notice); err != nil {
			return err
		}
		deadline, err := s.deadlines.GetByNoticeID(ctx, projectID, noticeID)
		if err != nil {
			return err
		}
		if deadline != nil && deadline.Status == domain.DeadlineNoticeSent {
			if err := deadline.Acknowledge(); err != nil {
				return err
			}
			if err := s.deadlines.Update(ctx, deadline); err != nil {
				return err
			}
		}
		entry := domain.NewAuditEntry(projectID, domain.AuditDeliveryConfirmed,
			"ComplianceNotice", string(noticeID), domain.ActorUser,
			actorID(&req.ConfirmedBy), "confirm_delivery", map[string]any{
				"method": req.Method,
			})
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return notice, nil
}

func (s *noticeService) Delete(ctx context.Context, projectID common.ProjectID, noticeID common.ID, userID common.UserID) error {
	notice, err := s.notices.GetByID(ctx, projectID, noticeID)
	if err != nil {
		return err
	}
	if !notice.CanDelete() {
		return errors.New(errors.ErrCodeNoticeNotEditable,
			"sent notices cannot be deleted")
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deadline, err := s.deadlines.GetByNoticeID(ctx, projectID, noticeID)
		if err != nil {
			return err
		}
		if deadline != nil {
			if err := deadline.DetachDraft(); err != nil {
				return err
			}
			if err := s.deadlines.Update(ctx, deadline); err != nil {
				return err
			}
		}
		entry := domain.NewAuditEntry(projectID, domain.AuditNoticeDeleted,
			"ComplianceNotice", string(noticeID), domain.ActorUser,
			actorID(&userID), "delete_notice", map[string]any{
				"title": notice.Title,
				"type":  notice.Type,
			})
		if err := s.audits.Append(ctx, entry); err != nil {
			return err
		}
		return s.notices.Delete(ctx, projectID, noticeID)
	})
}
