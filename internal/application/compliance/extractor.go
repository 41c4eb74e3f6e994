package compliance

import (
	"context"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/intelligence/contractllm"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Clause service
// ---------------------------------------------------------------------------

// ClauseService owns extraction and the clause review workflow.
type ClauseService interface {
	// ExtractFromDocument runs the extraction model over a document's text,
	// replaces any previously AI-extracted clauses for the same document,
	// and writes one CLAUSE_EXTRACTION audit entry.
	ExtractFromDocument(ctx context.Context, projectID common.ProjectID, documentID common.ID, userID *common.UserID) ([]*domain.ContractClause, error)

	// List returns clauses for a project with optional filters.
	List(ctx context.Context, projectID common.ProjectID, filter domain.ClauseFilter) ([]*domain.ContractClause, int64, error)

	// Get returns a single clause.
	Get(ctx context.Context, projectID common.ProjectID, clauseID common.ID) (*domain.ContractClause, error)

	// Confirm marks a clause human-verified and writes an audit entry.
	Confirm(ctx context.Context, projectID common.ProjectID, clauseID common.ID, userID common.UserID) (*domain.ContractClause, error)
}

type clauseService struct {
	clauses domain.ClauseRepository
	audits  domain.AuditRepository
	docs    DocumentSource
	llm     contractllm.Client
	llmCfg  contractllm.Config
	tx      TxRunner
	logger  logging.Logger
	now     func() time.Time
}

// NewClauseService constructs a ClauseService.
func NewClauseService(
	clauses domain.ClauseRepository,
	audits domain.AuditRepository,
	docs DocumentSource,
	llm contractllm.Client,
	llmCfg contractllm.Config,
	tx TxRunner,
	logger logging.Logger,
) ClauseService {
	return &clauseService{
		clauses: clauses,
		audits:  audits,
		docs:    docs,
		llm:     llm,
		llmCfg:  llmCfg,
		tx:      tx,
		logger:  logger.Named("clauses"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *clauseService) ExtractFromDocument(ctx context.Context, projectID common.ProjectID, documentID common.ID, userID *common.UserID) ([]*domain.ContractClause, error) {
	doc, err := s.docs.GetDocument(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, errors.New(errors.ErrCodeContractTextEmpty,
			"document "+string(documentID)+" has no extracted text")
	}

	completion, err := s.llm.Complete(ctx, contractllm.Request{
		Model:       s.llmCfg.ExtractionModel,
		System:      contractllm.ExtractionSystemPrompt(),
		User:        contractllm.BuildExtractionPrompt(doc.Name, doc.Type, doc.Text, s.llmCfg.MaxContractChars),
		MaxTokens:   s.llmCfg.ExtractionMaxTokens,
		Temperature: s.llmCfg.ExtractionTemp,
	})
	if err != nil {
		return nil, err
	}

	raw, err := contractllm.ParseClauses(completion.Content)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		s.logger.Warn("no clauses extracted",
			logging.String("project_id", string(projectID)),
			logging.String("document_id", string(documentID)),
		)
		return nil, nil
	}

	clauses := make([]*domain.ContractClause, 0, len(raw))
	for _, r := range raw {
		clause := s.buildClause(projectID, documentID, completion.Model, r)
		if clause != nil {
			clauses = append(clauses, clause)
		}
	}

	// Re-extraction replaces the previous AI pass for this document.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.clauses.DeleteExtracted(ctx, projectID, string(documentID)); err != nil {
			return err
		}
		if err := s.clauses.CreateBatch(ctx, clauses); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(projectID, domain.AuditClauseExtraction, "Document", string(documentID),
			domain.ActorAI, actorID(userID), "extract_clauses", map[string]any{
				"documentName":     doc.Name,
				"clausesExtracted": len(clauses),
				"model":            completion.Model,
				"tokensUsed": map[string]int{
					"input":  completion.Usage.InputTokens,
					"output": completion.Usage.OutputTokens,
				},
			})
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("clauses extracted",
		logging.String("project_id", string(projectID)),
		logging.String("document_id", string(documentID)),
		logging.Int("clauses", len(clauses)),
		logging.String("model", completion.Model),
	)
	return clauses, nil
}

// buildClause validates one raw extraction object.  An unknown kind or a
// missing title/content discards the object; invalid optional enums are
// dropped field-wise.
func (s *clauseService) buildClause(projectID common.ProjectID, documentID common.ID, model string, r contractllm.RawClause) *domain.ContractClause {
	clause, err := domain.NewClause(projectID, domain.ClauseKind(r.Kind), r.Title, r.Content)
	if err != nil {
		s.logger.Warn("discarding extracted clause",
			logging.String("kind", r.Kind),
			logging.Err(err),
		)
		return nil
	}

	clause.SectionRef = r.SectionRef
	clause.DeadlineDays = r.DeadlineDays
	if r.DeadlineType != nil {
		if t := domain.DeadlinePeriodType(*r.DeadlineType); t.IsValid() {
			clause.DeadlineType = &t
		}
	}
	if r.NoticeMethod != nil {
		if m := domain.NoticeMethod(*r.NoticeMethod); m.IsValid() {
			clause.NoticeMethod = &m
		}
	}
	clause.Trigger = r.Trigger
	clause.CurePeriodDays = r.CurePeriodDays
	if r.CurePeriodType != nil {
		if t := domain.DeadlinePeriodType(*r.CurePeriodType); t.IsValid() {
			clause.CurePeriodType = &t
		}
	}
	clause.FlowDownProvisions = r.FlowDownProvisions
	clause.ParentClauseRef = r.ParentClauseRef
	clause.RequiresReview = r.RequiresReview
	clause.ReviewReason = r.ReviewReason

	docID := string(documentID)
	clause.AIExtracted = true
	clause.AIModel = &model
	clause.SourceDocID = &docID
	return clause
}

func (s *clauseService) List(ctx context.Context, projectID common.ProjectID, filter domain.ClauseFilter) ([]*domain.ContractClause, int64, error) {
	return s.clauses.List(ctx, projectID, filter)
}

func (s *clauseService) Get(ctx context.Context, projectID common.ProjectID, clauseID common.ID) (*domain.ContractClause, error) {
	return s.clauses.GetByID(ctx, projectID, clauseID)
}

func (s *clauseService) Confirm(ctx context.Context, projectID common.ProjectID, clauseID common.ID, userID common.UserID) (*domain.ContractClause, error) {
	clause, err := s.clauses.GetByID(ctx, projectID, clauseID)
	if err != nil {
		return nil, err
	}

	clause.Confirm(string(userID), s.now())

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.clauses.Update(ctx, clause); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(projectID, domain.AuditClauseConfirmed, "ContractClause", string(clauseID),
			domain.ActorUser, actorID(&userID), "confirm_clause", map[string]any{
				"clauseTitle": clause.Title,
				"clauseKind":  string(clause.Kind),
			})
		return s.audits.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return clause, nil
}
