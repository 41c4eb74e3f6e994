package main

import (
	"context"
	"strconv"
	"time"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/messaging/kafka"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// messageHandlers routes consumed messages into the application services.
// Returned errors feed the consumer's retry and dead letter path.
type messageHandlers struct {
	triggers appcompliance.TriggerService
	clauses  appcompliance.ClauseService
	scores   appcompliance.ScoreService
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
}

func (h *messageHandlers) handleTriggerEvent(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		return err
	}
	var payload kafka.TriggerEventPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}

	eventType := domain.TriggerEventType(payload.EventType)
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = env.Timestamp
	}

	var deadlines []*domain.ComplianceDeadline
	switch eventType {
	case domain.TriggerRFI:
		number, _ := strconv.Atoi(payload.Number)
		deadlines, err = h.triggers.HandleRFIFlagged(ctx, appcompliance.RFIFlaggedEvent{
			ProjectID: common.ProjectID(payload.ProjectID),
			RFIID:     payload.EventID,
			Number:    number,
			Subject:   payload.Subject,
			FlaggedAt: occurredAt,
			FlaggedBy: optionalUser(payload.ActorID),
		})
	case domain.TriggerChangeOrder:
		description := payload.Title
		if description == "" {
			description = payload.Subject
		}
		deadlines, err = h.triggers.HandleChangeEvent(ctx, appcompliance.ChangeEvent{
			ProjectID:   common.ProjectID(payload.ProjectID),
			EventID:     payload.EventID,
			Description: description,
			OccurredAt:  occurredAt,
			ReportedBy:  optionalUser(payload.ActorID),
		})
	default:
		// An unrecognized type goes to the dead letter queue rather than
		// being misread as a change order.
		prometheus.RecordError(h.metrics, "trigger_consumer", "unknown_event_type")
		return errors.InvalidParam("unknown trigger event type " + payload.EventType)
	}
	if err != nil {
		prometheus.RecordError(h.metrics, "trigger_consumer", "handle_failed")
		return err
	}

	prometheus.RecordTriggerEvent(h.metrics, payload.EventType, len(deadlines) == 0)
	h.logger.Info("trigger event handled",
		logging.String("project_id", payload.ProjectID),
		logging.String("event_type", payload.EventType),
		logging.Int("deadlines_created", len(deadlines)),
	)
	return nil
}

func (h *messageHandlers) handleContractParse(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		return err
	}
	var payload kafka.ContractParsePayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}

	start := time.Now()
	clauses, err := h.clauses.ExtractFromDocument(ctx,
		common.ProjectID(payload.ProjectID),
		common.ID(payload.DocumentID),
		optionalUser(payload.RequestedBy),
	)
	status := "success"
	if err != nil {
		status = "failure"
	}
	h.metrics.ExtractionsTotal.WithLabelValues("async", status).Inc()
	h.metrics.ExtractionDuration.WithLabelValues("async").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	h.metrics.ClausesExtracted.WithLabelValues("async").Observe(float64(len(clauses)))
	return nil
}

func (h *messageHandlers) handleScoreRefresh(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		return err
	}
	var payload kafka.ScoreRefreshPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}

	if _, err := h.scores.Calculate(ctx, common.ProjectID(payload.ProjectID)); err != nil {
		return err
	}
	h.metrics.ScoreRecomputesTotal.WithLabelValues("refresh_event").Inc()
	return nil
}

func optionalUser(id string) *common.UserID {
	if id == "" {
		return nil
	}
	uid := common.UserID(id)
	return &uid
}
