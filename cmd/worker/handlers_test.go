package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/messaging/kafka"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type mockTriggerService struct {
	mock.Mock
}

func (m *mockTriggerService) HandleRFIFlagged(ctx context.Context, event appcompliance.RFIFlaggedEvent) ([]*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, event)
	if d := args.Get(0); d != nil {
		return d.([]*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTriggerService) HandleChangeEvent(ctx context.Context, event appcompliance.ChangeEvent) ([]*domain.ComplianceDeadline, error) {
	args := m.Called(ctx, event)
	if d := args.Get(0); d != nil {
		return d.([]*domain.ComplianceDeadline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTriggerService) CheckRFICompliance(ctx context.Context, projectID common.ProjectID, rfiID string) (*appcompliance.RFIComplianceStatus, error) {
	args := m.Called(ctx, projectID, rfiID)
	if s := args.Get(0); s != nil {
		return s.(*appcompliance.RFIComplianceStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func testMetrics(t *testing.T) *prometheus.AppMetrics {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "test",
		Subsystem: "worker",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return prometheus.NewAppMetrics(collector)
}

func triggerMessage(t *testing.T, payload kafka.TriggerEventPayload) *kafka.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	value, err := json.Marshal(kafka.EventEnvelope{
		EventID:       "env-1",
		EventType:     payload.EventType,
		Source:        "platform",
		Timestamp:     time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC),
		SchemaVersion: "1",
		Payload:       raw,
	})
	require.NoError(t, err)
	return &kafka.Message{Topic: kafka.TopicTriggerEvent, Value: value}
}

func TestHandleTriggerEvent_RFI(t *testing.T) {
	triggers := new(mockTriggerService)
	triggers.On("HandleRFIFlagged", mock.Anything, mock.MatchedBy(func(e appcompliance.RFIFlaggedEvent) bool {
		return e.ProjectID == "proj-1" && e.RFIID == "rfi-42" && e.Number == 42
	})).Return([]*domain.ComplianceDeadline{}, nil)

	h := &messageHandlers{triggers: triggers, metrics: testMetrics(t), logger: logging.NewNopLogger()}
	err := h.handleTriggerEvent(context.Background(), triggerMessage(t, kafka.TriggerEventPayload{
		ProjectID: "proj-1",
		EventType: string(domain.TriggerRFI),
		EventID:   "rfi-42",
		Number:    "42",
		Subject:   "Unforeseen rock at grid B4",
	}))
	require.NoError(t, err)
	triggers.AssertExpectations(t)
}

func TestHandleTriggerEvent_ChangeOrder(t *testing.T) {
	triggers := new(mockTriggerService)
	triggers.On("HandleChangeEvent", mock.Anything, mock.MatchedBy(func(e appcompliance.ChangeEvent) bool {
		return e.ProjectID == "proj-1" && e.EventID == "evt-15" &&
			e.Description == "Owner directed added scope in stairwell 2"
	})).Return([]*domain.ComplianceDeadline{}, nil)

	h := &messageHandlers{triggers: triggers, metrics: testMetrics(t), logger: logging.NewNopLogger()}
	err := h.handleTriggerEvent(context.Background(), triggerMessage(t, kafka.TriggerEventPayload{
		ProjectID: "proj-1",
		EventType: string(domain.TriggerChangeOrder),
		EventID:   "evt-15",
		Title:     "Owner directed added scope in stairwell 2",
	}))
	require.NoError(t, err)
	triggers.AssertExpectations(t)
}

func TestHandleTriggerEvent_UnknownTypeIsRejected(t *testing.T) {
	triggers := new(mockTriggerService)

	h := &messageHandlers{triggers: triggers, metrics: testMetrics(t), logger: logging.NewNopLogger()}
	err := h.handleTriggerEvent(context.Background(), triggerMessage(t, kafka.TriggerEventPayload{
		ProjectID: "proj-1",
		EventType: "WEATHER_DELAY",
		EventID:   "evt-99",
		Title:     "Three days of rain",
	}))

	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	triggers.AssertNotCalled(t, "HandleChangeEvent", mock.Anything, mock.Anything)
	triggers.AssertNotCalled(t, "HandleRFIFlagged", mock.Anything, mock.Anything)
}
