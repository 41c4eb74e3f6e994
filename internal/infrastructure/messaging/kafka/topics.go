// Package kafka carries the async topology: trigger events and contract
// parse requests flow in, score refresh requests flow both ways.  The worker
// consumes every topic; the apiserver and external subsystems produce.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

const (
	TopicTriggerEvent  = "compliance.trigger.event"
	TopicContractParse = "compliance.contract.parse"
	TopicScoreRefresh  = "compliance.score.refresh"
)

// DeadLetterTopic returns the dead letter topic paired with a source topic.
func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}

// Message is a consumed record with headers flattened to strings.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is an outbound record.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message.  A non-nil error triggers
// the consumer's retry and dead letter path.
type MessageHandler func(ctx context.Context, msg *Message) error

// EventEnvelope is the wire format shared by every topic.
type EventEnvelope struct {
	EventID       string            `json:"eventId"`
	EventType     string            `json:"eventType"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schemaVersion"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TriggerEventPayload announces a project event that may start deadline
// clocks (an RFI submission or a change order).
type TriggerEventPayload struct {
	ProjectID  string    `json:"projectId"`
	EventType  string    `json:"eventType"`
	EventID    string    `json:"eventId"`
	Number     string    `json:"number,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorId,omitempty"`
}

// ContractParsePayload requests asynchronous clause re-extraction for a
// stored contract document.
type ContractParsePayload struct {
	ProjectID   string `json:"projectId"`
	DocumentID  string `json:"documentId"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// ScoreRefreshPayload requests a score recompute for one project.
type ScoreRefreshPayload struct {
	ProjectID string `json:"projectId"`
}

// NewEventEnvelope wraps a payload for publication.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "envelope payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage renders the envelope as a producer message keyed for ordering.
// Per-project keys keep a project's events on one partition so trigger
// dedup sees them in order.
func (e *EventEnvelope) ToMessage(topic string, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"eventType":     e.EventType,
		"sourceService": e.Source,
		"schemaVersion": e.SchemaVersion,
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a consumed message back into an envelope.
func DecodeEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// TopicConfig describes one topic for provisioning.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions topics at startup.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		exists, _ := m.TopicExists(ctx, cfg.Name)
		if exists {
			return nil
		}
		return err
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDefaultTopics provisions the compliance topics and their dead letter
// pairs.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	return m.EnsureTopics(ctx, DefaultTopics())
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

func DefaultTopics() []TopicConfig {
	const (
		week  = 7 * 24 * 3600 * 1000
		month = 30 * 24 * 3600 * 1000
	)
	return []TopicConfig{
		{Name: TopicTriggerEvent, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: week},
		{Name: TopicContractParse, NumPartitions: 3, ReplicationFactor: 3, RetentionMs: week},
		{Name: TopicScoreRefresh, NumPartitions: 3, ReplicationFactor: 3, RetentionMs: week},
		{Name: DeadLetterTopic(TopicTriggerEvent), NumPartitions: 3, ReplicationFactor: 3, RetentionMs: month},
		{Name: DeadLetterTopic(TopicContractParse), NumPartitions: 3, ReplicationFactor: 3, RetentionMs: month},
		{Name: DeadLetterTopic(TopicScoreRefresh), NumPartitions: 3, ReplicationFactor: 3, RetentionMs: month},
	}
}
