package kafka

import (
	"context"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// publisher is the slice of Producer the refresher needs.
type publisher interface {
	PublishEnvelope(ctx context.Context, topic, eventType, projectID string, payload interface{}) error
}

// ScoreRefreshPublisher satisfies the application layer's ScoreRefresher
// port by publishing to the score refresh topic.
type ScoreRefreshPublisher struct {
	producer publisher
}

func NewScoreRefreshPublisher(producer *Producer) *ScoreRefreshPublisher {
	return &ScoreRefreshPublisher{producer: producer}
}

func (r *ScoreRefreshPublisher) RequestRefresh(ctx context.Context, projectID common.ProjectID) error {
	return r.producer.PublishEnvelope(ctx, TopicScoreRefresh, "score.refresh.requested",
		string(projectID), ScoreRefreshPayload{ProjectID: string(projectID)})
}
