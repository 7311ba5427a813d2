// Package messaging publishes prediction notifications to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/events"
	pkgkafka "github.com/bibbank/approval/pkg/kafka"
)

// AggregatePrediction is the aggregate type of prediction events.
const AggregatePrediction = "Prediction"

// Producer is the part of pkgkafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// KafkaPublisher implements approval.EventPublisher by writing enveloped
// events to a Kafka topic, keyed by prediction ID.
type KafkaPublisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher creates a publisher targeting the given producer and topic.
func NewKafkaPublisher(producer Producer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish serialises and sends prediction events.
func (p *KafkaPublisher) Publish(ctx context.Context, evts ...approval.PredictionCompleted) error {
	messages := make([]pkgkafka.Message, 0, len(evts))
	for _, evt := range evts {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", evt.EventType(), err)
		}
		base := events.NewBaseEvent(evt.EventType(), evt.PredictionID, AggregatePrediction, evt.OccurredAt, payload)
		value, err := json.Marshal(base)
		if err != nil {
			return fmt.Errorf("marshal envelope %s: %w", evt.EventType(), err)
		}

		p.logger.DebugContext(ctx, "publishing prediction event",
			"event_type", base.EventType(),
			"prediction_id", evt.PredictionID,
			"topic", p.topic,
			"payload_size", len(value),
		)

		messages = append(messages, pkgkafka.Message{
			Key:   []byte(evt.PredictionID.String()),
			Value: value,
			Headers: map[string]string{
				"event_type": base.EventType(),
				"event_id":   base.EventID().String(),
				"service":    evt.Service,
			},
		})
	}

	if len(messages) == 0 {
		return nil
	}
	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}
	return nil
}
