package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/udyamcap/lending-engine/internal/domain/event"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/pkg/kafka"
)

// Compile-time interface check.
var _ port.EventPublisher = (*KafkaEventPublisher)(nil)

// topicPrefix namespaces every engine topic, one topic per aggregate type:
// lending.events.loanapplication, lending.events.loan.
const topicPrefix = "lending.events."

// KafkaEventPublisher implements port.EventPublisher by writing events to
// Kafka, keyed by aggregate ID so events for one aggregate stay ordered
// within a partition.
type KafkaEventPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaEventPublisher creates a publisher on top of the shared producer.
func NewKafkaEventPublisher(producer *kafka.Producer, logger *slog.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, logger: logger}
}

// Publish serialises and sends domain events.
func (p *KafkaEventPublisher) Publish(ctx context.Context, events ...event.DomainEvent) error {
	for _, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", evt.EventType(), err)
		}

		topic := topicPrefix + strings.ToLower(evt.AggregateType())
		msg := kafka.Message{
			Key:   []byte(evt.AggregateID()),
			Value: payload,
			Headers: map[string]string{
				"event_id":   evt.EventID(),
				"event_type": evt.EventType(),
			},
		}
		if err := p.producer.Publish(ctx, topic, msg); err != nil {
			return fmt.Errorf("publish event %s: %w", evt.EventType(), err)
		}

		p.logger.Debug("published domain event",
			"event_type", evt.EventType(),
			"aggregate_id", evt.AggregateID(),
			"topic", topic,
		)
	}
	return nil
}
