package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bazarpepe/orders/internal/domain"
)

// eventEnvelope — формат события витрины в topic'е заказов.
type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// EventPublisher доставляет outbox-сообщения в один Kafka topic.
type EventPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher возвращает publisher для transactional outbox.
// Пустой topic означает основной topic событий заказов.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &EventPublisher{producer: producer, topic: topic}
}

// Publish сериализует envelope и отправляет его в topic. Партиционируем по
// aggregate_id: события одного заказа должны попадать в одну партицию.
func (p *EventPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka publisher is not connected")
	}

	data, err := json.Marshal(eventEnvelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}

	return p.producer.Send(p.topic, key, data)
}

var _ domain.OutboxPublisher = (*EventPublisher)(nil)
