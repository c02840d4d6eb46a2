package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncEvent records one observable change of a quote's price-sync state.
// Consumers (reporting, audit) key on the session id.
type SyncEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	PackageID  string    `json:"package_id,omitempty"`
	Status     string    `json:"status"`
	ReasonCode string    `json:"reason_code,omitempty"`
	TotalPrice string    `json:"total_price,omitempty"`
	Sequence   uint64    `json:"sequence"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher defines the interface for publishing sync events
type Publisher interface {
	PublishSyncEvent(ctx context.Context, event SyncEvent) error
	Close() error
}

// NoopPublisher is a no-operation publisher for testing and development
type NoopPublisher struct{}

func (NoopPublisher) PublishSyncEvent(ctx context.Context, event SyncEvent) error { return nil }
func (NoopPublisher) Close() error                                                { return nil }

// KafkaPublisher publishes sync events to a Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher creates a synchronous, idempotent Kafka producer.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}, nil
}

// PublishSyncEvent sends one event, keyed by session id so all events of a
// session land on the same partition in order.
func (p *KafkaPublisher) PublishSyncEvent(ctx context.Context, event SyncEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.SessionID),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish sync event: %w", err)
	}

	p.logger.Debug("published sync event",
		zap.String("event_id", event.ID),
		zap.String("session_id", event.SessionID),
		zap.String("status", event.Status),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
