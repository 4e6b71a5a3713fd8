package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/kafka"
)

// DefaultKafkaTopic is where waitlist notifications are produced
const DefaultKafkaTopic = "waitlist-notifications"

// BatchProducer is the part of kafka.Producer the publisher needs
type BatchProducer interface {
	ProduceBatch(ctx context.Context, msgs []*kafka.Message) error
	Close()
}

var _ BatchProducer = (*kafka.Producer)(nil)

// KafkaPublisherConfig contains configuration for the Kafka publisher
type KafkaPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaPublisher produces notifications to Kafka keyed by queue id so
// events for one queue stay ordered within a partition
type KafkaPublisher struct {
	producer    BatchProducer
	topic       string
	serviceName string
}

// NewKafkaPublisher connects a producer and wraps it
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "waitlist-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, cfg.Topic, cfg.ServiceName), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer BatchProducer, topic, serviceName string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	if serviceName == "" {
		serviceName = "waitlist-service"
	}
	return &KafkaPublisher{producer: producer, topic: topic, serviceName: serviceName}
}

// Publish produces the whole batch in one synchronous call
func (p *KafkaPublisher) Publish(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	msgs := make([]*kafka.Message, 0, len(notifications))
	for _, n := range notifications {
		value, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		msgs = append(msgs, &kafka.Message{
			Topic: p.topic,
			Key:   []byte(n.QueueID),
			Value: value,
			Headers: map[string]string{
				"event_type":   string(n.Kind),
				"event_id":     n.ID,
				"dedupe_key":   n.DedupeKey(),
				"source":       p.serviceName,
				"content_type": "application/json",
			},
			Timestamp: n.OccurredAt,
		})
	}

	if err := p.producer.ProduceBatch(ctx, msgs); err != nil {
		return fmt.Errorf("failed to produce %d notifications: %w", len(msgs), err)
	}
	return nil
}

// Name returns "kafka"
func (p *KafkaPublisher) Name() string { return "kafka" }

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}
