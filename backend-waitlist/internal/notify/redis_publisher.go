package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannelPrefix prefixes every Pub/Sub channel
const DefaultRedisChannelPrefix = "waitlist"

// RedisPublisher delivers notifications over Redis Pub/Sub. Customer events
// go to a channel derived from the token hash, queue events to the queue channel.
type RedisPublisher struct {
	client redis.Cmdable
	prefix string
}

// NewRedisPublisher creates a new Redis Pub/Sub publisher
func NewRedisPublisher(client redis.Cmdable, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultRedisChannelPrefix
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the Pub/Sub channel a notification is addressed to
func (p *RedisPublisher) Channel(n domain.Notification) string {
	if n.IsCustomerScoped() {
		return fmt.Sprintf("%s:customer:%s", p.prefix, ChannelKey(n.CustomerToken))
	}
	return fmt.Sprintf("%s:queue:%s", p.prefix, n.QueueID)
}

// Publish sends the batch through one pipeline
func (p *RedisPublisher) Publish(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, n := range notifications {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		pipe.Publish(ctx, p.Channel(n), payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish notifications: %w", err)
	}
	return nil
}

// Name returns "redis"
func (p *RedisPublisher) Name() string { return "redis" }

// Close is a no-op; the client is shared
func (p *RedisPublisher) Close() error {
	return nil
}
