package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
)

// Publisher hands a batch of notifications to a delivery channel.
// Delivery is at-least-once; receivers dedupe with Notification.DedupeKey.
type Publisher interface {
	// Publish sends notifications derived from one committed mutation
	Publish(ctx context.Context, notifications []domain.Notification) error

	// Name identifies the channel in logs and metrics
	Name() string

	// Close releases the underlying client
	Close() error
}

// ChannelKey derives a stable channel suffix from a customer token
// without exposing the token itself.
func ChannelKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MultiPublisher fans a batch out to several publishers
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a MultiPublisher. With no publishers it behaves like NoOpPublisher.
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Publish delivers to every publisher; one failing channel does not stop the others
func (m *MultiPublisher) Publish(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, notifications); err != nil {
			errs = append(errs, &PublishError{Channel: p.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Name returns "multi"
func (m *MultiPublisher) Name() string { return "multi" }

// Close closes every publisher
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Channels lists the wrapped publisher names
func (m *MultiPublisher) Channels() []string {
	names := make([]string, 0, len(m.publishers))
	for _, p := range m.publishers {
		names = append(names, p.Name())
	}
	return names
}

// PublishError records which channel failed
type PublishError struct {
	Channel string
	Err     error
}

func (e *PublishError) Error() string {
	return e.Channel + ": " + e.Err.Error()
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// NoOpPublisher drops everything
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

// Publish is a no-op
func (p *NoOpPublisher) Publish(ctx context.Context, notifications []domain.Notification) error {
	return nil
}

// Name returns "noop"
func (p *NoOpPublisher) Name() string { return "noop" }

// Close is a no-op
func (p *NoOpPublisher) Close() error {
	return nil
}
