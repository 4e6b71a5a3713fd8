package notify

import (
	"context"
	"fmt"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	pubnub "github.com/pubnub/go"
)

// PubNubConfig holds PubNub keys
type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
}

type publishFunc func(channel string, message map[string]any) error

// PubNubPublisher pushes notifications to browsers and apps subscribed to
// per-customer and per-queue PubNub channels
type PubNubPublisher struct {
	pn      *pubnub.PubNub
	publish publishFunc
}

// NewPubNubPublisher creates a PubNub client from keys
func NewPubNubPublisher(cfg *PubNubConfig) (*PubNubPublisher, error) {
	if cfg == nil || cfg.PublishKey == "" || cfg.SubscribeKey == "" {
		return nil, fmt.Errorf("pubnub publish and subscribe keys are required")
	}

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey

	pn := pubnub.NewPubNub(pnConfig)
	p := &PubNubPublisher{pn: pn}
	p.publish = func(channel string, message map[string]any) error {
		_, _, err := pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	}
	return p, nil
}

// PubNubChannel returns the channel a notification is addressed to
func PubNubChannel(n domain.Notification) string {
	if n.IsCustomerScoped() {
		return "customer-" + ChannelKey(n.CustomerToken)
	}
	return "queue-" + n.QueueID
}

// Publish sends each notification. PubNub has no batch publish, so the
// first failure stops the batch and the remainder is left to redelivery.
func (p *PubNubPublisher) Publish(ctx context.Context, notifications []domain.Notification) error {
	for _, n := range notifications {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.publish(PubNubChannel(n), pubnubMessage(n)); err != nil {
			return fmt.Errorf("failed to publish %s to pubnub: %w", n.Kind, err)
		}
	}
	return nil
}

func pubnubMessage(n domain.Notification) map[string]any {
	msg := map[string]any{
		"id":          n.ID,
		"type":        string(n.Kind),
		"queue_id":    n.QueueID,
		"version":     n.Version,
		"dedupe_key":  n.DedupeKey(),
		"occurred_at": n.OccurredAt.UnixMilli(),
	}
	if n.Position > 0 {
		msg["position"] = n.Position
	}
	if n.Status != "" {
		msg["status"] = string(n.Status)
	}
	if n.Message != "" {
		msg["message"] = n.Message
	}
	if n.UpdateKind != "" {
		msg["update_kind"] = string(n.UpdateKind)
	}
	return msg
}

// Name returns "pubnub"
func (p *PubNubPublisher) Name() string { return "pubnub" }

// Close tears down the PubNub client
func (p *PubNubPublisher) Close() error {
	if p.pn != nil {
		p.pn.Destroy()
	}
	return nil
}
