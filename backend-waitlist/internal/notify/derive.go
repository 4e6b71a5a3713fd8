package notify

import (
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/google/uuid"
)

// NearFrontMode controls when NearFront fires
type NearFrontMode string

const (
	// NearFrontCrossing fires once when a customer first reaches the threshold
	NearFrontCrossing NearFrontMode = "crossing"
	// NearFrontAlways fires on every position change at or below the threshold
	NearFrontAlways NearFrontMode = "always"

	// DefaultNearFrontThreshold is the position at which customers are told to head over
	DefaultNearFrontThreshold = 3
)

// Options configures event derivation
type Options struct {
	NearFrontThreshold int
	NearFrontMode      NearFrontMode
}

// Change describes one committed mutation
type Change struct {
	Kind domain.QueueUpdateKind
	// Customer is the customer acted on; nil for settings changes
	Customer *domain.Customer
}

// Deriver turns committed mutations into addressed notifications
type Deriver struct {
	opts  Options
	newID func() string
}

// NewDeriver creates a Deriver, filling in defaults
func NewDeriver(opts Options) *Deriver {
	if opts.NearFrontThreshold <= 0 {
		opts.NearFrontThreshold = DefaultNearFrontThreshold
	}
	if opts.NearFrontMode == "" {
		opts.NearFrontMode = NearFrontCrossing
	}
	return &Deriver{opts: opts, newID: uuid.NewString}
}

// Derive computes the events for a mutation. before holds the Waiting
// positions (by customer id) of the snapshot the mutation was applied to;
// q is the saved aggregate, so every event carries the committed version.
//
// Order: the acted-on customer's own event, then position changes (each
// followed by its NearFront, if any), then the queue-scoped update.
func (d *Deriver) Derive(q *domain.Queue, before map[string]int, change Change, now time.Time) []domain.Notification {
	var out []domain.Notification
	base := domain.Notification{QueueID: q.ID, Version: q.Version, OccurredAt: now}

	settings := q.Settings()
	if c := change.Customer; c != nil {
		switch change.Kind {
		case domain.UpdateCustomerCalled:
			n := base
			n.Kind = domain.NotificationCalled
			n.Scope = domain.ScopeCustomer
			n.CustomerToken = c.Token
			n.Status = c.Status
			n.Message = settings.CalledMessage
			out = append(out, d.stamp(n))
		case domain.UpdateCustomerServed, domain.UpdateCustomerNoShow, domain.UpdateCustomerRemoved:
			n := base
			n.Kind = domain.NotificationStatusChanged
			n.Scope = domain.ScopeCustomer
			n.CustomerToken = c.Token
			n.Status = c.Status
			out = append(out, d.stamp(n))
		}
	}

	after := q.WaitingPositions()
	for _, c := range q.ActiveCustomers() {
		pos, waiting := after[c.ID]
		if !waiting {
			continue
		}
		prev, had := before[c.ID]
		if had && prev == pos {
			continue
		}

		n := base
		n.Kind = domain.NotificationPositionChanged
		n.Scope = domain.ScopeCustomer
		n.CustomerToken = c.Token
		n.Position = pos
		n.Status = c.Status
		if !had && change.Kind == domain.UpdateCustomerJoined {
			n.Message = settings.WelcomeMessage
		}
		out = append(out, d.stamp(n))

		if d.nearFront(prev, had, pos) {
			nf := base
			nf.Kind = domain.NotificationNearFront
			nf.Scope = domain.ScopeCustomer
			nf.CustomerToken = c.Token
			nf.Position = pos
			nf.Status = c.Status
			out = append(out, d.stamp(nf))
		}
	}

	qu := base
	qu.Kind = domain.NotificationQueueUpdated
	qu.Scope = domain.ScopeQueue
	qu.UpdateKind = change.Kind
	out = append(out, d.stamp(qu))

	return out
}

func (d *Deriver) nearFront(prev int, had bool, pos int) bool {
	threshold := d.opts.NearFrontThreshold
	if pos > threshold {
		return false
	}
	if d.opts.NearFrontMode == NearFrontAlways {
		return true
	}
	return !had || prev > threshold
}

func (d *Deriver) stamp(n domain.Notification) domain.Notification {
	n.ID = d.newID()
	return n
}
