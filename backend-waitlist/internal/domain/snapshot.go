package domain

import (
	"fmt"
	"sort"
	"time"
)

// QueueSnapshot is the persisted form of a Queue
type QueueSnapshot struct {
	ID         string        `json:"id"`
	BusinessID string        `json:"business_id"`
	Name       string        `json:"name"`
	Slug       string        `json:"slug"`
	IsActive   bool          `json:"is_active"`
	IsPaused   bool          `json:"is_paused"`
	Settings   QueueSettings `json:"settings"`
	Customers  []Customer    `json:"customers"`
	NextSeq    int64         `json:"next_seq"`
	Version    int64         `json:"version"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Snapshot copies the queue into its persisted form
func (q *Queue) Snapshot() QueueSnapshot {
	return QueueSnapshot{
		ID:         q.ID,
		BusinessID: q.BusinessID,
		Name:       q.Name,
		Slug:       q.Slug,
		IsActive:   q.active,
		IsPaused:   q.paused,
		Settings:   q.settings.clone(),
		Customers:  q.Customers(),
		NextSeq:    q.nextSeq,
		Version:    q.Version,
		CreatedAt:  q.CreatedAt,
		UpdatedAt:  q.UpdatedAt,
	}
}

// RestoreQueue rebuilds a Queue from a snapshot, rejecting states the
// aggregate could never have produced
func RestoreQueue(s QueueSnapshot) (*Queue, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: missing queue id", ErrCorruptQueue)
	}
	if err := s.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: queue %s: %v", ErrCorruptQueue, s.ID, err)
	}

	q := &Queue{
		ID:         s.ID,
		BusinessID: s.BusinessID,
		Name:       s.Name,
		Slug:       s.Slug,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		Version:    s.Version,
		active:     s.IsActive,
		paused:     s.IsPaused,
		settings:   s.Settings.clone(),
		nextSeq:    s.NextSeq,
		customers:  make([]*Customer, 0, len(s.Customers)),
	}

	ids := make(map[string]struct{}, len(s.Customers))
	tokens := make(map[string]struct{}, len(s.Customers))
	for i := range s.Customers {
		c := s.Customers[i].clone()
		if err := checkRestoredCustomer(&c); err != nil {
			return nil, fmt.Errorf("%w: queue %s: %v", ErrCorruptQueue, s.ID, err)
		}
		if _, dup := ids[c.ID]; dup {
			return nil, fmt.Errorf("%w: queue %s: duplicate customer %s", ErrCorruptQueue, s.ID, c.ID)
		}
		if _, dup := tokens[c.Token]; dup {
			return nil, fmt.Errorf("%w: queue %s: duplicate token", ErrCorruptQueue, s.ID)
		}
		ids[c.ID] = struct{}{}
		tokens[c.Token] = struct{}{}
		if c.Seq >= q.nextSeq {
			q.nextSeq = c.Seq + 1
		}
		q.customers = append(q.customers, &c)
	}

	sort.SliceStable(q.customers, func(i, j int) bool {
		return q.customers[i].before(q.customers[j])
	})
	return q, nil
}

func checkRestoredCustomer(c *Customer) error {
	if c.ID == "" || c.Token == "" {
		return fmt.Errorf("customer without id or token")
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("customer %s has unknown status %q", c.ID, c.Status)
	}
	switch c.Status {
	case CustomerStatusWaiting:
		if c.CalledAt != nil || c.CompletedAt != nil {
			return fmt.Errorf("waiting customer %s carries call or completion time", c.ID)
		}
	case CustomerStatusCalled:
		if c.CalledAt == nil {
			return fmt.Errorf("called customer %s has no call time", c.ID)
		}
		if c.CompletedAt != nil {
			return fmt.Errorf("called customer %s has a completion time", c.ID)
		}
	case CustomerStatusServed, CustomerStatusNoShow:
		if c.CalledAt == nil || c.CompletedAt == nil {
			return fmt.Errorf("%s customer %s is missing timestamps", c.Status, c.ID)
		}
	case CustomerStatusRemoved:
		if c.CompletedAt == nil {
			return fmt.Errorf("removed customer %s has no completion time", c.ID)
		}
	}
	return nil
}
