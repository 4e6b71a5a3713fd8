package domain

import (
	"encoding/json"
	"time"
)

// CustomerStatus represents the status of a customer in a queue
type CustomerStatus string

const (
	CustomerStatusWaiting CustomerStatus = "waiting"
	CustomerStatusCalled  CustomerStatus = "called"
	CustomerStatusServed  CustomerStatus = "served"
	CustomerStatusNoShow  CustomerStatus = "no_show"
	CustomerStatusRemoved CustomerStatus = "removed"
)

// IsValid reports whether s is a known status
func (s CustomerStatus) IsValid() bool {
	switch s {
	case CustomerStatusWaiting, CustomerStatusCalled, CustomerStatusServed,
		CustomerStatusNoShow, CustomerStatusRemoved:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s CustomerStatus) IsTerminal() bool {
	return s == CustomerStatusServed || s == CustomerStatusNoShow || s == CustomerStatusRemoved
}

// IsActive reports whether the customer still occupies a place in the queue
func (s CustomerStatus) IsActive() bool {
	return s == CustomerStatusWaiting || s == CustomerStatusCalled
}

// Customer is one entry in a queue
type Customer struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Token            string          `json:"token"`
	Status           CustomerStatus  `json:"status"`
	JoinedAt         time.Time       `json:"joined_at"`
	Seq              int64           `json:"seq"`
	CalledAt         *time.Time      `json:"called_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	PartySize        int             `json:"party_size,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	PushSubscription json.RawMessage `json:"push_subscription,omitempty"`
}

// before reports FIFO order: join time first, insertion sequence breaks ties
func (c *Customer) before(other *Customer) bool {
	if !c.JoinedAt.Equal(other.JoinedAt) {
		return c.JoinedAt.Before(other.JoinedAt)
	}
	return c.Seq < other.Seq
}

// CalledFor returns how long the customer has been called at now
func (c *Customer) CalledFor(now time.Time) time.Duration {
	if c.CalledAt == nil {
		return 0
	}
	return now.Sub(*c.CalledAt)
}

func (c *Customer) clone() Customer {
	out := *c
	if c.CalledAt != nil {
		t := *c.CalledAt
		out.CalledAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	if c.PushSubscription != nil {
		out.PushSubscription = append(json.RawMessage(nil), c.PushSubscription...)
	}
	return out
}
