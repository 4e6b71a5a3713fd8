package domain

import (
	"fmt"
	"time"
)

// NotificationKind identifies an addressed event
type NotificationKind string

const (
	NotificationPositionChanged NotificationKind = "position_changed"
	NotificationCalled          NotificationKind = "called"
	NotificationStatusChanged   NotificationKind = "status_changed"
	NotificationNearFront       NotificationKind = "near_front"
	NotificationQueueUpdated    NotificationKind = "queue_updated"
)

// NotificationScope tells the channel who may receive an event
type NotificationScope string

const (
	// ScopeCustomer events go only to the holder of CustomerToken
	ScopeCustomer NotificationScope = "customer"
	// ScopeQueue events go to anyone observing the queue
	ScopeQueue NotificationScope = "queue"
)

// QueueUpdateKind describes what changed in a QueueUpdated event
type QueueUpdateKind string

const (
	UpdateCustomerJoined  QueueUpdateKind = "customer_joined"
	UpdateCustomerCalled  QueueUpdateKind = "customer_called"
	UpdateCustomerServed  QueueUpdateKind = "customer_served"
	UpdateCustomerNoShow  QueueUpdateKind = "customer_no_show"
	UpdateCustomerRemoved QueueUpdateKind = "customer_removed"
	UpdateSettingsChanged QueueUpdateKind = "settings_changed"
)

// Notification is one addressed event produced by a committed mutation
type Notification struct {
	ID            string            `json:"id"`
	Kind          NotificationKind  `json:"kind"`
	Scope         NotificationScope `json:"scope"`
	QueueID       string            `json:"queue_id"`
	CustomerToken string            `json:"customer_token,omitempty"`
	Position      int               `json:"position,omitempty"`
	Status        CustomerStatus    `json:"status,omitempty"`
	Message       string            `json:"message,omitempty"`
	UpdateKind    QueueUpdateKind   `json:"update_kind,omitempty"`
	// Version is the queue version the event was computed from
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DedupeKey is identical for redeliveries of the same computed value
func (n Notification) DedupeKey() string {
	switch n.Scope {
	case ScopeQueue:
		return fmt.Sprintf("%s:%s:%s:%d", n.QueueID, n.Kind, n.UpdateKind, n.Version)
	default:
		return fmt.Sprintf("%s:%s:%s:%d", n.QueueID, n.Kind, n.CustomerToken, n.Version)
	}
}

// IsCustomerScoped reports whether the event is addressed to a single customer
func (n Notification) IsCustomerScoped() bool {
	return n.Scope == ScopeCustomer
}
