package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultServiceMinutes is the default estimated time to serve one customer
	DefaultServiceMinutes = 5
	// DefaultNoShowTimeoutMinutes is how long a called customer has to show up
	DefaultNoShowTimeoutMinutes = 5
	// MaxMessageLength bounds the welcome and called messages
	MaxMessageLength = 500
)

// QueueSettings holds per-queue configuration
type QueueSettings struct {
	// MaxCapacity limits Waiting+Called customers; nil means unbounded
	MaxCapacity             *int   `json:"max_capacity,omitempty"`
	EstimatedServiceMinutes int    `json:"estimated_service_minutes"`
	NoShowTimeoutMinutes    int    `json:"no_show_timeout_minutes"`
	AllowJoinWhenPaused     bool   `json:"allow_join_when_paused"`
	WelcomeMessage          string `json:"welcome_message,omitempty"`
	CalledMessage           string `json:"called_message,omitempty"`
}

// DefaultQueueSettings returns settings for a new queue
func DefaultQueueSettings() QueueSettings {
	return QueueSettings{
		EstimatedServiceMinutes: DefaultServiceMinutes,
		NoShowTimeoutMinutes:    DefaultNoShowTimeoutMinutes,
	}
}

// Validate checks settings ranges
func (s QueueSettings) Validate() error {
	if s.MaxCapacity != nil && *s.MaxCapacity < 0 {
		return fmt.Errorf("%w: max capacity cannot be negative", ErrInvalidSettings)
	}
	if s.EstimatedServiceMinutes <= 0 {
		return fmt.Errorf("%w: estimated service minutes must be greater than zero", ErrInvalidSettings)
	}
	if s.NoShowTimeoutMinutes <= 0 {
		return fmt.Errorf("%w: no-show timeout minutes must be greater than zero", ErrInvalidSettings)
	}
	if len(s.WelcomeMessage) > MaxMessageLength || len(s.CalledMessage) > MaxMessageLength {
		return fmt.Errorf("%w: messages are limited to %d characters", ErrInvalidSettings, MaxMessageLength)
	}
	return nil
}

// NoShowTimeout returns the no-show timeout as a duration
func (s QueueSettings) NoShowTimeout() time.Duration {
	return time.Duration(s.NoShowTimeoutMinutes) * time.Minute
}

// EstimatedWaitMinutes estimates the wait for a given position
func (s QueueSettings) EstimatedWaitMinutes(position int) int {
	if position <= 0 {
		return 0
	}
	return position * s.EstimatedServiceMinutes
}

func (s QueueSettings) clone() QueueSettings {
	out := s
	if s.MaxCapacity != nil {
		c := *s.MaxCapacity
		out.MaxCapacity = &c
	}
	return out
}
