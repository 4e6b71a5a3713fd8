package dto

import (
	"encoding/json"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
)

// QueueSettingsRequest replaces a queue's settings wholesale
type QueueSettingsRequest struct {
	MaxCapacity             *int   `json:"max_capacity"`
	EstimatedServiceMinutes int    `json:"estimated_service_minutes" binding:"required,min=1"`
	NoShowTimeoutMinutes    int    `json:"no_show_timeout_minutes" binding:"required,min=1"`
	AllowJoinWhenPaused     bool   `json:"allow_join_when_paused"`
	WelcomeMessage          string `json:"welcome_message" binding:"max=500"`
	CalledMessage           string `json:"called_message" binding:"max=500"`
}

// ToDomain converts the request into domain settings
func (r *QueueSettingsRequest) ToDomain() domain.QueueSettings {
	return domain.QueueSettings{
		MaxCapacity:             r.MaxCapacity,
		EstimatedServiceMinutes: r.EstimatedServiceMinutes,
		NoShowTimeoutMinutes:    r.NoShowTimeoutMinutes,
		AllowJoinWhenPaused:     r.AllowJoinWhenPaused,
		WelcomeMessage:          r.WelcomeMessage,
		CalledMessage:           r.CalledMessage,
	}
}

// CreateQueueRequest represents request to open a new queue
type CreateQueueRequest struct {
	BusinessID string                `json:"business_id" binding:"required"`
	Name       string                `json:"name" binding:"required,max=100"`
	Slug       string                `json:"slug" binding:"required,max=64"`
	Settings   *QueueSettingsRequest `json:"settings"`
}

// UpdateQueueStatusRequest pauses/resumes or opens/closes a queue
type UpdateQueueStatusRequest struct {
	IsPaused *bool `json:"is_paused"`
	IsActive *bool `json:"is_active"`
}

// QueueResponse represents a queue without its customers
type QueueResponse struct {
	ID           string               `json:"id"`
	BusinessID   string               `json:"business_id"`
	Name         string               `json:"name"`
	Slug         string               `json:"slug"`
	IsActive     bool                 `json:"is_active"`
	IsPaused     bool                 `json:"is_paused"`
	Settings     domain.QueueSettings `json:"settings"`
	WaitingCount int                  `json:"waiting_count"`
	Version      int64                `json:"version"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewQueueResponse builds a QueueResponse from the aggregate
func NewQueueResponse(q *domain.Queue) *QueueResponse {
	return &QueueResponse{
		ID:           q.ID,
		BusinessID:   q.BusinessID,
		Name:         q.Name,
		Slug:         q.Slug,
		IsActive:     q.IsActive(),
		IsPaused:     q.IsPaused(),
		Settings:     q.Settings(),
		WaitingCount: q.GetWaitingCount(),
		Version:      q.Version,
		CreatedAt:    q.CreatedAt,
	}
}

// QueueDetailResponse is the staff view of a queue
type QueueDetailResponse struct {
	QueueResponse
	Customers   []CustomerResponse `json:"customers"`
	CalledCount int                `json:"called_count"`
	ServedToday int                `json:"served_today"`
}

// CustomerResponse is the staff view of one customer
type CustomerResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Status      domain.CustomerStatus `json:"status"`
	Position    *int                  `json:"position,omitempty"`
	JoinedAt    time.Time             `json:"joined_at"`
	CalledAt    *time.Time            `json:"called_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Phone       string                `json:"phone,omitempty"`
	PartySize   int                   `json:"party_size,omitempty"`
	Notes       string                `json:"notes,omitempty"`
}

// NewCustomerResponse builds a CustomerResponse; position is 0 when not waiting
func NewCustomerResponse(c domain.Customer, position int) CustomerResponse {
	resp := CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Status:      c.Status,
		JoinedAt:    c.JoinedAt,
		CalledAt:    c.CalledAt,
		CompletedAt: c.CompletedAt,
		Phone:       c.Phone,
		PartySize:   c.PartySize,
		Notes:       c.Notes,
	}
	if position > 0 {
		p := position
		resp.Position = &p
	}
	return resp
}

// JoinQueueRequest represents request to join a queue
type JoinQueueRequest struct {
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone" binding:"max=32"`
	PartySize int    `json:"party_size" binding:"min=0,max=50"`
	Notes     string `json:"notes" binding:"max=500"`
}

// JoinQueueResponse represents response after joining a queue.
// Token is the customer's only credential; it is returned once.
type JoinQueueResponse struct {
	QueueID              string    `json:"queue_id"`
	CustomerID           string    `json:"customer_id"`
	Token                string    `json:"token"`
	Position             int       `json:"position"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
	JoinedAt             time.Time `json:"joined_at"`
	Message              string    `json:"message,omitempty"`
}

// CustomerStatusResponse is what a customer sees when polling with their token
type CustomerStatusResponse struct {
	QueueID              string                `json:"queue_id"`
	QueueName            string                `json:"queue_name"`
	Name                 string                `json:"name"`
	Status               domain.CustomerStatus `json:"status"`
	Position             *int                  `json:"position,omitempty"`
	WaitingCount         int                   `json:"waiting_count"`
	EstimatedWaitMinutes int                   `json:"estimated_wait_minutes"`
	JoinedAt             time.Time             `json:"joined_at"`
	CalledAt             *time.Time            `json:"called_at,omitempty"`
	Message              string                `json:"message,omitempty"`
	IsPaused             bool                  `json:"is_paused"`
}

// PushSubscriptionRequest carries an opaque push descriptor
type PushSubscriptionRequest struct {
	Subscription json.RawMessage `json:"subscription" binding:"required"`
}
