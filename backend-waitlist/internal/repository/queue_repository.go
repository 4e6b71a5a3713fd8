package repository

import (
	"context"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
)

// QueueRepository persists queue aggregates under optimistic concurrency.
// Implementations never retry; callers reload on ErrVersionConflict.
type QueueRepository interface {
	// Create stores a new queue and sets its Version to 1.
	// Returns ErrQueueAlreadyExists when the id or the business slug is taken.
	Create(ctx context.Context, queue *domain.Queue) error

	// Load returns the queue with its current Version, or ErrQueueNotFound
	Load(ctx context.Context, queueID string) (*domain.Queue, error)

	// Save writes the queue only if the stored version still equals
	// expectedVersion, then sets queue.Version to expectedVersion+1.
	// Returns ErrVersionConflict on a stale write and ErrDuplicateToken
	// when a new customer token is already held by another queue.
	Save(ctx context.Context, queue *domain.Queue, expectedVersion int64) error

	// FindQueueIDByToken resolves a customer token, or ErrCustomerNotFound
	FindQueueIDByToken(ctx context.Context, token string) (string, error)

	// ListActiveQueueIDs returns ids of queues that are active
	ListActiveQueueIDs(ctx context.Context) ([]string, error)

	// ListByBusiness returns the queues of a business ordered by name
	ListByBusiness(ctx context.Context, businessID string) ([]*domain.Queue, error)

	// Ping checks the storage backend
	Ping(ctx context.Context) error
}
