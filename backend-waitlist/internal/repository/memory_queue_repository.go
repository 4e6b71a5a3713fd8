package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
)

// MemoryQueueRepository keeps snapshots in process memory. Used for local
// runs and tests; it honours the same version contract as the other stores.
type MemoryQueueRepository struct {
	mu     sync.RWMutex
	queues map[string]domain.QueueSnapshot
	tokens map[string]string // token -> queue id
	slugs  map[string]string // business/slug -> queue id
}

// NewMemoryQueueRepository creates an empty in-memory repository
func NewMemoryQueueRepository() *MemoryQueueRepository {
	return &MemoryQueueRepository{
		queues: make(map[string]domain.QueueSnapshot),
		tokens: make(map[string]string),
		slugs:  make(map[string]string),
	}
}

func slugKey(businessID, slug string) string {
	return businessID + "/" + slug
}

// Create stores a new queue
func (r *MemoryQueueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.queues[queue.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrQueueAlreadyExists, queue.ID)
	}
	key := slugKey(queue.BusinessID, queue.Slug)
	if _, ok := r.slugs[key]; ok {
		return fmt.Errorf("%w: slug %s", domain.ErrQueueAlreadyExists, queue.Slug)
	}
	snap := queue.Snapshot()
	if err := r.checkTokensLocked(snap); err != nil {
		return err
	}

	snap.Version = 1
	r.queues[queue.ID] = snap
	r.slugs[key] = queue.ID
	r.indexTokensLocked(snap)
	queue.Version = 1
	return nil
}

// Load returns a fresh copy of the stored queue
func (r *MemoryQueueRepository) Load(ctx context.Context, queueID string) (*domain.Queue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	snap, ok := r.queues[queueID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueNotFound, queueID)
	}
	return domain.RestoreQueue(snap)
}

// Save replaces the stored snapshot if the version matches
func (r *MemoryQueueRepository) Save(ctx context.Context, queue *domain.Queue, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.queues[queue.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrQueueNotFound, queue.ID)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: queue %s expected version %d, found %d",
			domain.ErrVersionConflict, queue.ID, expectedVersion, current.Version)
	}

	snap := queue.Snapshot()
	if err := r.checkTokensLocked(snap); err != nil {
		return err
	}

	snap.Version = expectedVersion + 1
	r.queues[queue.ID] = snap
	r.indexTokensLocked(snap)
	queue.Version = snap.Version
	return nil
}

func (r *MemoryQueueRepository) checkTokensLocked(snap domain.QueueSnapshot) error {
	for _, c := range snap.Customers {
		if owner, ok := r.tokens[c.Token]; ok && owner != snap.ID {
			return domain.ErrDuplicateToken
		}
	}
	return nil
}

func (r *MemoryQueueRepository) indexTokensLocked(snap domain.QueueSnapshot) {
	for _, c := range snap.Customers {
		r.tokens[c.Token] = snap.ID
	}
}

// FindQueueIDByToken resolves a token to its queue
func (r *MemoryQueueRepository) FindQueueIDByToken(ctx context.Context, token string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tokens[token]
	if !ok {
		return "", domain.ErrCustomerNotFound
	}
	return id, nil
}

// ListActiveQueueIDs returns active queue ids in id order
func (r *MemoryQueueRepository) ListActiveQueueIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.queues))
	for id, snap := range r.queues {
		if snap.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListByBusiness returns a business's queues ordered by name
func (r *MemoryQueueRepository) ListByBusiness(ctx context.Context, businessID string) ([]*domain.Queue, error) {
	r.mu.RLock()
	snaps := make([]domain.QueueSnapshot, 0)
	for _, snap := range r.queues {
		if snap.BusinessID == businessID {
			snaps = append(snaps, snap)
		}
	}
	r.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	out := make([]*domain.Queue, 0, len(snaps))
	for _, snap := range snaps {
		q, err := domain.RestoreQueue(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Ping always succeeds
func (r *MemoryQueueRepository) Ping(ctx context.Context) error {
	return nil
}
