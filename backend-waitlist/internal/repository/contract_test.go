package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestQueue(t *testing.T, businessID string) *domain.Queue {
	t.Helper()
	id := uuid.NewString()
	q, err := domain.NewQueue(domain.NewQueueParams{
		ID:         id,
		BusinessID: businessID,
		Name:       "Queue " + id[:8],
		Slug:       "queue-" + id[:8],
	}, t0)
	require.NoError(t, err)
	return q
}

func addCustomer(t *testing.T, q *domain.Queue, name string) domain.Customer {
	t.Helper()
	c, err := q.AddCustomer(domain.NewCustomer{
		ID:       uuid.NewString(),
		Token:    uuid.NewString(),
		Name:     name,
		JoinedAt: t0,
	})
	require.NoError(t, err)
	return c
}

// runQueueRepositoryContract checks the behaviour every QueueRepository must share
func runQueueRepositoryContract(t *testing.T, newRepo func(t *testing.T) QueueRepository) {
	ctx := context.Background()

	t.Run("create sets version 1", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())

		require.NoError(t, repo.Create(ctx, q))
		assert.Equal(t, int64(1), q.Version)

		loaded, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), loaded.Version)
		assert.Equal(t, q.Name, loaded.Name)
		assert.True(t, loaded.IsActive())
	})

	t.Run("create twice", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		require.NoError(t, repo.Create(ctx, q))

		err := repo.Create(ctx, q)
		assert.ErrorIs(t, err, domain.ErrQueueAlreadyExists)
	})

	t.Run("load missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Load(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrQueueNotFound)
	})

	t.Run("save increments version and persists customers", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		require.NoError(t, repo.Create(ctx, q))

		a := addCustomer(t, q, "Alice")
		addCustomer(t, q, "Bob")
		require.NoError(t, repo.Save(ctx, q, 1))
		assert.Equal(t, int64(2), q.Version)

		loaded, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.Equal(t, 2, loaded.GetWaitingCount())
		pos, ok := loaded.GetCustomerPosition(a.ID)
		assert.True(t, ok)
		assert.Equal(t, 1, pos)

		_, err = loaded.CallNext(t0.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, loaded, 2))

		reloaded, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)
		c, _ := reloaded.Customer(a.ID)
		assert.Equal(t, domain.CustomerStatusCalled, c.Status)
		require.NotNil(t, c.CalledAt)
		assert.True(t, c.CalledAt.Equal(t0.Add(time.Minute)))
	})

	t.Run("stale save is rejected", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		require.NoError(t, repo.Create(ctx, q))

		first, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)
		second, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)

		addCustomer(t, first, "Alice")
		require.NoError(t, repo.Save(ctx, first, 1))

		addCustomer(t, second, "Bob")
		err = repo.Save(ctx, second, 1)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		loaded, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.GetWaitingCount(), "rejected write leaves no trace")
	})

	t.Run("save missing queue", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		err := repo.Save(ctx, q, 1)
		assert.ErrorIs(t, err, domain.ErrQueueNotFound)
	})

	t.Run("concurrent saves from one version", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		require.NoError(t, repo.Create(ctx, q))

		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				loaded, err := repo.Load(ctx, q.ID)
				if err != nil {
					return
				}
				loaded.Version = 1
				loaded.SetPaused(true, t0)
				switch err := repo.Save(ctx, loaded, 1); {
				case err == nil:
					wins.Add(1)
				case domain.IsConflictError(err):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(7), conflicts.Load())
	})

	t.Run("token lookup", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		require.NoError(t, repo.Create(ctx, q))
		c := addCustomer(t, q, "Alice")
		require.NoError(t, repo.Save(ctx, q, 1))

		id, err := repo.FindQueueIDByToken(ctx, c.Token)
		require.NoError(t, err)
		assert.Equal(t, q.ID, id)

		_, err = repo.FindQueueIDByToken(ctx, "unknown-token")
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	})

	t.Run("token unique across queues", func(t *testing.T) {
		repo := newRepo(t)
		business := uuid.NewString()
		q1 := newTestQueue(t, business)
		q2 := newTestQueue(t, business)
		require.NoError(t, repo.Create(ctx, q1))
		require.NoError(t, repo.Create(ctx, q2))

		c := addCustomer(t, q1, "Alice")
		require.NoError(t, repo.Save(ctx, q1, 1))

		_, err := q2.AddCustomer(domain.NewCustomer{ID: uuid.NewString(), Token: c.Token, Name: "Mallory", JoinedAt: t0})
		require.NoError(t, err)
		err = repo.Save(ctx, q2, 1)
		assert.ErrorIs(t, err, domain.ErrDuplicateToken)
	})

	t.Run("active ids and business listing", func(t *testing.T) {
		repo := newRepo(t)
		business := uuid.NewString()
		open := newTestQueue(t, business)
		closed := newTestQueue(t, business)
		require.NoError(t, repo.Create(ctx, open))
		require.NoError(t, repo.Create(ctx, closed))

		closed.SetActive(false, t0)
		require.NoError(t, repo.Save(ctx, closed, 1))

		ids, err := repo.ListActiveQueueIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, open.ID)
		assert.NotContains(t, ids, closed.ID)

		queues, err := repo.ListByBusiness(ctx, business)
		require.NoError(t, err)
		assert.Len(t, queues, 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo := newRepo(t)
		q := newTestQueue(t, uuid.NewString())
		require.NoError(t, repo.Create(ctx, q))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		q.SetPaused(true, t0)
		assert.Error(t, repo.Save(cctx, q, 1))

		loaded, err := repo.Load(ctx, q.ID)
		require.NoError(t, err)
		assert.False(t, loaded.IsPaused())
		assert.Equal(t, int64(1), loaded.Version)
	})
}

func TestMemoryQueueRepository_Contract(t *testing.T) {
	runQueueRepositoryContract(t, func(t *testing.T) QueueRepository {
		return NewMemoryQueueRepository()
	})
}

func TestMemoryQueueRepository_LoadReturnsIndependentCopies(t *testing.T) {
	repo := NewMemoryQueueRepository()
	ctx := context.Background()
	q := newTestQueue(t, "biz")
	require.NoError(t, repo.Create(ctx, q))

	a, err := repo.Load(ctx, q.ID)
	require.NoError(t, err)
	addCustomer(t, a, "Alice")

	b, err := repo.Load(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.GetWaitingCount())
}

func TestMemoryQueueRepository_DuplicateSlug(t *testing.T) {
	repo := NewMemoryQueueRepository()
	ctx := context.Background()

	q1, _ := domain.NewQueue(domain.NewQueueParams{ID: "q1", BusinessID: "biz", Name: "A", Slug: "front"}, t0)
	q2, _ := domain.NewQueue(domain.NewQueueParams{ID: "q2", BusinessID: "biz", Name: "B", Slug: "front"}, t0)
	q3, _ := domain.NewQueue(domain.NewQueueParams{ID: "q3", BusinessID: "other", Name: "C", Slug: "front"}, t0)

	require.NoError(t, repo.Create(ctx, q1))
	assert.ErrorIs(t, repo.Create(ctx, q2), domain.ErrQueueAlreadyExists)
	assert.NoError(t, repo.Create(ctx, q3))
}
