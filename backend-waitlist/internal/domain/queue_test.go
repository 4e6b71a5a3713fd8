package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func newTestQueue(t *testing.T, settings *QueueSettings) *Queue {
	t.Helper()
	q, err := NewQueue(NewQueueParams{
		ID:         "q-1",
		BusinessID: "biz-1",
		Name:       "Front Desk",
		Slug:       "front-desk",
		Settings:   settings,
	}, t0)
	require.NoError(t, err)
	return q
}

func join(t *testing.T, q *Queue, name string, at time.Time) Customer {
	t.Helper()
	c, err := q.AddCustomer(NewCustomer{
		ID:       "c-" + name,
		Token:    "tok-" + name,
		Name:     name,
		JoinedAt: at,
	})
	require.NoError(t, err)
	return c
}

func TestNewQueue_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params NewQueueParams
		err    error
	}{
		{"missing id", NewQueueParams{Name: "A", Slug: "a"}, ErrInvalidQueueID},
		{"empty name", NewQueueParams{ID: "q", Name: "  ", Slug: "a"}, ErrInvalidName},
		{"long name", NewQueueParams{ID: "q", Name: strings.Repeat("x", 101), Slug: "a"}, ErrInvalidName},
		{"bad slug", NewQueueParams{ID: "q", Name: "A", Slug: "Not A Slug"}, ErrInvalidSlug},
		{"bad settings", NewQueueParams{ID: "q", Name: "A", Slug: "a", Settings: &QueueSettings{}}, ErrInvalidSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQueue(tt.params, t0)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewQueue_Defaults(t *testing.T) {
	q := newTestQueue(t, nil)

	assert.True(t, q.IsActive())
	assert.False(t, q.IsPaused())
	assert.Equal(t, DefaultQueueSettings(), q.Settings())
	assert.Equal(t, 0, q.GetWaitingCount())
}

func TestQueue_AddCustomer_FIFOPositions(t *testing.T) {
	q := newTestQueue(t, nil)
	a := join(t, q, "A", t0)
	b := join(t, q, "B", t0.Add(time.Minute))
	c := join(t, q, "C", t0.Add(2*time.Minute))

	for i, cust := range []Customer{a, b, c} {
		pos, ok := q.GetCustomerPosition(cust.ID)
		require.True(t, ok)
		assert.Equal(t, i+1, pos)
		assert.Equal(t, CustomerStatusWaiting, cust.Status)
	}
	assert.Equal(t, 3, q.GetWaitingCount())
}

func TestQueue_AddCustomer_SameTimestampKeepsInsertionOrder(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0)
	join(t, q, "C", t0)

	positions := q.WaitingPositions()
	assert.Equal(t, map[string]int{"c-A": 1, "c-B": 2, "c-C": 3}, positions)
}

func TestQueue_AddCustomer_EarlierTimestampGoesFirst(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "late", t0.Add(time.Minute))
	join(t, q, "early", t0)

	pos, _ := q.GetCustomerPosition("c-early")
	assert.Equal(t, 1, pos)
}

func TestQueue_AddCustomer_Rejections(t *testing.T) {
	t.Run("invalid name", func(t *testing.T) {
		q := newTestQueue(t, nil)
		_, err := q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: "", JoinedAt: t0})
		assert.ErrorIs(t, err, ErrInvalidName)

		_, err = q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: strings.Repeat("é", 101), JoinedAt: t0})
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("inactive", func(t *testing.T) {
		q := newTestQueue(t, nil)
		q.SetActive(false, t0)
		_, err := q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: "A", JoinedAt: t0})
		assert.ErrorIs(t, err, ErrQueueNotActive)
	})

	t.Run("paused", func(t *testing.T) {
		q := newTestQueue(t, nil)
		q.SetPaused(true, t0)
		_, err := q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: "A", JoinedAt: t0})
		assert.ErrorIs(t, err, ErrQueuePaused)
	})

	t.Run("paused but joining allowed", func(t *testing.T) {
		s := DefaultQueueSettings()
		s.AllowJoinWhenPaused = true
		q := newTestQueue(t, &s)
		q.SetPaused(true, t0)
		_, err := q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: "A", JoinedAt: t0})
		assert.NoError(t, err)
	})

	t.Run("duplicate token", func(t *testing.T) {
		q := newTestQueue(t, nil)
		join(t, q, "A", t0)
		_, err := q.AddCustomer(NewCustomer{ID: "c-other", Token: "tok-A", Name: "B", JoinedAt: t0})
		assert.ErrorIs(t, err, ErrDuplicateToken)
	})

	t.Run("party size", func(t *testing.T) {
		q := newTestQueue(t, nil)
		_, err := q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: "A", PartySize: 51, JoinedAt: t0})
		assert.ErrorIs(t, err, ErrInvalidPartySize)
	})
}

func TestQueue_AddCustomer_Capacity(t *testing.T) {
	s := DefaultQueueSettings()
	s.MaxCapacity = intPtr(2)
	q := newTestQueue(t, &s)

	join(t, q, "A", t0)
	join(t, q, "B", t0)
	_, err := q.AddCustomer(NewCustomer{ID: "c-C", Token: "tok-C", Name: "C", JoinedAt: t0})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// Called customers still count
	_, err = q.CallNext(t0)
	require.NoError(t, err)
	_, err = q.AddCustomer(NewCustomer{ID: "c-C", Token: "tok-C", Name: "C", JoinedAt: t0})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// Served customers free a slot
	_, err = q.MarkServed("c-A", t0)
	require.NoError(t, err)
	_, err = q.AddCustomer(NewCustomer{ID: "c-C", Token: "tok-C", Name: "C", JoinedAt: t0})
	assert.NoError(t, err)
}

func TestQueue_AddCustomer_ZeroCapacity(t *testing.T) {
	s := DefaultQueueSettings()
	s.MaxCapacity = intPtr(0)
	q := newTestQueue(t, &s)

	_, err := q.AddCustomer(NewCustomer{ID: "c", Token: "t", Name: "A", JoinedAt: t0})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestQueue_CallNext(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0.Add(time.Minute))

	now := t0.Add(5 * time.Minute)
	called, err := q.CallNext(now)
	require.NoError(t, err)

	assert.Equal(t, "c-A", called.ID)
	assert.Equal(t, CustomerStatusCalled, called.Status)
	require.NotNil(t, called.CalledAt)
	assert.Equal(t, now, *called.CalledAt)

	_, ok := q.GetCustomerPosition("c-A")
	assert.False(t, ok)
	pos, ok := q.GetCustomerPosition("c-B")
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, 1, q.GetCalledCount())
}

func TestQueue_CallNext_Empty(t *testing.T) {
	q := newTestQueue(t, nil)
	_, err := q.CallNext(t0)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	join(t, q, "A", t0)
	_, err = q.CallNext(t0)
	require.NoError(t, err)

	// Only a Called customer left
	_, err = q.CallNext(t0)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestQueue_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(q *Queue)
		op      func(q *Queue) (Customer, error)
		want    CustomerStatus
		err     error
	}{
		{
			name: "serve called",
			prepare: func(q *Queue) {
				q.CallNext(t0)
			},
			op:   func(q *Queue) (Customer, error) { return q.MarkServed("c-A", t0) },
			want: CustomerStatusServed,
		},
		{
			name: "serve waiting",
			op:   func(q *Queue) (Customer, error) { return q.MarkServed("c-A", t0) },
			err:  ErrInvalidTransition,
		},
		{
			name: "no-show called",
			prepare: func(q *Queue) {
				q.CallNext(t0)
			},
			op:   func(q *Queue) (Customer, error) { return q.MarkNoShow("c-A", t0) },
			want: CustomerStatusNoShow,
		},
		{
			name: "no-show waiting",
			op:   func(q *Queue) (Customer, error) { return q.MarkNoShow("c-A", t0) },
			err:  ErrInvalidTransition,
		},
		{
			name: "remove waiting",
			op:   func(q *Queue) (Customer, error) { return q.RemoveCustomer("c-A", t0) },
			want: CustomerStatusRemoved,
		},
		{
			name: "remove called",
			prepare: func(q *Queue) {
				q.CallNext(t0)
			},
			op:   func(q *Queue) (Customer, error) { return q.RemoveCustomer("c-A", t0) },
			want: CustomerStatusRemoved,
		},
		{
			name: "remove served",
			prepare: func(q *Queue) {
				q.CallNext(t0)
				q.MarkServed("c-A", t0)
			},
			op:  func(q *Queue) (Customer, error) { return q.RemoveCustomer("c-A", t0) },
			err: ErrInvalidTransition,
		},
		{
			name: "serve twice",
			prepare: func(q *Queue) {
				q.CallNext(t0)
				q.MarkServed("c-A", t0)
			},
			op:  func(q *Queue) (Customer, error) { return q.MarkServed("c-A", t0) },
			err: ErrInvalidTransition,
		},
		{
			name: "unknown customer",
			op:   func(q *Queue) (Customer, error) { return q.MarkServed("nobody", t0) },
			err:  ErrCustomerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQueue(t, nil)
			join(t, q, "A", t0)
			if tt.prepare != nil {
				tt.prepare(q)
			}
			before := q.Customers()

			got, err := tt.op(q)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, before, q.Customers(), "failed operation must not change state")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.NotNil(t, got.CompletedAt)
		})
	}
}

func TestCanTransition(t *testing.T) {
	statuses := []CustomerStatus{
		CustomerStatusWaiting, CustomerStatusCalled, CustomerStatusServed,
		CustomerStatusNoShow, CustomerStatusRemoved,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if from.IsTerminal() {
				assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
			}
		}
	}
	assert.True(t, CanTransition(CustomerStatusWaiting, CustomerStatusCalled))
	assert.False(t, CanTransition(CustomerStatusWaiting, CustomerStatusServed))
	assert.False(t, CanTransition(CustomerStatusCalled, CustomerStatusWaiting))
}

func TestQueue_RemoveFromMiddleShiftsPositions(t *testing.T) {
	q := newTestQueue(t, nil)
	for i, name := range []string{"A", "B", "C", "D"} {
		join(t, q, name, t0.Add(time.Duration(i)*time.Minute))
	}

	_, err := q.RemoveCustomer("c-B", t0.Add(10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"c-A": 1, "c-C": 2, "c-D": 3}, q.WaitingPositions())
}

func TestQueue_PositionsAreContiguous(t *testing.T) {
	q := newTestQueue(t, nil)
	for i := 0; i < 10; i++ {
		join(t, q, string(rune('A'+i)), t0.Add(time.Duration(i)*time.Second))
	}
	q.CallNext(t0)
	q.CallNext(t0)
	q.RemoveCustomer("c-E", t0)
	q.MarkServed("c-A", t0)

	positions := q.WaitingPositions()
	seen := make(map[int]bool)
	for _, p := range positions {
		seen[p] = true
	}
	assert.Len(t, positions, q.GetWaitingCount())
	for i := 1; i <= len(positions); i++ {
		assert.True(t, seen[i], "missing position %d", i)
	}
}

func TestQueue_GetServedCount(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0)
	q.CallNext(t0)
	q.MarkServed("c-A", t0.Add(time.Hour))
	q.CallNext(t0)
	q.MarkNoShow("c-B", t0.Add(time.Hour))

	assert.Equal(t, 1, q.GetServedCount(t0))
	assert.Equal(t, 0, q.GetServedCount(t0.Add(2*time.Hour)))
}

func TestQueue_UpdateSettings(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0)
	before := q.WaitingPositions()

	s := q.Settings()
	s.EstimatedServiceMinutes = 0
	assert.ErrorIs(t, q.UpdateSettings(s, t0), ErrInvalidSettings)

	s.EstimatedServiceMinutes = 12
	s.CalledMessage = "Please come to the counter"
	require.NoError(t, q.UpdateSettings(s, t0))
	assert.Equal(t, 12, q.Settings().EstimatedServiceMinutes)
	assert.Equal(t, before, q.WaitingPositions())
}

func TestQueue_UpdateSettings_CapacityBelowCurrentKeepsCustomers(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0)

	s := q.Settings()
	s.MaxCapacity = intPtr(1)
	require.NoError(t, q.UpdateSettings(s, t0))

	assert.Equal(t, 2, q.GetWaitingCount())
	_, err := q.AddCustomer(NewCustomer{ID: "c-C", Token: "tok-C", Name: "C", JoinedAt: t0})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestQueue_SettingsCopyIsIsolated(t *testing.T) {
	s := DefaultQueueSettings()
	s.MaxCapacity = intPtr(5)
	q := newTestQueue(t, &s)

	*s.MaxCapacity = 1
	got := q.Settings()
	*got.MaxCapacity = 2

	assert.Equal(t, 5, *q.Settings().MaxCapacity)
}

func TestQueue_NoShowDue(t *testing.T) {
	s := DefaultQueueSettings()
	s.NoShowTimeoutMinutes = 5
	q := newTestQueue(t, &s)
	join(t, q, "A", t0)
	join(t, q, "B", t0)
	q.CallNext(t0)
	q.CallNext(t0.Add(3 * time.Minute))

	due := q.NoShowDue(t0.Add(5 * time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, "c-A", due[0].ID)
	assert.True(t, q.IsNoShowDue("c-A", t0.Add(5*time.Minute)))
	assert.False(t, q.IsNoShowDue("c-B", t0.Add(5*time.Minute)))
	assert.False(t, q.IsNoShowDue("missing", t0.Add(time.Hour)))
}

func TestQueue_SetPushSubscription(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)

	sub := json.RawMessage(`{"endpoint":"https://push.example/abc"}`)
	c, err := q.SetPushSubscription("c-A", sub, t0)
	require.NoError(t, err)
	assert.JSONEq(t, string(sub), string(c.PushSubscription))

	q.RemoveCustomer("c-A", t0)
	_, err = q.SetPushSubscription("c-A", sub, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = q.SetPushSubscription("missing", sub, t0)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestQueue_ReturnedCustomersAreCopies(t *testing.T) {
	q := newTestQueue(t, nil)
	c := join(t, q, "A", t0)
	c.Status = CustomerStatusServed

	got, ok := q.Customer("c-A")
	require.True(t, ok)
	assert.Equal(t, CustomerStatusWaiting, got.Status)
}

func TestQueue_ActiveCustomersExcludeTerminal(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0)
	join(t, q, "C", t0)
	q.CallNext(t0)
	q.MarkServed("c-A", t0)
	q.CallNext(t0)

	active := q.ActiveCustomers()
	require.Len(t, active, 2)
	assert.Equal(t, "c-B", active[0].ID)
	assert.Equal(t, CustomerStatusCalled, active[0].Status)
	assert.Equal(t, "c-C", active[1].ID)
	assert.Len(t, q.Customers(), 3)
}

func TestQueue_ScenarioCallServeRemove(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0.Add(time.Minute))
	join(t, q, "C", t0.Add(2*time.Minute))

	called, err := q.CallNext(t0.Add(3 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "c-A", called.ID)
	assert.Equal(t, map[string]int{"c-B": 1, "c-C": 2}, q.WaitingPositions())

	_, err = q.MarkServed("c-A", t0.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c-B": 1, "c-C": 2}, q.WaitingPositions())

	_, err = q.RemoveCustomer("c-B", t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c-C": 1}, q.WaitingPositions())
	assert.Equal(t, 1, q.GetServedCount(t0))
}
