package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreQueue_RoundTrip(t *testing.T) {
	q := newTestQueue(t, nil)
	join(t, q, "A", t0)
	join(t, q, "B", t0)
	join(t, q, "C", t0.Add(time.Minute))
	q.CallNext(t0.Add(2 * time.Minute))
	q.SetPaused(true, t0.Add(3*time.Minute))
	q.Version = 7

	raw, err := json.Marshal(q.Snapshot())
	require.NoError(t, err)

	var snap QueueSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	restored, err := RestoreQueue(snap)
	require.NoError(t, err)

	assert.Equal(t, int64(7), restored.Version)
	assert.True(t, restored.IsPaused())
	assert.Equal(t, q.WaitingPositions(), restored.WaitingPositions())

	// Sequence continues after restore so ties keep insertion order
	restored.SetPaused(false, t0)
	_, err = restored.AddCustomer(NewCustomer{ID: "c-D", Token: "tok-D", Name: "D", JoinedAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c-B": 1, "c-C": 2, "c-D": 3}, restored.WaitingPositions())
}

func TestRestoreQueue_SortsCustomers(t *testing.T) {
	snap := newTestQueue(t, nil).Snapshot()
	snap.Customers = []Customer{
		{ID: "2", Token: "t2", Name: "B", Status: CustomerStatusWaiting, JoinedAt: t0.Add(time.Minute), Seq: 1},
		{ID: "1", Token: "t1", Name: "A", Status: CustomerStatusWaiting, JoinedAt: t0, Seq: 0},
	}

	q, err := RestoreQueue(snap)
	require.NoError(t, err)
	pos, _ := q.GetCustomerPosition("1")
	assert.Equal(t, 1, pos)
}

func TestRestoreQueue_RejectsCorruptState(t *testing.T) {
	called := t0
	tests := []struct {
		name      string
		customers []Customer
	}{
		{"unknown status", []Customer{{ID: "1", Token: "t1", Status: "lost"}}},
		{"called without time", []Customer{{ID: "1", Token: "t1", Status: CustomerStatusCalled}}},
		{"waiting with call time", []Customer{{ID: "1", Token: "t1", Status: CustomerStatusWaiting, CalledAt: &called}}},
		{"served without completion", []Customer{{ID: "1", Token: "t1", Status: CustomerStatusServed, CalledAt: &called}}},
		{"duplicate token", []Customer{
			{ID: "1", Token: "t", Status: CustomerStatusWaiting},
			{ID: "2", Token: "t", Status: CustomerStatusWaiting},
		}},
		{"duplicate id", []Customer{
			{ID: "1", Token: "a", Status: CustomerStatusWaiting},
			{ID: "1", Token: "b", Status: CustomerStatusWaiting},
		}},
		{"missing token", []Customer{{ID: "1", Status: CustomerStatusWaiting}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newTestQueue(t, nil).Snapshot()
			snap.Customers = tt.customers
			_, err := RestoreQueue(snap)
			assert.ErrorIs(t, err, ErrCorruptQueue)
		})
	}
}

func TestRestoreQueue_InvalidSettings(t *testing.T) {
	snap := newTestQueue(t, nil).Snapshot()
	snap.Settings.NoShowTimeoutMinutes = 0

	_, err := RestoreQueue(snap)
	assert.ErrorIs(t, err, ErrCorruptQueue)
}

func TestNotification_DedupeKey(t *testing.T) {
	a := Notification{ID: "x", Kind: NotificationPositionChanged, Scope: ScopeCustomer, QueueID: "q", CustomerToken: "tok", Position: 2, Version: 4}
	b := a
	b.ID = "y"
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())

	b.Version = 5
	assert.NotEqual(t, a.DedupeKey(), b.DedupeKey())

	q := Notification{Kind: NotificationQueueUpdated, Scope: ScopeQueue, QueueID: "q", UpdateKind: UpdateCustomerJoined, Version: 4}
	assert.False(t, q.IsCustomerScoped())
	assert.Contains(t, q.DedupeKey(), string(UpdateCustomerJoined))
}
