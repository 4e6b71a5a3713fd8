package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/dto"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/repository"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNoShowExpirer is a mock implementation of service.NoShowExpirer
type MockNoShowExpirer struct {
	mock.Mock
}

func (m *MockNoShowExpirer) ActiveQueueIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockNoShowExpirer) NoShowCandidates(ctx context.Context, queueID string) ([]string, error) {
	args := m.Called(ctx, queueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockNoShowExpirer) ExpireCustomer(ctx context.Context, queueID, customerID string) (bool, error) {
	args := m.Called(ctx, queueID, customerID)
	return args.Bool(0), args.Error(1)
}

var _ service.NoShowExpirer = (*MockNoShowExpirer)(nil)

func TestNoShowSweeper_SweepOnce_IsolatesFailures(t *testing.T) {
	expirer := new(MockNoShowExpirer)
	ctx := context.Background()

	expirer.On("ActiveQueueIDs", ctx).Return([]string{"q-1", "q-2", "q-3"}, nil)
	expirer.On("NoShowCandidates", ctx, "q-1").Return([]string{"a", "b", "c"}, nil)
	expirer.On("NoShowCandidates", ctx, "q-2").Return(nil, errors.New("timeout"))
	expirer.On("NoShowCandidates", ctx, "q-3").Return([]string{"d"}, nil)

	expirer.On("ExpireCustomer", ctx, "q-1", "a").Return(true, nil)
	expirer.On("ExpireCustomer", ctx, "q-1", "b").Return(false, errors.New("version conflict"))
	expirer.On("ExpireCustomer", ctx, "q-1", "c").Return(false, nil)
	expirer.On("ExpireCustomer", ctx, "q-3", "d").Return(true, nil)

	sweeper := NewNoShowSweeper(expirer, nil)
	result := sweeper.SweepOnce(ctx)

	assert.Equal(t, SweepResult{QueuesScanned: 3, Expired: 2, Skipped: 1, Failed: 2}, result)
	expirer.AssertExpectations(t)

	stats := sweeper.GetStats()
	assert.Equal(t, int64(2), stats.TotalExpired)
	assert.Equal(t, int64(2), stats.TotalFailed)
	assert.Equal(t, 2, stats.LastExpiredCount)
}

func TestNoShowSweeper_SweepOnce_ListFailure(t *testing.T) {
	expirer := new(MockNoShowExpirer)
	expirer.On("ActiveQueueIDs", mock.Anything).Return(nil, errors.New("redis down"))

	result := NewNoShowSweeper(expirer, nil).SweepOnce(context.Background())

	assert.Equal(t, SweepResult{}, result)
	expirer.AssertNotCalled(t, "NoShowCandidates", mock.Anything, mock.Anything)
}

func TestNoShowSweeper_StartStop(t *testing.T) {
	expirer := new(MockNoShowExpirer)
	expirer.On("ActiveQueueIDs", mock.Anything).Return([]string{}, nil)

	clock := clockwork.NewFakeClock()
	sweeper := NewNoShowSweeper(expirer, &NoShowSweeperConfig{ScanInterval: time.Minute, Clock: clock})

	require.NoError(t, sweeper.Start(context.Background()))
	assert.Error(t, sweeper.Start(context.Background()), "second start is rejected")

	// First sweep runs immediately
	assert.Eventually(t, func() bool {
		return !sweeper.GetStats().LastScanTime.IsZero()
	}, time.Second, 5*time.Millisecond)

	first := sweeper.GetStats().LastScanTime
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool {
		return sweeper.GetStats().LastScanTime.After(first)
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	assert.False(t, sweeper.GetStats().IsRunning)
	sweeper.Stop()
}

func TestNoShowSweeper_ExpiresOverdueCustomers(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	svc := service.NewQueueService(repository.NewMemoryQueueRepository(), &service.QueueServiceConfig{Clock: clock})
	ctx := context.Background()

	q, err := svc.CreateQueue(ctx, &dto.CreateQueueRequest{
		BusinessID: "biz",
		Name:       "Counter",
		Slug:       "counter",
		Settings:   &dto.QueueSettingsRequest{EstimatedServiceMinutes: 5, NoShowTimeoutMinutes: 5},
	})
	require.NoError(t, err)

	alice, err := svc.JoinQueue(ctx, q.ID, &dto.JoinQueueRequest{Name: "Alice"})
	require.NoError(t, err)
	bob, err := svc.JoinQueue(ctx, q.ID, &dto.JoinQueueRequest{Name: "Bob"})
	require.NoError(t, err)

	_, err = svc.CallNext(ctx, q.ID)
	require.NoError(t, err)

	sweeper := NewNoShowSweeper(svc, &NoShowSweeperConfig{Clock: clock})

	clock.Advance(4 * time.Minute)
	assert.Equal(t, 0, sweeper.SweepOnce(ctx).Expired)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, sweeper.SweepOnce(ctx).Expired)

	status, err := svc.GetCustomerStatus(ctx, alice.Token)
	require.NoError(t, err)
	assert.Equal(t, "no_show", string(status.Status))

	status, err = svc.GetCustomerStatus(ctx, bob.Token)
	require.NoError(t, err)
	assert.Equal(t, "waiting", string(status.Status))

	assert.Equal(t, 0, sweeper.SweepOnce(ctx).Expired)
}
