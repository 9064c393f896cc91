package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository/memory"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID int64 = 1

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingNotifier struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (n *countingNotifier) InventoryChanged(_ context.Context, eventID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[int64]int)
	}
	n.calls[eventID]++
}

func setup(t *testing.T) (*lock.Service, *fakeClock, *countingNotifier) {
	t.Helper()

	store := memory.New()
	layout, pricing := memory.DemoLayout(eventID)
	require.NoError(t, store.Seed(layout, pricing))

	clock := &fakeClock{t: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)}
	notifier := &countingNotifier{}

	svc := lock.New(store, lock.Config{
		MinLockTTL:     15 * time.Second,
		MaxLockTTL:     15 * time.Minute,
		DefaultLockTTL: 10 * time.Minute,
	}, lock.WithClock(clock.Now), lock.WithNotifier(notifier))

	return svc, clock, notifier
}

func TestTryLock_ConcurrentSingleWinner(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	const sessions = 32

	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.TryLock(ctx, eventID, []string{"S12"}, string(rune('a'+i)), time.Minute)
			if err == nil {
				winners.Add(1)
				return
			}
			if assert.ErrorIs(t, err, lock.ErrConflict) {
				assert.Equal(t, []string{"S12"}, lock.UnitIDs(err))
				conflicts.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
	assert.EqualValues(t, sessions-1, conflicts.Load())
}

func TestTryLock_AllOrNothing(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.TryLock(ctx, eventID, []string{"S2"}, "alice", 0)
	require.NoError(t, err)

	_, err = svc.TryLock(ctx, eventID, []string{"S1", "S2", "S3"}, "bob", 0)
	require.ErrorIs(t, err, lock.ErrConflict)
	assert.Equal(t, []string{"S2"}, lock.UnitIDs(err))

	status, err := svc.Status(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitAvailable, status["S1"])
	assert.Equal(t, domain.UnitLocked, status["S2"])
	assert.Equal(t, domain.UnitAvailable, status["S3"])
}

func TestTryLock_ClampsTTL(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()
	now := clock.Now()

	tests := []struct {
		name string
		unit string
		ttl  time.Duration
		want time.Duration
	}{
		{name: "default", unit: "S1", ttl: 0, want: 10 * time.Minute},
		{name: "below min", unit: "S2", ttl: time.Second, want: 15 * time.Second},
		{name: "above max", unit: "S3", ttl: time.Hour, want: 15 * time.Minute},
		{name: "in range", unit: "S4", ttl: 2 * time.Minute, want: 2 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.TryLock(ctx, eventID, []string{tt.unit}, "alice", tt.ttl)
			require.NoError(t, err)
			assert.Equal(t, now.Add(tt.want), res.ExpiresAt)
		})
	}
}

func TestTryLock_DedupsAndValidates(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.TryLock(ctx, eventID, []string{"S1", "S1", "S2"}, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, res.UnitIDs)

	_, err = svc.TryLock(ctx, eventID, nil, "alice", 0)
	assert.ErrorIs(t, err, lock.ErrEmptyRequest)

	_, err = svc.TryLock(ctx, eventID, []string{"S3"}, "", 0)
	assert.ErrorIs(t, err, lock.ErrNoHolder)

	_, err = svc.TryLock(ctx, eventID, []string{"S3", "nope"}, "alice", 0)
	require.ErrorIs(t, err, lock.ErrUnknownUnits)
	assert.Equal(t, []string{"nope"}, lock.UnitIDs(err))

	_, err = svc.TryLock(ctx, 404, []string{"S3"}, "alice", 0)
	assert.ErrorIs(t, err, lock.ErrEventNotFound)
}

func TestTryLock_SameHolderRefreshes(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()

	first, err := svc.TryLock(ctx, eventID, []string{"S1"}, "alice", time.Minute)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)

	second, err := svc.TryLock(ctx, eventID, []string{"S1", "S2"}, "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))
}

func TestTTLRelease(t *testing.T) {
	svc, clock, notifier := setup(t)
	ctx := context.Background()

	_, err := svc.TryLock(ctx, eventID, []string{"S12"}, "alice", time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)

	// lapsed locks read as available before the sweeper runs
	status, err := svc.Status(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitAvailable, status["S12"])

	_, err = svc.TryLock(ctx, eventID, []string{"S12"}, "bob", time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	expired, err := svc.Expire(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "S12", expired[0].UnitID)
	assert.Equal(t, 3, notifier.calls[eventID])
}

func TestRelease_OnlyOwnLocks(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.TryLock(ctx, eventID, []string{"S1"}, "alice", 0)
	require.NoError(t, err)

	n, err := svc.Release(ctx, eventID, []string{"S1"}, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.Release(ctx, eventID, []string{"S1", "S2"}, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestHeld(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()

	_, err := svc.TryLock(ctx, eventID, []string{"S1", "S2", "S3"}, "alice", time.Minute)
	require.NoError(t, err)
	_, err = svc.TryLock(ctx, eventID, []string{"S4"}, "bob", 0)
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, eventID, []string{"S3"}, "alice", uuid.New(), time.Hour)
	require.NoError(t, err)

	held, err := svc.Held(ctx, eventID, []string{"S1", "S2", "S3", "S4", "S5"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"S1": {}, "S2": {}}, held)

	clock.Advance(time.Minute)

	held, err = svc.Held(ctx, eventID, []string{"S1", "S2"}, "alice")
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestBlockUnblock(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Block(ctx, eventID, []string{"B1"}))

	_, err := svc.TryLock(ctx, eventID, []string{"B1"}, "alice", 0)
	assert.ErrorIs(t, err, lock.ErrConflict)

	// blocking is only reachable from available
	assert.ErrorIs(t, svc.Block(ctx, eventID, []string{"B1"}), lock.ErrConflict)

	require.NoError(t, svc.Unblock(ctx, eventID, []string{"B1"}))
	_, err = svc.TryLock(ctx, eventID, []string{"B1"}, "alice", 0)
	assert.NoError(t, err)
}
