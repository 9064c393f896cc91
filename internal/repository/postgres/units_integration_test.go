//go:build integration

package postgres_test

import (
	"context"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/postgres"
	"github.com/kirinyoku/tix-checkout/internal/repository"
	"github.com/kirinyoku/tix-checkout/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tix-checkout/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: TIX_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/postgres/

// seedStore seeds the demo venue under a fresh event id so runs against a
// shared database do not collide.
func seedStore(t *testing.T) (*postgresrepo.UnitRepo, int64) {
	t.Helper()

	dsn := os.Getenv("TIX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TIX_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 16, Migrate: true})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	eventID := 1_000_000 + rand.Int64N(1_000_000_000)
	layout, pricing := memory.DemoLayout(eventID)

	store := postgresrepo.NewStore(pool)
	require.NoError(t, store.SeedEvent(ctx, "integration", layout, pricing))

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM units WHERE event_id = $1`, eventID)
		_, _ = pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	return store.Units(), eventID
}

func unitState(t *testing.T, units *postgresrepo.UnitRepo, eventID int64, now time.Time, id string) domain.UnitStatus {
	t.Helper()

	list, err := units.ListUnits(context.Background(), eventID)
	require.NoError(t, err)
	for _, u := range list {
		if u.ID == id {
			return u.EffectiveStatus(now)
		}
	}
	t.Fatalf("unit %s not found", id)
	return ""
}

func TestUnitRepo_LockAllOrNothing(t *testing.T) {
	units, eventID := seedStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, units.LockUnits(ctx, eventID, []string{"S1", "S2"}, "alice", now, now.Add(time.Minute)))

	err := units.LockUnits(ctx, eventID, []string{"S2", "S3"}, "bob", now, now.Add(time.Minute))
	require.ErrorIs(t, err, repository.ErrUnitsUnavailable)
	assert.Equal(t, []string{"S2"}, repository.UnitIDsOf(err))
	assert.Equal(t, domain.UnitAvailable, unitState(t, units, eventID, now, "S3"))

	err = units.LockUnits(ctx, eventID, []string{"S3", "S99"}, "bob", now, now.Add(time.Minute))
	require.ErrorIs(t, err, repository.ErrUnknownUnits)
	assert.Equal(t, []string{"S99"}, repository.UnitIDsOf(err))

	// same holder refreshes, a lapsed lock is free for anyone
	require.NoError(t, units.LockUnits(ctx, eventID, []string{"S1"}, "alice", now, now.Add(2*time.Minute)))
	later := now.Add(90 * time.Second)
	require.NoError(t, units.LockUnits(ctx, eventID, []string{"S2"}, "bob", later, later.Add(time.Minute)))
}

func TestUnitRepo_ConcurrentLockSingleWinner(t *testing.T) {
	units, eventID := seedStore(t)
	ctx := context.Background()
	now := time.Now()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := units.LockUnits(ctx, eventID, []string{"S4", "S5"}, uuid.NewString(), now, now.Add(time.Minute))
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, repository.ErrUnitsUnavailable)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
}

func TestUnitRepo_BookingLifecycle(t *testing.T) {
	units, eventID := seedStore(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, units.LockUnits(ctx, eventID, []string{"T1", "T2"}, "alice", now, now.Add(time.Minute)))

	err := units.AttachBooking(ctx, eventID, []string{"T1", "T3"}, "alice", bookingID, now, now.Add(10*time.Minute))
	require.ErrorIs(t, err, repository.ErrUnitsNotLocked)
	assert.Equal(t, []string{"T3"}, repository.UnitIDsOf(err))

	require.NoError(t, units.AttachBooking(ctx, eventID, []string{"T1", "T2"}, "alice", bookingID, now, now.Add(10*time.Minute)))

	n, err := units.ReleaseUnits(ctx, eventID, []string{"T1"}, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = units.FinalizeBooking(ctx, bookingID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = units.ReleaseBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.UnitBooked, unitState(t, units, eventID, now.Add(time.Hour), "T1"))
	assert.Equal(t, domain.UnitBooked, unitState(t, units, eventID, now.Add(time.Hour), "T2"))
}

func TestUnitRepo_ReleaseBookingFreesLockedUnits(t *testing.T) {
	units, eventID := seedStore(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, units.LockUnits(ctx, eventID, []string{"B1"}, "alice", now, now.Add(time.Minute)))
	require.NoError(t, units.AttachBooking(ctx, eventID, []string{"B1"}, "alice", bookingID, now, now.Add(time.Minute)))

	n, err := units.ReleaseBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, domain.UnitAvailable, unitState(t, units, eventID, now, "B1"))
}

func TestUnitRepo_ExpireLocks(t *testing.T) {
	units, eventID := seedStore(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, units.LockUnits(ctx, eventID, []string{"S7"}, "bob", now, now.Add(time.Minute)))
	require.NoError(t, units.LockUnits(ctx, eventID, []string{"B2"}, "alice", now, now.Add(time.Minute)))
	require.NoError(t, units.AttachBooking(ctx, eventID, []string{"B2"}, "alice", bookingID, now, now.Add(5*time.Minute)))

	expired, err := units.ExpireLocks(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)

	var ours []domain.ExpiredLock
	for _, l := range expired {
		if l.EventID == eventID {
			ours = append(ours, l)
		}
	}
	require.Len(t, ours, 1)
	assert.Equal(t, "S7", ours[0].UnitID)
	assert.Nil(t, ours[0].BookingID)
	assert.Equal(t, domain.UnitLocked, unitState(t, units, eventID, now, "B2"))
}

func TestUnitRepo_SetBlocked(t *testing.T) {
	units, eventID := seedStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, units.LockUnits(ctx, eventID, []string{"S10"}, "alice", now, now.Add(time.Minute)))

	err := units.SetBlocked(ctx, eventID, []string{"S9", "S10"}, true, now)
	require.ErrorIs(t, err, repository.ErrUnitsUnavailable)
	assert.Equal(t, []string{"S10"}, repository.UnitIDsOf(err))
	assert.Equal(t, domain.UnitAvailable, unitState(t, units, eventID, now, "S9"))

	require.NoError(t, units.SetBlocked(ctx, eventID, []string{"S9"}, true, now))
	assert.Equal(t, domain.UnitBlocked, unitState(t, units, eventID, now, "S9"))
	require.NoError(t, units.SetBlocked(ctx, eventID, []string{"S9"}, false, now))
	assert.Equal(t, domain.UnitAvailable, unitState(t, units, eventID, now, "S9"))
}
