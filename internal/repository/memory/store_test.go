package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
	"github.com/kirinyoku/tix-checkout/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID int64 = 7

func seeded(t *testing.T) *memory.Store {
	t.Helper()

	s := memory.New()
	layout, pricing := memory.DemoLayout(eventID)
	require.NoError(t, s.Seed(layout, pricing))

	return s
}

func statusOf(t *testing.T, s *memory.Store, now time.Time, id string) domain.UnitStatus {
	t.Helper()

	units, err := s.ListUnits(context.Background(), eventID)
	require.NoError(t, err)
	for _, u := range units {
		if u.ID == id {
			return u.EffectiveStatus(now)
		}
	}
	t.Fatalf("unit %s not found", id)
	return ""
}

func TestSeed_RejectsCategoryOfOtherType(t *testing.T) {
	s := memory.New()
	layout, pricing := memory.DemoLayout(eventID)
	layout.Units[0].CategoryID = "table"

	err := s.Seed(layout, pricing)
	assert.Error(t, err)
}

func TestLockUnits_AllOrNothing(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"S2"}, "alice", now, now.Add(time.Minute)))

	err := s.LockUnits(ctx, eventID, []string{"S1", "S2", "S3"}, "bob", now, now.Add(time.Minute))
	require.ErrorIs(t, err, repository.ErrUnitsUnavailable)
	assert.Equal(t, []string{"S2"}, repository.UnitIDsOf(err))

	assert.Equal(t, domain.UnitAvailable, statusOf(t, s, now, "S1"))
	assert.Equal(t, domain.UnitAvailable, statusOf(t, s, now, "S3"))
}

func TestLockUnits_UnknownUnit(t *testing.T) {
	s := seeded(t)
	now := time.Now()

	err := s.LockUnits(context.Background(), eventID, []string{"S1", "Z9"}, "alice", now, now.Add(time.Minute))
	require.ErrorIs(t, err, repository.ErrUnknownUnits)
	assert.Equal(t, []string{"Z9"}, repository.UnitIDsOf(err))
}

func TestLockUnits_UnknownEvent(t *testing.T) {
	s := seeded(t)
	now := time.Now()

	err := s.LockUnits(context.Background(), 999, []string{"S1"}, "alice", now, now.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLockUnits_LapsedLockIsLockable(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"S1"}, "alice", now, now.Add(time.Second)))

	later := now.Add(2 * time.Second)
	assert.Equal(t, domain.UnitAvailable, statusOf(t, s, later, "S1"))
	assert.NoError(t, s.LockUnits(ctx, eventID, []string{"S1"}, "bob", later, later.Add(time.Minute)))
}

func TestAttachAndFinalizeBooking(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"T1", "T2"}, "alice", now, now.Add(time.Minute)))

	err := s.AttachBooking(ctx, eventID, []string{"T1", "T3"}, "alice", bookingID, now, now.Add(10*time.Minute))
	require.ErrorIs(t, err, repository.ErrUnitsNotLocked)
	assert.Equal(t, []string{"T3"}, repository.UnitIDsOf(err))

	require.NoError(t, s.AttachBooking(ctx, eventID, []string{"T1", "T2"}, "alice", bookingID, now, now.Add(10*time.Minute)))

	// attached units no longer belong to the holder's free locks
	n, err := s.ReleaseUnits(ctx, eventID, []string{"T1"}, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.FinalizeBooking(ctx, bookingID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, domain.UnitBooked, statusOf(t, s, now.Add(time.Hour), "T1"))
	assert.Zero(t, s.OwnerCount())
}

func TestReleaseBooking_KeepsBookedUnits(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"T1", "T2"}, "alice", now, now.Add(time.Minute)))
	require.NoError(t, s.AttachBooking(ctx, eventID, []string{"T1", "T2"}, "alice", bookingID, now, now.Add(10*time.Minute)))

	n, err := s.FinalizeBooking(ctx, bookingID, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = s.ReleaseBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.UnitBooked, statusOf(t, s, now, "T1"))
	assert.Equal(t, domain.UnitBooked, statusOf(t, s, now, "T2"))

	err = s.LockUnits(ctx, eventID, []string{"T1"}, "bob", now, now.Add(time.Minute))
	require.ErrorIs(t, err, repository.ErrUnitsUnavailable)
}

func TestReleaseBooking_ForgetsOwner(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"S1"}, "alice", now, now.Add(time.Minute)))
	require.NoError(t, s.AttachBooking(ctx, eventID, []string{"S1"}, "alice", bookingID, now, now.Add(time.Minute)))
	assert.Equal(t, 1, s.OwnerCount())

	n, err := s.ReleaseBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, s.OwnerCount())
	assert.Equal(t, domain.UnitAvailable, statusOf(t, s, now, "S1"))
}

func TestExpireLocks_ReportsOwningBooking(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()
	bookingID := uuid.New()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"B1"}, "alice", now, now.Add(time.Minute)))
	require.NoError(t, s.AttachBooking(ctx, eventID, []string{"B1"}, "alice", bookingID, now, now.Add(2*time.Minute)))
	require.NoError(t, s.LockUnits(ctx, eventID, []string{"S5"}, "bob", now, now.Add(time.Minute)))

	expired, err := s.ExpireLocks(ctx, now.Add(90*time.Second))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "S5", expired[0].UnitID)
	assert.Nil(t, expired[0].BookingID)

	expired, err = s.ExpireLocks(ctx, now.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "B1", expired[0].UnitID)
	require.NotNil(t, expired[0].BookingID)
	assert.Equal(t, bookingID, *expired[0].BookingID)
	assert.Zero(t, s.OwnerCount())
}

func TestSetBlocked(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.LockUnits(ctx, eventID, []string{"S1"}, "alice", now, now.Add(time.Minute)))

	err := s.SetBlocked(ctx, eventID, []string{"S1", "S2"}, true, now)
	require.ErrorIs(t, err, repository.ErrUnitsUnavailable)
	assert.Equal(t, domain.UnitAvailable, statusOf(t, s, now, "S2"))

	require.NoError(t, s.SetBlocked(ctx, eventID, []string{"S2"}, true, now))
	assert.Equal(t, domain.UnitBlocked, statusOf(t, s, now, "S2"))

	require.NoError(t, s.SetBlocked(ctx, eventID, []string{"S2"}, false, now))
	assert.Equal(t, domain.UnitAvailable, statusOf(t, s, now, "S2"))
}

func TestBookings_InsertGetDelete(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	b := &domain.Booking{
		ID:            uuid.New(),
		Type:          domain.UnitSeat,
		EventID:       eventID,
		Items:         []domain.BookingItem{{UnitID: "S1", Price: 15000}},
		PaymentStatus: domain.PaymentPending,
	}
	require.NoError(t, s.Insert(ctx, b))
	assert.ErrorIs(t, s.Insert(ctx, b), repository.ErrConflict)

	_, err := s.Get(ctx, domain.BookingRef{ID: b.ID, Type: domain.UnitTable})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Get(ctx, b.Ref())
	require.NoError(t, err)
	assert.Equal(t, b.Items, got.Items)

	n, err := s.ExpirePending(ctx, []uuid.UUID{b.ID, uuid.New()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.Delete(ctx, b.Ref()))
	assert.Zero(t, s.BookingCount())
}
