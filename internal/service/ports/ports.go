package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
)

// UnitStore is the authoritative inventory. Every method that changes unit
// status is atomic over the whole unit set and serialized per unit.
type UnitStore interface {
	// LockUnits locks every unit for holder until expiresAt, or none of them.
	// Returns a repository.UnitsError (ErrUnitsUnavailable / ErrUnknownUnits)
	// naming the offending unit ids.
	LockUnits(ctx context.Context, eventID int64, unitIDs []string, holder string, now, expiresAt time.Time) error
	// ReleaseUnits drops holder's unattached locks on the given units.
	ReleaseUnits(ctx context.Context, eventID int64, unitIDs []string, holder string) (int64, error)
	// AttachBooking transfers holder's live locks to bookingID and moves their
	// expiry to expiresAt. Fails with ErrUnitsNotLocked unless every unit qualifies.
	AttachBooking(ctx context.Context, eventID int64, unitIDs []string, holder string, bookingID uuid.UUID, now, expiresAt time.Time) error
	// ReleaseBooking returns the units still locked for bookingID to
	// available. Booked units are never released.
	ReleaseBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
	// FinalizeBooking promotes the live locks owned by bookingID to booked.
	FinalizeBooking(ctx context.Context, bookingID uuid.UUID, now time.Time) (int64, error)
	// ExpireLocks persists every lapsed lock back to available.
	ExpireLocks(ctx context.Context, now time.Time) ([]domain.ExpiredLock, error)
	// SetBlocked moves available units to blocked (or blocked units back to
	// available), all or nothing.
	SetBlocked(ctx context.Context, eventID int64, unitIDs []string, blocked bool, now time.Time) error
	ListUnits(ctx context.Context, eventID int64) ([]domain.Unit, error)
}

type BookingStore interface {
	Insert(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, ref domain.BookingRef) (*domain.Booking, error)
	Delete(ctx context.Context, ref domain.BookingRef) error
	UpdatePaymentStatus(ctx context.Context, ref domain.BookingRef, status domain.PaymentStatus) error
	// ExpirePending marks still-pending bookings among ids as expired.
	ExpirePending(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type LayoutProvider interface {
	GetEventLayout(ctx context.Context, eventID int64) (*domain.EventLayout, error)
	GetPricingConfig(ctx context.Context, eventID int64) (domain.PricingConfig, error)
}

type PaymentGateway interface {
	InitiatePayment(ctx context.Context, ref domain.BookingRef, amount domain.Money) (string, error)
	InitiateBatchPayment(ctx context.Context, req domain.BatchPaymentRequest) (string, error)
}

// InventoryNotifier is told after every committed inventory change.
type InventoryNotifier interface {
	InventoryChanged(ctx context.Context, eventID int64)
}

type BookingEventType string

const (
	BookingCreated   BookingEventType = "booking.created"
	BookingConfirmed BookingEventType = "booking.confirmed"
	BookingCancelled BookingEventType = "booking.cancelled"
	BookingDiscarded BookingEventType = "booking.discarded"
)

type BookingEvent struct {
	Type        BookingEventType `json:"type"`
	BookingID   uuid.UUID        `json:"booking_id"`
	BookingType domain.UnitType  `json:"booking_type"`
	EventID     int64            `json:"event_id"`
	CustomerID  string           `json:"customer_id"`
	UnitIDs     []string         `json:"unit_ids"`
	Amount      domain.Money     `json:"amount"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

type BookingPublisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

type Clock func() time.Time
