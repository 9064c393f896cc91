package domain

import (
	"time"

	"github.com/google/uuid"
)

type UnitType string

const (
	UnitSeat  UnitType = "seat"
	UnitTable UnitType = "table"
	UnitBooth UnitType = "booth"
)

// UnitTypes lists every bookable variant in checkout order.
var UnitTypes = []UnitType{UnitSeat, UnitTable, UnitBooth}

func (t UnitType) Valid() bool {
	switch t {
	case UnitSeat, UnitTable, UnitBooth:
		return true
	}
	return false
}

type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitLocked    UnitStatus = "locked"
	UnitBooked    UnitStatus = "booked"
	UnitBlocked   UnitStatus = "blocked"
)

// Money is an amount in minor currency units (fils for KWD).
type Money int64

type Position struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
}

type Category struct {
	ID        string   `json:"id"`
	EventID   int64    `json:"event_id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	Price     Money    `json:"price"`
	AppliesTo UnitType `json:"applies_to"`
}

type Unit struct {
	ID            string     `json:"id"`
	EventID       int64      `json:"event_id"`
	Type          UnitType   `json:"type"`
	CategoryID    string     `json:"category_id"`
	Label         string     `json:"label"`
	Capacity      int        `json:"capacity"`
	Position      Position   `json:"position"`
	Status        UnitStatus `json:"status"`
	LockHolder    string     `json:"-"`
	BookingID     *uuid.UUID `json:"-"`
	LockExpiresAt *time.Time `json:"lock_expires_at,omitempty"`
}

// EffectiveStatus reports the status as observed at now: a lock whose
// expiry has passed reads as available even before the sweeper persists it.
func (u Unit) EffectiveStatus(now time.Time) UnitStatus {
	if u.Status == UnitLocked && u.LockExpiresAt != nil && !now.Before(*u.LockExpiresAt) {
		return UnitAvailable
	}
	return u.Status
}

// Lockable reports whether holder may take (or refresh) a lock on the unit.
// A holder refreshing its own lock is allowed only while the lock has not
// been transferred to a booking.
func (u Unit) Lockable(holder string, now time.Time) bool {
	switch u.EffectiveStatus(now) {
	case UnitAvailable:
		return true
	case UnitLocked:
		return u.LockHolder == holder && u.BookingID == nil
	default:
		return false
	}
}

// HeldBy reports whether holder has a live, unattached lock on the unit.
func (u Unit) HeldBy(holder string, now time.Time) bool {
	return u.EffectiveStatus(now) == UnitLocked &&
		u.LockHolder == holder &&
		u.BookingID == nil
}

type EventLayout struct {
	EventID    int64      `json:"event_id"`
	Categories []Category `json:"categories"`
	Units      []Unit     `json:"units"`
}

func (l *EventLayout) Category(id string) (Category, bool) {
	for _, c := range l.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (l *EventLayout) Unit(id string) (Unit, bool) {
	for _, u := range l.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

type PricingConfig struct {
	ServiceFee Money   `json:"service_fee"`
	TaxPercent float64 `json:"tax_percent"`
}

type PriceBreakdown struct {
	Subtotal   Money `json:"subtotal"`
	ServiceFee Money `json:"service_fee"`
	Tax        Money `json:"tax"`
	Total      Money `json:"total"`
}

type SelectionItem struct {
	UnitID     string   `json:"unit_id"`
	Type       UnitType `json:"type"`
	CategoryID string   `json:"category_id"`
	Price      Money    `json:"price"`
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentExpired   PaymentStatus = "expired"
)

type BookingItem struct {
	UnitID     string `json:"unit_id"`
	Label      string `json:"label"`
	CategoryID string `json:"category_id"`
	Price      Money  `json:"price"`
	Capacity   int    `json:"capacity"`
}

// Booking is one typed reservation record. Exactly one of Seat, Table or
// Booth carries the variant payload matching Type.
type Booking struct {
	ID            uuid.UUID     `json:"id"`
	Type          UnitType      `json:"type"`
	EventID       int64         `json:"event_id"`
	CustomerID    string        `json:"customer_id"`
	Items         []BookingItem `json:"items"`
	Customer      CustomerInfo  `json:"customer"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   Money         `json:"total_amount"`
	CreatedAt     time.Time     `json:"created_at"`
	LockExpiresAt time.Time     `json:"lock_expires_at"`
	Seat          *SeatDetails  `json:"seat,omitempty"`
	Table         *TableDetails `json:"table,omitempty"`
	Booth         *BoothDetails `json:"booth,omitempty"`
}

func (b *Booking) UnitIDs() []string {
	ids := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		ids = append(ids, it.UnitID)
	}
	return ids
}

func (b *Booking) Ref() BookingRef {
	return BookingRef{ID: b.ID, Type: b.Type}
}

type SeatDetails struct {
	SeatLabels []string `json:"seat_labels"`
}

type TableDetails struct {
	GuestCount int `json:"guest_count"`
}

type BoothDetails struct {
	Capacity int `json:"capacity"`
}

type BookingRef struct {
	ID   uuid.UUID `json:"booking_id"`
	Type UnitType  `json:"booking_type"`
}

type BookingHandle struct {
	ID        uuid.UUID `json:"booking_id"`
	Type      UnitType  `json:"booking_type"`
	Amount    Money     `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BatchPaymentItem struct {
	BookingID   uuid.UUID `json:"booking_id"`
	BookingType UnitType  `json:"booking_type"`
	Amount      Money     `json:"amount"`
}

type BatchPaymentRequest struct {
	Items      []BatchPaymentItem `json:"items"`
	Subtotal   Money              `json:"subtotal"`
	ServiceFee Money              `json:"service_fee"`
	Tax        Money              `json:"tax"`
	GrandTotal Money              `json:"grand_total"`
	Currency   string             `json:"currency"`
}

type PaymentHandoff struct {
	PaymentLink string          `json:"payment_link"`
	Bookings    []BookingHandle `json:"bookings"`
	Breakdown   PriceBreakdown  `json:"breakdown"`
}

type LockResult struct {
	EventID   int64     `json:"event_id"`
	UnitIDs   []string  `json:"unit_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredLock describes one unit returned to availability by the sweeper.
type ExpiredLock struct {
	EventID   int64
	UnitID    string
	BookingID *uuid.UUID
}
