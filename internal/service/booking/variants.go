package booking

import (
	"github.com/kirinyoku/tix-checkout/internal/domain"
)

// variant fills the type-specific part of a booking. Locking, persistence
// and compensation are shared by all variants.
type variant interface {
	fill(b *domain.Booking, units []domain.Unit)
}

type seatVariant struct{}

func (seatVariant) fill(b *domain.Booking, units []domain.Unit) {
	labels := make([]string, 0, len(units))
	for _, u := range units {
		labels = append(labels, u.Label)
	}
	b.Seat = &domain.SeatDetails{SeatLabels: labels}
}

// tableVariant books whole tables; the guest count is their combined seating.
type tableVariant struct{}

func (tableVariant) fill(b *domain.Booking, units []domain.Unit) {
	guests := 0
	for _, u := range units {
		guests += u.Capacity
	}
	b.Table = &domain.TableDetails{GuestCount: guests}
}

type boothVariant struct{}

func (boothVariant) fill(b *domain.Booking, units []domain.Unit) {
	capacity := 0
	for _, u := range units {
		capacity += u.Capacity
	}
	b.Booth = &domain.BoothDetails{Capacity: capacity}
}

var variants = map[domain.UnitType]variant{
	domain.UnitSeat:  seatVariant{},
	domain.UnitTable: tableVariant{},
	domain.UnitBooth: boothVariant{},
}
