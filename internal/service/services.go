package service

import (
	"log/slog"

	redisrepo "github.com/kirinyoku/tix-checkout/internal/repository/redis"
	"github.com/kirinyoku/tix-checkout/internal/service/booking"
	"github.com/kirinyoku/tix-checkout/internal/service/checkout"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
	"github.com/kirinyoku/tix-checkout/internal/service/query"
)

type Services struct {
	Locks    *lock.Service
	Bookings *booking.Service
	Checkout *checkout.Service
	Query    *query.Service
}

type Config struct {
	Lock     lock.Config
	Booking  booking.Config
	Checkout checkout.Config
	Query    query.Config
}

// Deps are the stores and boundaries the services run on. Publisher,
// Notifier, Cache, Clock and Logger may be nil.
type Deps struct {
	Units     ports.UnitStore
	Bookings  ports.BookingStore
	Layouts   ports.LayoutProvider
	Payments  ports.PaymentGateway
	Publisher ports.BookingPublisher
	Notifier  ports.InventoryNotifier
	Cache     *redisrepo.Cache
	Clock     ports.Clock
	Logger    *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Cache == nil {
		d.Cache = redisrepo.New(nil)
	}

	lockOpts := []lock.Option{lock.WithLogger(d.Logger)}
	if d.Notifier != nil {
		lockOpts = append(lockOpts, lock.WithNotifier(d.Notifier))
	}
	if d.Clock != nil {
		lockOpts = append(lockOpts, lock.WithClock(d.Clock))
	}
	locks := lock.New(d.Units, cfg.Lock, lockOpts...)

	q := query.New(d.Layouts, d.Cache, locks.Now, cfg.Query)

	bookingOpts := []booking.Option{booking.WithLogger(d.Logger)}
	if d.Publisher != nil {
		bookingOpts = append(bookingOpts, booking.WithPublisher(d.Publisher))
	}
	bookings := booking.New(locks, d.Bookings, q, cfg.Booking, bookingOpts...)

	return &Services{
		Locks:    locks,
		Bookings: bookings,
		Checkout: checkout.New(locks, bookings, q, d.Payments, d.Logger, cfg.Checkout),
		Query:    q,
	}
}
