package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
)

type Config struct {
	PaymentTTL time.Duration
}

// Request is everything needed to turn one group of locked units into a
// booking. Layout is optional; when nil it is loaded from the provider.
type Request struct {
	EventID  int64
	Holder   string
	Items    []domain.SelectionItem
	Customer domain.CustomerInfo
	Layout   *domain.EventLayout
}

type Service struct {
	locks     *lock.Service
	bookings  ports.BookingStore
	layouts   ports.LayoutProvider
	publisher ports.BookingPublisher
	logger    *slog.Logger
	newID     func() uuid.UUID
	cfg       Config
}

type Option func(*Service)

func WithPublisher(p ports.BookingPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIDs replaces uuid.New for booking ids.
func WithIDs(fn func() uuid.UUID) Option {
	return func(s *Service) { s.newID = fn }
}

func New(
	locks *lock.Service,
	bookings ports.BookingStore,
	layouts ports.LayoutProvider,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.PaymentTTL <= 0 {
		cfg.PaymentTTL = 10 * time.Minute
	}

	s := &Service{
		locks:    locks,
		bookings: bookings,
		layouts:  layouts,
		logger:   slog.Default(),
		newID:    uuid.New,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create persists a typed booking for units the holder has locked and moves
// their lock under the booking with the payment expiry.
//
// Parameters:
//   - ctx: request-scoped context.
//   - t: booking variant; every item must be of this type.
//   - req: event, holder, items and customer contact.
//
// Returns:
//   - domain.BookingHandle: booking id, type, amount and lock expiry.
//   - error: CustomerInfoError for missing or malformed contact fields.
//   - error: lock.NotLockedError when any unit is not locked by the holder.
func (s *Service) Create(ctx context.Context, t domain.UnitType, req Request) (domain.BookingHandle, error) {
	const op = "service.booking.Create"

	v, ok := variants[t]
	if !ok {
		return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, ErrInvalidType)
	}

	if len(req.Items) == 0 {
		return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, ErrNoItems)
	}

	for _, it := range req.Items {
		if it.Type != t {
			return domain.BookingHandle{}, fmt.Errorf("%s:%w: %s", op, ErrTypeMismatch, it.UnitID)
		}
	}

	customer, err := ValidateCustomer(req.Customer)
	if err != nil {
		return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, err)
	}

	layout := req.Layout
	if layout == nil {
		layout, err = s.layouts.GetEventLayout(ctx, req.EventID)
		if err != nil {
			return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, err)
		}
	}

	units := make([]domain.Unit, 0, len(req.Items))
	items := make([]domain.BookingItem, 0, len(req.Items))
	var (
		total   domain.Money
		unitIDs = make([]string, 0, len(req.Items))
	)
	for _, it := range req.Items {
		u, ok := layout.Unit(it.UnitID)
		if !ok {
			return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, lock.UnknownUnitsError{UnitIDs: []string{it.UnitID}})
		}
		units = append(units, u)
		unitIDs = append(unitIDs, u.ID)
		items = append(items, domain.BookingItem{
			UnitID:     u.ID,
			Label:      u.Label,
			CategoryID: it.CategoryID,
			Price:      it.Price,
			Capacity:   u.Capacity,
		})
		total += it.Price
	}

	b := &domain.Booking{
		ID:            s.newID(),
		Type:          t,
		EventID:       req.EventID,
		CustomerID:    req.Holder,
		Items:         items,
		Customer:      customer,
		PaymentStatus: domain.PaymentPending,
		TotalAmount:   total,
		CreatedAt:     s.locks.Now(),
	}
	v.fill(b, units)

	expiresAt, err := s.locks.Transfer(ctx, req.EventID, unitIDs, req.Holder, b.ID, s.cfg.PaymentTTL)
	if err != nil {
		return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, err)
	}
	b.LockExpiresAt = expiresAt

	if err := s.bookings.Insert(ctx, b); err != nil {
		if _, rerr := s.locks.ReleaseBooking(ctx, req.EventID, b.ID); rerr != nil {
			s.logger.Error("releasing units of unsaved booking failed",
				"booking_id", b.ID, "event_id", req.EventID, "error", rerr)
		}
		return domain.BookingHandle{}, fmt.Errorf("%s:%w", op, err)
	}

	s.publish(ctx, ports.BookingCreated, b)

	return domain.BookingHandle{
		ID:        b.ID,
		Type:      b.Type,
		Amount:    b.TotalAmount,
		ExpiresAt: b.LockExpiresAt,
	}, nil
}

// Discard undoes Create: the units go back to available and the record is
// removed. Discarding a booking that does not exist is a no-op. A paid
// booking is never discarded.
//
// Returns:
//   - error: ErrNotPending for a paid booking; nothing is changed then.
func (s *Service) Discard(ctx context.Context, ref domain.BookingRef) error {
	const op = "service.booking.Discard"

	b, err := s.bookings.Get(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if b.PaymentStatus == domain.PaymentPaid {
		return fmt.Errorf("%s:%w", op, ErrNotPending)
	}

	// units first: a record left behind is retried, orphaned units are not
	if _, err := s.locks.ReleaseBooking(ctx, b.EventID, b.ID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.bookings.Delete(ctx, ref); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.publish(ctx, ports.BookingDiscarded, b)

	return nil
}

// Cancel marks a pending booking cancelled and frees its units. Only the
// customer who made the booking may cancel it.
func (s *Service) Cancel(ctx context.Context, ref domain.BookingRef, holder string) (*domain.Booking, error) {
	const op = "service.booking.Cancel"

	b, err := s.Get(ctx, ref, holder)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if b.PaymentStatus == domain.PaymentCancelled {
		return b, nil
	}
	if b.PaymentStatus != domain.PaymentPending {
		return nil, fmt.Errorf("%s:%w", op, ErrNotPending)
	}

	if err := s.bookings.UpdatePaymentStatus(ctx, ref, domain.PaymentCancelled); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if _, err := s.locks.ReleaseBooking(ctx, b.EventID, b.ID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	b.PaymentStatus = domain.PaymentCancelled
	s.publish(ctx, ports.BookingCancelled, b)

	return b, nil
}

// Confirm records a successful payment: the units become booked and the
// booking paid. Confirming a paid booking again is a no-op.
//
// Returns:
//   - error: ErrBookingExpired if payment landed after the lock expiry; the
//     units are released and the booking marked expired.
//   - error: ErrNotPending for cancelled or expired bookings.
func (s *Service) Confirm(ctx context.Context, ref domain.BookingRef) (*domain.Booking, error) {
	const op = "service.booking.Confirm"

	b, err := s.get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch b.PaymentStatus {
	case domain.PaymentPaid:
		return b, nil
	case domain.PaymentPending:
	default:
		return nil, fmt.Errorf("%s:%w", op, ErrNotPending)
	}

	if !s.locks.Now().Before(b.LockExpiresAt) {
		s.expire(ctx, b)
		return nil, fmt.Errorf("%s:%w", op, ErrBookingExpired)
	}

	n, err := s.locks.Finalize(ctx, b.EventID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if int(n) != len(b.Items) {
		s.logger.Error("booking confirmed with missing units",
			"booking_id", b.ID, "booked", n, "expected", len(b.Items))
	}

	if err := s.bookings.UpdatePaymentStatus(ctx, ref, domain.PaymentPaid); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	b.PaymentStatus = domain.PaymentPaid
	s.publish(ctx, ports.BookingConfirmed, b)

	return b, nil
}

// Get returns a booking owned by holder. Bookings of other customers are
// reported as not found.
func (s *Service) Get(ctx context.Context, ref domain.BookingRef, holder string) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if b.CustomerID != holder {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	return b, nil
}

// ExpireStale runs one sweep: lapsed locks go back to available and the
// pending bookings that owned them become expired.
func (s *Service) ExpireStale(ctx context.Context) (units int, bookings int64, err error) {
	const op = "service.booking.ExpireStale"

	expired, err := s.locks.Expire(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, l := range expired {
		if l.BookingID == nil {
			continue
		}
		if _, ok := seen[*l.BookingID]; ok {
			continue
		}
		seen[*l.BookingID] = struct{}{}
		ids = append(ids, *l.BookingID)
	}

	n, err := s.bookings.ExpirePending(ctx, ids)
	if err != nil {
		return len(expired), 0, fmt.Errorf("%s:%w", op, err)
	}

	return len(expired), n, nil
}

func (s *Service) get(ctx context.Context, ref domain.BookingRef) (*domain.Booking, error) {
	if !ref.Type.Valid() {
		return nil, ErrInvalidType
	}

	b, err := s.bookings.Get(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) expire(ctx context.Context, b *domain.Booking) {
	if _, err := s.locks.ReleaseBooking(ctx, b.EventID, b.ID); err != nil {
		s.logger.Warn("releasing units of expired booking failed", "booking_id", b.ID, "error", err)
	}
	if _, err := s.bookings.ExpirePending(ctx, []uuid.UUID{b.ID}); err != nil {
		s.logger.Warn("marking booking expired failed", "booking_id", b.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, typ ports.BookingEventType, b *domain.Booking) {
	if s.publisher == nil {
		return
	}

	ev := ports.BookingEvent{
		Type:        typ,
		BookingID:   b.ID,
		BookingType: b.Type,
		EventID:     b.EventID,
		CustomerID:  b.CustomerID,
		UnitIDs:     b.UnitIDs(),
		Amount:      b.TotalAmount,
		OccurredAt:  s.locks.Now(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("booking event publish failed", "type", typ, "booking_id", b.ID, "error", err)
	}
}
