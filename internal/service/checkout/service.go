package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
	"github.com/kirinyoku/tix-checkout/internal/service/booking"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
	"github.com/kirinyoku/tix-checkout/internal/service/pricing"
	"github.com/kirinyoku/tix-checkout/internal/service/selection"
)

type Config struct {
	Currency string
	// LockTTL is the ttl used when refreshing a group's locks before booking.
	LockTTL time.Duration
	// CompensationTimeout bounds every compensation retry loop. It should
	// stay below the lock TTL so that expiry remains the final backstop.
	CompensationTimeout time.Duration
	CompensationBackoff time.Duration
}

type Service struct {
	locks    *lock.Service
	bookings *booking.Service
	layouts  ports.LayoutProvider
	payments ports.PaymentGateway
	logger   *slog.Logger
	cfg      Config
}

func New(
	locks *lock.Service,
	bookings *booking.Service,
	layouts ports.LayoutProvider,
	payments ports.PaymentGateway,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "KWD"
	}

	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 10 * time.Second
	}

	if cfg.CompensationBackoff <= 0 {
		cfg.CompensationBackoff = 100 * time.Millisecond
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		locks:    locks,
		bookings: bookings,
		layouts:  layouts,
		payments: payments,
		logger:   logger,
		cfg:      cfg,
	}
}

// Request is one checkout submission.
type Request struct {
	EventID  int64
	Holder   string
	Items    []domain.SelectionItem
	Customer domain.CustomerInfo
}

// Quote prices a selection against the current layout. It has no side
// effects.
func (s *Service) Quote(ctx context.Context, eventID int64, items []domain.SelectionItem) (domain.PriceBreakdown, error) {
	const op = "service.checkout.Quote"

	if len(items) == 0 {
		return domain.PriceBreakdown{}, nil
	}

	set, err := selection.FromItems(items)
	if err != nil {
		return domain.PriceBreakdown{}, fmt.Errorf("%s:%w", op, err)
	}

	layout, err := s.layouts.GetEventLayout(ctx, eventID)
	if err != nil {
		return domain.PriceBreakdown{}, fmt.Errorf("%s:%w", op, mapLayoutErr(err))
	}

	if err := matchLayout(layout, set.Items()); err != nil {
		return domain.PriceBreakdown{}, fmt.Errorf("%s:%w", op, err)
	}

	cfg, err := s.layouts.GetPricingConfig(ctx, eventID)
	if err != nil {
		return domain.PriceBreakdown{}, fmt.Errorf("%s:%w", op, mapLayoutErr(err))
	}

	return pricing.Price(set.Items(), cfg), nil
}

// Checkout turns a selection into one booking per unit type and hands the
// bookings to the payment gateway, as a single payment when there is one
// group and as one batch payment otherwise.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: event, holder, selection items and customer contact.
//
// Returns:
//   - domain.PaymentHandoff: payment link, created bookings and the breakdown.
//   - error: classified by KindOf. Any failure after the first booking was
//     created comes back as a GroupError with Partial set, or a GatewayError,
//     and every booking created on the way has been compensated.
func (s *Service) Checkout(ctx context.Context, req Request) (domain.PaymentHandoff, error) {
	const op = "service.checkout.Checkout"

	if req.Holder == "" {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, ErrNoHolder)
	}

	if len(req.Items) == 0 {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, ErrEmptySelection)
	}

	customer, err := booking.ValidateCustomer(req.Customer)
	if err != nil {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, err)
	}

	set, err := selection.FromItems(req.Items)
	if err != nil {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, err)
	}

	layout, err := s.layouts.GetEventLayout(ctx, req.EventID)
	if err != nil {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, mapLayoutErr(err))
	}

	if err := matchLayout(layout, set.Items()); err != nil {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, err)
	}

	cfg, err := s.layouts.GetPricingConfig(ctx, req.EventID)
	if err != nil {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, mapLayoutErr(err))
	}

	// locks the holder took before checkout are theirs to keep on failure
	held, err := s.locks.Held(ctx, req.EventID, set.UnitIDs(), req.Holder)
	if err != nil {
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, err)
	}
	taken := notIn(set.UnitIDs(), held)

	breakdown := pricing.Price(set.Items(), cfg)
	groups := set.Partition()
	handles := make([]domain.BookingHandle, 0, len(groups))

	for _, g := range groups {
		h, err := s.bookGroup(ctx, req.EventID, req.Holder, g, customer, layout)
		if err != nil {
			partial := len(handles) > 0
			s.compensate(ctx, req.EventID, req.Holder, taken, handles)
			return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, GroupError{Group: g.Type, Partial: partial, Err: err})
		}
		handles = append(handles, h)
	}

	link, err := s.initiatePayment(ctx, handles, breakdown)
	if err != nil {
		s.compensate(ctx, req.EventID, req.Holder, taken, handles)
		return domain.PaymentHandoff{}, fmt.Errorf("%s:%w", op, GatewayError{Err: err})
	}

	return domain.PaymentHandoff{
		PaymentLink: link,
		Bookings:    handles,
		Breakdown:   breakdown,
	}, nil
}

func (s *Service) bookGroup(
	ctx context.Context,
	eventID int64,
	holder string,
	g selection.Group,
	customer domain.CustomerInfo,
	layout *domain.EventLayout,
) (domain.BookingHandle, error) {
	// take the group's units, or refresh the holder's own locks on them
	if _, err := s.locks.TryLock(ctx, eventID, g.UnitIDs(), holder, s.cfg.LockTTL); err != nil {
		return domain.BookingHandle{}, err
	}

	return s.bookings.Create(ctx, g.Type, booking.Request{
		EventID:  eventID,
		Holder:   holder,
		Items:    g.Items,
		Customer: customer,
		Layout:   layout,
	})
}

func (s *Service) initiatePayment(
	ctx context.Context,
	handles []domain.BookingHandle,
	breakdown domain.PriceBreakdown,
) (string, error) {
	if len(handles) == 1 {
		h := handles[0]
		return s.payments.InitiatePayment(ctx, domain.BookingRef{ID: h.ID, Type: h.Type}, breakdown.Total)
	}

	req := domain.BatchPaymentRequest{
		Items:      make([]domain.BatchPaymentItem, 0, len(handles)),
		Subtotal:   breakdown.Subtotal,
		ServiceFee: breakdown.ServiceFee,
		Tax:        breakdown.Tax,
		GrandTotal: breakdown.Total,
		Currency:   s.cfg.Currency,
	}
	for _, h := range handles {
		req.Items = append(req.Items, domain.BatchPaymentItem{
			BookingID:   h.ID,
			BookingType: h.Type,
			Amount:      h.Amount,
		})
	}

	return s.payments.InitiateBatchPayment(ctx, req)
}

func notIn(ids []string, set map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// compensate discards every booking created during a failed checkout and
// drops the free locks this checkout took on unitIDs. Units that were
// already moved into a discarded booking are freed with it. It runs on a
// context detached from the request so a disconnecting client cannot
// interrupt it. Failures are logged; lock expiry cleans up the rest.
func (s *Service) compensate(
	ctx context.Context,
	eventID int64,
	holder string,
	unitIDs []string,
	handles []domain.BookingHandle,
) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	for i := len(handles) - 1; i >= 0; i-- {
		ref := domain.BookingRef{ID: handles[i].ID, Type: handles[i].Type}
		err := s.retry(ctx, func(ctx context.Context) error {
			return s.bookings.Discard(ctx, ref)
		})
		if err != nil {
			s.logger.Error("compensation failed: booking left pending until lock expiry",
				"event_id", eventID, "booking_id", ref.ID, "booking_type", ref.Type, "error", err)
		}
	}

	if len(unitIDs) == 0 {
		return
	}

	err := s.retry(ctx, func(ctx context.Context) error {
		_, err := s.locks.Release(ctx, eventID, unitIDs, holder)
		return err
	})
	if err != nil {
		s.logger.Error("compensation failed: holder locks left until expiry",
			"event_id", eventID, "unit_ids", unitIDs, "error", err)
	}
}

// retry runs fn with doubling backoff until it succeeds or ctx is done.
func (s *Service) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := s.cfg.CompensationBackoff

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}

		if backoff < time.Second {
			backoff *= 2
		}
	}
}

// ConfirmPayment applies a gateway outcome to every booking of a payment.
// Paid bookings are finalized; on failure they are discarded and their
// units released. The returned bookings are those confirmed.
func (s *Service) ConfirmPayment(ctx context.Context, refs []domain.BookingRef, paid bool) ([]*domain.Booking, error) {
	const op = "service.checkout.ConfirmPayment"

	if len(refs) == 0 {
		return nil, fmt.Errorf("%s:%w", op, booking.ErrNoItems)
	}

	var (
		confirmed []*domain.Booking
		errs      []error
	)
	for _, ref := range refs {
		if !paid {
			if err := s.bookings.Discard(ctx, ref); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", ref.Type, ref.ID, err))
			}
			continue
		}

		b, err := s.bookings.Confirm(ctx, ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", ref.Type, ref.ID, err))
			continue
		}
		confirmed = append(confirmed, b)
	}

	if len(errs) > 0 {
		return confirmed, fmt.Errorf("%s:%w", op, errors.Join(errs...))
	}

	return confirmed, nil
}

// matchLayout rejects items whose unit is unknown, whose type or category
// differs from the layout, or whose price snapshot is stale.
func matchLayout(layout *domain.EventLayout, items []domain.SelectionItem) error {
	for _, it := range items {
		u, ok := layout.Unit(it.UnitID)
		if !ok {
			return InvalidItemError{UnitID: it.UnitID, Reason: "does not exist"}
		}
		if u.Type != it.Type {
			return InvalidItemError{UnitID: it.UnitID, Reason: fmt.Sprintf("is a %s, not a %s", u.Type, it.Type)}
		}
		if u.CategoryID != it.CategoryID {
			return InvalidItemError{UnitID: it.UnitID, Reason: "category changed"}
		}
		cat, ok := layout.Category(u.CategoryID)
		if !ok {
			return InvalidItemError{UnitID: it.UnitID, Reason: "category does not exist"}
		}
		if cat.Price != it.Price {
			return InvalidItemError{UnitID: it.UnitID, Reason: "price changed"}
		}
	}
	return nil
}

func mapLayoutErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return lock.ErrEventNotFound
	}
	return err
}
