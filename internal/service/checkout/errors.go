package checkout

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/service/booking"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/kirinyoku/tix-checkout/internal/service/selection"
)

var (
	ErrEmptySelection   = errors.New("selection is empty")
	ErrInvalidSelection = errors.New("selection does not match the event layout")
	ErrPartialCheckout  = errors.New("checkout failed after some bookings were created")
	ErrGateway          = errors.New("payment gateway failure")
	ErrNoHolder         = errors.New("anonymous checkout is not allowed")
)

// InvalidItemError rejects one selection item that does not match the
// current layout: unknown unit, wrong type or category, stale price.
type InvalidItemError struct {
	UnitID string
	Reason string
}

func (e InvalidItemError) Error() string {
	return fmt.Sprintf("unit %s: %s", e.UnitID, e.Reason)
}

func (e InvalidItemError) Unwrap() error { return ErrInvalidSelection }

// GroupError reports the unit type whose lock or booking step failed.
// Partial is set when bookings for earlier groups had been created and
// were compensated.
type GroupError struct {
	Group   domain.UnitType
	Partial bool
	Err     error
}

func (e GroupError) Error() string {
	if e.Partial {
		return fmt.Sprintf("partial checkout failure in %s group: %v", e.Group, e.Err)
	}
	return fmt.Sprintf("%s group: %v", e.Group, e.Err)
}

func (e GroupError) Unwrap() []error {
	if e.Partial {
		return []error{ErrPartialCheckout, e.Err}
	}
	return []error{e.Err}
}

// GatewayError wraps a payment initiation failure. All bookings of the
// checkout were compensated before it is returned.
type GatewayError struct {
	Err error
}

func (e GatewayError) Error() string {
	return fmt.Sprintf("payment initiation failed: %v", e.Err)
}

func (e GatewayError) Unwrap() []error {
	return []error{ErrGateway, e.Err}
}

// Kind classifies checkout errors for callers that only care about the
// recovery path.
type Kind string

const (
	KindConflict     Kind = "conflict"
	KindLockExpired  Kind = "lock_expired"
	KindInvalidInput Kind = "invalid_input"
	KindPartial      Kind = "partial_checkout_failure"
	KindGateway      Kind = "gateway_failure"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGateway):
		return KindGateway
	case errors.Is(err, ErrPartialCheckout):
		return KindPartial
	case errors.Is(err, lock.ErrConflict):
		return KindConflict
	case errors.Is(err, lock.ErrLockExpired):
		return KindLockExpired
	case errors.Is(err, lock.ErrEventNotFound),
		errors.Is(err, booking.ErrBookingNotFound):
		return KindNotFound
	case errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrNoHolder),
		errors.Is(err, lock.ErrUnknownUnits),
		errors.Is(err, lock.ErrEmptyRequest),
		errors.Is(err, lock.ErrNoHolder),
		errors.Is(err, selection.ErrDuplicate),
		errors.Is(err, selection.ErrInvalidItem),
		errors.Is(err, booking.ErrInvalidCustomerInfo),
		errors.Is(err, booking.ErrInvalidType),
		errors.Is(err, booking.ErrTypeMismatch),
		errors.Is(err, booking.ErrNoItems),
		errors.Is(err, booking.ErrNotPending),
		errors.Is(err, booking.ErrBookingExpired):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
