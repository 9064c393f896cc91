package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCustomerInfo = errors.New("invalid customer info")
	ErrInvalidType         = errors.New("unknown booking type")
	ErrTypeMismatch        = errors.New("item type does not match booking type")
	ErrNoItems             = errors.New("booking has no units")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrNotPending          = errors.New("booking is no longer pending")
	ErrBookingExpired      = errors.New("booking payment window has passed")
)

// CustomerInfoError names the first contact field that failed validation.
type CustomerInfoError struct {
	Field  string
	Reason string
}

func (e CustomerInfoError) Error() string {
	return fmt.Sprintf("customer %s %s", e.Field, e.Reason)
}

func (e CustomerInfoError) Unwrap() error { return ErrInvalidCustomerInfo }
