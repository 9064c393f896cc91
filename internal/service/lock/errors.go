package lock

import (
	"errors"
	"fmt"
)

var (
	ErrConflict      = errors.New("units are not available")
	ErrUnknownUnits  = errors.New("units do not exist for this event")
	ErrLockExpired   = errors.New("units are not locked by this session")
	ErrEmptyRequest  = errors.New("no units requested")
	ErrNoHolder      = errors.New("lock holder is required")
	ErrEventNotFound = errors.New("event not found")
)

// ConflictError names the units another session holds or that are booked
// or blocked. The caller can drop just these from its selection.
type ConflictError struct {
	UnitIDs []string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("units unavailable: %v", e.UnitIDs)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

type UnknownUnitsError struct {
	UnitIDs []string
}

func (e UnknownUnitsError) Error() string {
	return fmt.Sprintf("unknown units: %v", e.UnitIDs)
}

func (e UnknownUnitsError) Unwrap() error { return ErrUnknownUnits }

// NotLockedError names the units whose lock lapsed or was never taken by
// the caller.
type NotLockedError struct {
	UnitIDs []string
}

func (e NotLockedError) Error() string {
	return fmt.Sprintf("units not locked: %v", e.UnitIDs)
}

func (e NotLockedError) Unwrap() error { return ErrLockExpired }

// UnitIDs returns the unit ids carried by any of this package's typed errors.
func UnitIDs(err error) []string {
	var (
		ce ConflictError
		ue UnknownUnitsError
		ne NotLockedError
	)
	switch {
	case errors.As(err, &ce):
		return ce.UnitIDs
	case errors.As(err, &ue):
		return ue.UnitIDs
	case errors.As(err, &ne):
		return ne.UnitIDs
	}
	return nil
}
