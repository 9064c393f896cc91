package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnitsUnavailable = errors.New("some units unavailable")
	ErrUnknownUnits     = errors.New("unknown units")
	ErrUnitsNotLocked   = errors.New("units not locked by holder")
	ErrNothingToConfirm = errors.New("nothing to confirm")
)

// UnitsError names the units a store operation refused. It matches its
// Kind sentinel under errors.Is.
type UnitsError struct {
	Kind    error
	UnitIDs []string
}

func (e *UnitsError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.UnitIDs)
}

func (e *UnitsError) Unwrap() error {
	return e.Kind
}

func Unavailable(unitIDs []string) error {
	return &UnitsError{Kind: ErrUnitsUnavailable, UnitIDs: unitIDs}
}

func Unknown(unitIDs []string) error {
	return &UnitsError{Kind: ErrUnknownUnits, UnitIDs: unitIDs}
}

func NotLocked(unitIDs []string) error {
	return &UnitsError{Kind: ErrUnitsNotLocked, UnitIDs: unitIDs}
}

// UnitIDsOf extracts the refused unit ids from err, if any.
func UnitIDsOf(err error) []string {
	var ue *UnitsError
	if errors.As(err, &ue) {
		return ue.UnitIDs
	}
	return nil
}
