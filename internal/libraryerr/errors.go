// Package libraryerr declares the error kinds shared by the lending, booking
// and resource services. Operation errors wrap one of the kinds so callers can
// match either the specific error or its kind with errors.Is.
package libraryerr

import (
	"errors"
	"fmt"
)

// Kinds
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnauthenticated = errors.New("authentication required")
)

// Operation errors
var (
	ErrDuplicateRequest = fmt.Errorf("%w: you have already requested this book", ErrConflict)
	ErrNoCopies         = fmt.Errorf("%w: no copies of this book are available", ErrUnavailable)
	ErrInThePast        = fmt.Errorf("%w: booking date is in the past", ErrInvalidState)
	ErrRoomTaken        = fmt.Errorf("%w: room is already booked for this date", ErrConflict)
	ErrImmutable        = fmt.Errorf("%w: booking can no longer be changed", ErrInvalidState)
)

// Kind returns the kind sentinel err belongs to, or nil if it has none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrForbidden,
		ErrConflict,
		ErrUnavailable,
		ErrInvalidState,
		ErrUnauthenticated,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// NotFound wraps ErrNotFound with the missing entity name.
func NotFound(entity string, id uint) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}
