package service

import (
	"errors"
	"fmt"
)

// ConfirmationWord must be typed to confirm a destructive operation.
// It is compared case-insensitively after trimming.
const ConfirmationWord = "BORRAR"

var (
	// ErrConfirmation is returned when a delete is not confirmed.
	ErrConfirmation = errors.New("type " + ConfirmationWord + " to confirm")

	// ErrHasReservations matches any *HasReservationsError.
	ErrHasReservations = errors.New("instrument has reservations")

	// ErrInstrumentNotFound is returned when a reservation refers to an
	// instrument that does not exist.
	ErrInstrumentNotFound = errors.New("instrument not found")
)

// HasReservationsError blocks a non-cascading delete of an instrument that
// still has reservations.
type HasReservationsError struct {
	Count int
}

func (e *HasReservationsError) Error() string {
	return fmt.Sprintf("instrument has %d reservation(s); delete them or cascade", e.Count)
}

func (e *HasReservationsError) Is(target error) bool {
	return target == ErrHasReservations
}
