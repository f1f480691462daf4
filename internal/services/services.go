// Package services holds the business rules: identity, scheduling, medical
// records and the directory. Every operation takes the acting identity and
// returns *apperrors.Error values on failure.
package services

import (
	"errors"
	"time"

	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/store"
)

// Clock returns the current instant. Tests inject a fixed one.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

// storeError converts a storage failure into an application error.
// resource names the entity for ErrNotFound.
func storeError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, store.ErrEmailTaken):
		return apperrors.EmailAlreadyExists()
	case errors.Is(err, store.ErrSlotTaken):
		return apperrors.DoctorDoubleBooked()
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Internal(err)
}
