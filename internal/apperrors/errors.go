// Package apperrors defines the typed failures returned by the service layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Every request-terminating failure has exactly one kind.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindInvalidTransition  Kind = "invalid_transition"
	KindDoctorDoubleBooked Kind = "doctor_double_booked"
	KindEmailAlreadyExists Kind = "email_already_exists"
	KindInvalidHospitalKey Kind = "invalid_hospital_key"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthenticated    Kind = "unauthenticated"
	KindNoAvailability     Kind = "no_availability"
	KindInternal           Kind = "internal"
)

// Error is an application error. Message is safe to show to callers; Err is not.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the caller-facing message for err.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("appointment cannot move from %s to %s", from, to),
	}
}

func DoctorDoubleBooked() *Error {
	return &Error{Kind: KindDoctorDoubleBooked, Message: "doctor already has an appointment at this time"}
}

func EmailAlreadyExists() *Error {
	return &Error{Kind: KindEmailAlreadyExists, Message: "user with this email already exists"}
}

func InvalidHospitalKey() *Error {
	return &Error{Kind: KindInvalidHospitalKey, Message: "invalid hospital key"}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func NoAvailability(days int) *Error {
	return &Error{
		Kind:    KindNoAvailability,
		Message: fmt.Sprintf("no available slot in the next %d days", days),
	}
}

// Internal wraps an unexpected failure, usually from storage.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}
