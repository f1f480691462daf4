// Package access holds the authorization predicates applied before every
// mutating or record-disclosing operation.
package access

import (
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/models"
)

// Actor is the resolved identity behind a request.
type Actor struct {
	ID   string
	Role models.Role
}

// Predicate is a single authorization check.
type Predicate func(Actor) bool

// IsAuthenticated holds when the actor identity was resolved.
func IsAuthenticated() Predicate {
	return func(a Actor) bool {
		return a.ID != "" && a.Role.Valid()
	}
}

// HasRole holds when the actor has role r.
func HasRole(r models.Role) Predicate {
	return func(a Actor) bool {
		return a.Role == r
	}
}

// IsAppointmentParticipant holds when the actor is the appointment's doctor or patient.
func IsAppointmentParticipant(apt *models.Appointment) Predicate {
	return func(a Actor) bool {
		return apt != nil && apt.IsParticipant(a.ID)
	}
}

// IsAssignedDoctor holds when the actor is the appointment's doctor.
func IsAssignedDoctor(apt *models.Appointment) Predicate {
	return func(a Actor) bool {
		return apt != nil && a.ID != "" && a.ID == apt.DoctorID
	}
}

// IsRecordAuthor holds when the actor wrote the record.
func IsRecordAuthor(rec *models.MedicalRecord) Predicate {
	return func(a Actor) bool {
		return rec != nil && rec.IsAuthor(a.ID)
	}
}

// IsSelf holds when the actor is targetID.
func IsSelf(targetID string) Predicate {
	return func(a Actor) bool {
		return a.ID != "" && a.ID == targetID
	}
}

// AnyOf holds when at least one of preds holds.
func AnyOf(preds ...Predicate) Predicate {
	return func(a Actor) bool {
		for _, p := range preds {
			if p(a) {
				return true
			}
		}
		return false
	}
}

// Require returns a Forbidden error with message unless every predicate holds.
// An unresolved actor fails as Unauthenticated instead.
func Require(a Actor, message string, preds ...Predicate) error {
	if !IsAuthenticated()(a) {
		return apperrors.Unauthenticated("authentication required")
	}
	for _, p := range preds {
		if !p(a) {
			return apperrors.Forbidden(message)
		}
	}
	return nil
}
