package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// allowedTransitions is the full lifecycle:
//
//	scheduled → completed
//	scheduled → cancelled
//
// Terminal states have no outgoing edges.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s AppointmentStatus) Terminal() bool {
	return s.Valid() && len(allowedTransitions[s]) == 0
}

// Appointment represents a booked visit between a doctor and a patient.
// DoctorName and PatientName are snapshots taken at booking time.
type Appointment struct {
	BaseModel
	DoctorID     string            `gorm:"size:36;not null;index;uniqueIndex:idx_doctor_active_slot" json:"doctorId"`
	PatientID    string            `gorm:"size:36;not null;index" json:"patientId"`
	DoctorName   string            `gorm:"size:255;not null" json:"doctorName"`
	PatientName  string            `gorm:"size:255;not null" json:"patientName"`
	DateTime     time.Time         `gorm:"not null;index" json:"dateTime"`
	Status       AppointmentStatus `gorm:"size:20;not null;default:'scheduled'" json:"status"`
	Prescription *string           `gorm:"type:text" json:"prescription,omitempty"`
	Notes        *string           `gorm:"type:text" json:"notes,omitempty"`

	// ActiveSlot mirrors DateTime while the appointment is scheduled and is NULL otherwise,
	// so the unique index only covers scheduled rows.
	ActiveSlot *time.Time `gorm:"uniqueIndex:idx_doctor_active_slot" json:"-"`
}

// NormalizeInstant is the stored precision of appointment instants.
func NormalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range allowedTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the appointment to next or returns a *TransitionError.
func (a *Appointment) TransitionTo(next AppointmentStatus) error {
	if !a.CanTransitionTo(next) {
		return &TransitionError{From: a.Status, To: next}
	}
	a.Status = next
	a.RefreshActiveSlot()
	return nil
}

// Cancel moves a scheduled appointment to cancelled.
func (a *Appointment) Cancel() error {
	return a.TransitionTo(StatusCancelled)
}

// Complete moves a scheduled appointment to completed.
func (a *Appointment) Complete() error {
	return a.TransitionTo(StatusCompleted)
}

// IsParticipant reports whether userID is the assigned doctor or patient.
func (a *Appointment) IsParticipant(userID string) bool {
	return userID != "" && (userID == a.DoctorID || userID == a.PatientID)
}

// RefreshActiveSlot keeps ActiveSlot consistent with Status and DateTime.
func (a *Appointment) RefreshActiveSlot() {
	if a.Status == StatusScheduled {
		slot := a.DateTime
		a.ActiveSlot = &slot
		return
	}
	a.ActiveSlot = nil
}

// BeforeSave runs on both create and update.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	a.DateTime = NormalizeInstant(a.DateTime)
	a.RefreshActiveSlot()
	return nil
}

// TransitionError is returned for a move the lifecycle does not allow.
type TransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *TransitionError) Error() string {
	return "invalid appointment transition from " + string(e.From) + " to " + string(e.To)
}
