// Package store declares the persistence boundary. Services depend only on
// these interfaces; gormstore and memory provide the implementations.
package store

import (
	"context"
	"errors"
	"time"

	"healthcare-booking-server/internal/models"
)

var (
	ErrNotFound      = errors.New("store: record not found")
	ErrEmailTaken    = errors.New("store: email already registered")
	ErrSlotTaken     = errors.New("store: doctor already has a scheduled appointment at this time")
	ErrStatusChanged = errors.New("store: appointment status changed concurrently")
)

// AppointmentFilter selects appointments. Zero fields do not filter.
// From is inclusive and To exclusive.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Status    models.AppointmentStatus
	From      time.Time
	To        time.Time
}

// Matches reports whether apt passes the filter.
func (f AppointmentFilter) Matches(apt *models.Appointment) bool {
	if f.DoctorID != "" && apt.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && apt.PatientID != f.PatientID {
		return false
	}
	if f.Status != "" && apt.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && apt.DateTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !apt.DateTime.Before(f.To) {
		return false
	}
	return true
}

type UserRepository interface {
	// CreateUser fails with ErrEmailTaken when the email is already registered under any role.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsersByRole orders by name ascending.
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

type AppointmentRepository interface {
	// CreateAppointment inserts apt unless the doctor already has a scheduled
	// appointment at apt.DateTime, in which case it returns ErrSlotTaken.
	// The check and the insert are atomic.
	CreateAppointment(ctx context.Context, apt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	// TransitionAppointment moves the appointment from one status to another
	// only if its stored status is still from, otherwise it returns ErrStatusChanged.
	TransitionAppointment(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error)
	// SetPrescription overwrites the prescription and leaves every other column alone.
	SetPrescription(ctx context.Context, id, prescription string) (*models.Appointment, error)
	// ListAppointments orders by date and time, newest first.
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
}

type MedicalRecordRepository interface {
	CreateRecord(ctx context.Context, rec *models.MedicalRecord) error
	GetRecord(ctx context.Context, id string) (*models.MedicalRecord, error)
	// UpdateRecord persists the four SOAP sections only.
	UpdateRecord(ctx context.Context, rec *models.MedicalRecord) error
	// ListRecordsByPatient orders by date, newest first.
	ListRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error)
}

type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// RevokeRefreshToken revokes an active token. It returns ErrNotFound when
	// the token is missing or was already revoked, so only one caller wins.
	RevokeRefreshToken(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	UserRepository
	AppointmentRepository
	MedicalRecordRepository
	RefreshTokenRepository
}
