package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// NewRecord is the input for RecordService.Add.
type NewRecord struct {
	PatientID     string
	AppointmentID *string
	models.SOAP
}

// RecordUpdate is a partial edit. Nil fields are left as they are.
type RecordUpdate struct {
	Subjective *string
	Objective  *string
	Assessment *string
	Plan       *string
}

func (u RecordUpdate) empty() bool {
	return u.Subjective == nil && u.Objective == nil && u.Assessment == nil && u.Plan == nil
}

type RecordService struct {
	records      store.MedicalRecordRepository
	users        store.UserRepository
	appointments store.AppointmentRepository
	now          Clock
	metrics      *metrics.SchedulingMetrics
	log          zerolog.Logger
}

func NewRecordService(st store.Store, clock Clock, m *metrics.SchedulingMetrics, log zerolog.Logger) *RecordService {
	return &RecordService{
		records:      st,
		users:        st,
		appointments: st,
		now:          clockOrDefault(clock),
		metrics:      m,
		log:          log.With().Str("service", "records").Logger(),
	}
}

// Add writes a new SOAP note authored by the acting doctor.
func (s *RecordService) Add(ctx context.Context, actor access.Actor, in NewRecord) (*models.MedicalRecord, error) {
	if err := access.Require(actor, "only doctors can add medical records", access.HasRole(models.RoleDoctor)); err != nil {
		return nil, err
	}
	if missing := in.SOAP.MissingSections(); len(missing) > 0 {
		return nil, apperrors.Validation("missing required sections: " + strings.Join(missing, ", "))
	}

	patient, err := s.users.GetUser(ctx, in.PatientID)
	if err != nil {
		return nil, storeError(err, "patient")
	}
	if !patient.IsPatient() {
		return nil, apperrors.NotFound("patient")
	}

	var appointmentID *string
	if in.AppointmentID != nil && strings.TrimSpace(*in.AppointmentID) != "" {
		apt, err := s.appointments.GetAppointment(ctx, strings.TrimSpace(*in.AppointmentID))
		if err != nil {
			return nil, storeError(err, "appointment")
		}
		if apt.PatientID != patient.ID {
			return nil, apperrors.Validation("appointment does not belong to this patient")
		}
		id := apt.ID
		appointmentID = &id
	}

	doctor, err := s.users.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "doctor")
	}

	rec := &models.MedicalRecord{
		Date:          s.now(),
		PatientID:     patient.ID,
		DoctorID:      doctor.ID,
		DoctorName:    doctor.Name,
		AppointmentID: appointmentID,
		Subjective:    in.Subjective,
		Objective:     in.Objective,
		Assessment:    in.Assessment,
		Plan:          in.Plan,
	}
	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return nil, storeError(err, "medical record")
	}

	s.metrics.ObserveRecordWrite("create")
	s.log.Info().
		Str("record_id", rec.ID).
		Str("doctor_id", rec.DoctorID).
		Str("patient_id", rec.PatientID).
		Msg("medical record added")
	return rec, nil
}

// Update edits the SOAP sections of a record. Only its author may do so.
func (s *RecordService) Update(ctx context.Context, actor access.Actor, recordID string, upd RecordUpdate) (*models.MedicalRecord, error) {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, storeError(err, "medical record")
	}
	if err := access.Require(actor, "only the authoring doctor can edit this record", access.IsRecordAuthor(rec)); err != nil {
		return nil, err
	}
	if upd.empty() {
		return nil, apperrors.Validation("at least one section must be provided")
	}

	fields := []struct {
		name string
		in   *string
		dst  *string
	}{
		{"subjective", upd.Subjective, &rec.Subjective},
		{"objective", upd.Objective, &rec.Objective},
		{"assessment", upd.Assessment, &rec.Assessment},
		{"plan", upd.Plan, &rec.Plan},
	}
	for _, f := range fields {
		if f.in == nil {
			continue
		}
		if strings.TrimSpace(*f.in) == "" {
			return nil, apperrors.Validation(f.name + " cannot be empty")
		}
		*f.dst = *f.in
	}

	if err := s.records.UpdateRecord(ctx, rec); err != nil {
		return nil, storeError(err, "medical record")
	}

	s.metrics.ObserveRecordWrite("update")
	s.log.Info().Str("record_id", rec.ID).Str("doctor_id", actor.ID).Msg("medical record updated")
	return rec, nil
}

func canViewRecordsOf(patientID string) access.Predicate {
	return access.AnyOf(access.IsSelf(patientID), access.HasRole(models.RoleDoctor))
}

// ListForPatient returns a patient's records, newest first. The patient
// themself or any doctor may read them.
func (s *RecordService) ListForPatient(ctx context.Context, actor access.Actor, patientID string) ([]models.MedicalRecord, error) {
	if err := access.Require(actor, "patients can only view their own medical records", canViewRecordsOf(patientID)); err != nil {
		return nil, err
	}

	patient, err := s.users.GetUser(ctx, patientID)
	if err != nil {
		return nil, storeError(err, "patient")
	}
	if !patient.IsPatient() {
		return nil, apperrors.NotFound("patient")
	}

	records, err := s.records.ListRecordsByPatient(ctx, patientID)
	if err != nil {
		return nil, storeError(err, "medical record")
	}
	return records, nil
}

// Get returns one record under the same rule as ListForPatient.
func (s *RecordService) Get(ctx context.Context, actor access.Actor, recordID string) (*models.MedicalRecord, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, storeError(err, "medical record")
	}
	if err := access.Require(actor, "patients can only view their own medical records", canViewRecordsOf(rec.PatientID)); err != nil {
		return nil, err
	}
	return rec, nil
}
