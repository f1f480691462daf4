package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// DefaultHorizonDays bounds the next-available search.
const DefaultHorizonDays = 14

// NewAppointment is the input for SchedulingService.Create. A patient actor
// books for themself and may leave PatientID empty. A doctor actor books a
// patient into their own schedule.
type NewAppointment struct {
	DoctorID  string
	PatientID string
	DateTime  time.Time
	Notes     *string
}

// ListOptions narrows an appointment listing. Zero values do not filter.
type ListOptions struct {
	Status models.AppointmentStatus
	From   time.Time
	To     time.Time
}

// Slot is one template position on a given day.
type Slot struct {
	Time      time.Time `json:"time"`
	Label     string    `json:"label"`
	Available bool      `json:"available"`
	Past      bool      `json:"past"`
}

// Completion reports both halves of completing an appointment with a note.
// The two steps are independent: either may fail while the other succeeds.
type Completion struct {
	Appointment    *models.Appointment
	AppointmentErr error
	Record         *models.MedicalRecord
	RecordErr      error
}

// Stats are the dashboard counters for one actor. Today is set for doctors
// only.
type Stats struct {
	Today     *int `json:"today,omitempty"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
}

// SchedulingConfig configures a SchedulingService.
type SchedulingConfig struct {
	Template    SlotTemplate
	HorizonDays int
	Clock       Clock
}

type SchedulingService struct {
	appointments store.AppointmentRepository
	users        store.UserRepository
	records      *RecordService
	template     SlotTemplate
	horizonDays  int
	now          Clock
	metrics      *metrics.SchedulingMetrics
	log          zerolog.Logger
}

func NewSchedulingService(st store.Store, records *RecordService, cfg SchedulingConfig, m *metrics.SchedulingMetrics, log zerolog.Logger) *SchedulingService {
	horizon := cfg.HorizonDays
	if horizon < 1 {
		horizon = DefaultHorizonDays
	}
	return &SchedulingService{
		appointments: st,
		users:        st,
		records:      records,
		template:     cfg.Template,
		horizonDays:  horizon,
		now:          clockOrDefault(cfg.Clock),
		metrics:      m,
		log:          log.With().Str("service", "scheduling").Logger(),
	}
}

// Template exposes the slot template so callers can parse clinic days.
func (s *SchedulingService) Template() SlotTemplate {
	return s.template
}

// Today is the current clinic day.
func (s *SchedulingService) Today() time.Time {
	return s.template.Day(s.now())
}

func (s *SchedulingService) loadRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation(string(role) + "Id is required")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, string(role))
	}
	if user.Role != role {
		return nil, apperrors.NotFound(string(role))
	}
	return user, nil
}

// Create books an appointment. The slot check happens inside the store's
// atomic insert, never against earlier presented availability.
func (s *SchedulingService) Create(ctx context.Context, actor access.Actor, in NewAppointment) (*models.Appointment, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RolePatient:
		if in.PatientID != "" && in.PatientID != actor.ID {
			return nil, apperrors.Forbidden("patients can only book appointments for themselves")
		}
		in.PatientID = actor.ID
	case models.RoleDoctor:
		if in.DoctorID == "" {
			in.DoctorID = actor.ID
		}
		if in.DoctorID != actor.ID {
			return nil, apperrors.Forbidden("doctors can only add appointments to their own schedule")
		}
	default:
		return nil, apperrors.Forbidden("unknown role")
	}

	if in.DateTime.IsZero() {
		return nil, apperrors.Validation("dateTime is required")
	}
	at := models.NormalizeInstant(in.DateTime)
	if !at.After(s.now()) {
		return nil, apperrors.Validation("appointment time must be in the future")
	}

	doctor, err := s.loadRole(ctx, in.DoctorID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	patient, err := s.loadRole(ctx, in.PatientID, models.RolePatient)
	if err != nil {
		return nil, err
	}

	apt := &models.Appointment{
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		DoctorName:  doctor.Name,
		PatientName: patient.Name,
		DateTime:    at,
		Status:      models.StatusScheduled,
		Notes:       in.Notes,
	}
	if err := s.appointments.CreateAppointment(ctx, apt); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			s.metrics.ObserveBooking(metrics.BookingConflict)
			s.log.Info().
				Str("doctor_id", doctor.ID).
				Str("patient_id", patient.ID).
				Time("date_time", at).
				Msg("booking rejected: doctor double booked")
			return nil, apperrors.DoctorDoubleBooked()
		}
		s.metrics.ObserveBooking(metrics.BookingRejected)
		return nil, storeError(err, "doctor")
	}

	s.metrics.ObserveBooking(metrics.BookingCreated)
	s.log.Info().
		Str("appointment_id", apt.ID).
		Str("doctor_id", apt.DoctorID).
		Str("patient_id", apt.PatientID).
		Time("date_time", apt.DateTime).
		Msg("appointment booked")
	return apt, nil
}

// Get returns an appointment to one of its participants.
func (s *SchedulingService) Get(ctx context.Context, actor access.Actor, id string) (*models.Appointment, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	apt, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	if err := access.Require(actor, "you are not a participant of this appointment", access.IsAppointmentParticipant(apt)); err != nil {
		return nil, err
	}
	return apt, nil
}

// Cancel is allowed to either participant while the appointment is scheduled.
func (s *SchedulingService) Cancel(ctx context.Context, actor access.Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.StatusCancelled,
		"only the assigned doctor or patient can cancel this appointment",
		access.IsAppointmentParticipant)
}

// Complete is allowed to the assigned doctor while the appointment is scheduled.
func (s *SchedulingService) Complete(ctx context.Context, actor access.Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.StatusCompleted,
		"only the assigned doctor can complete this appointment",
		assignedDoctor)
}

func assignedDoctor(apt *models.Appointment) access.Predicate {
	return func(a access.Actor) bool {
		return access.HasRole(models.RoleDoctor)(a) && access.IsAssignedDoctor(apt)(a)
	}
}

// transition re-reads the appointment, checks the actor against the stored
// participants, validates the move and applies it as a compare-and-set.
func (s *SchedulingService) transition(ctx context.Context, actor access.Actor, id string, next models.AppointmentStatus, denied string, allowed func(*models.Appointment) access.Predicate) (*models.Appointment, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	apt, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	if err := access.Require(actor, denied, allowed(apt)); err != nil {
		return nil, err
	}

	from := apt.Status
	if !apt.CanTransitionTo(next) {
		return nil, apperrors.InvalidTransition(string(from), string(next))
	}

	updated, err := s.appointments.TransitionAppointment(ctx, apt.ID, from, next)
	if err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			current, getErr := s.appointments.GetAppointment(ctx, apt.ID)
			if getErr != nil {
				return nil, storeError(getErr, "appointment")
			}
			return nil, apperrors.InvalidTransition(string(current.Status), string(next))
		}
		return nil, storeError(err, "appointment")
	}

	s.metrics.ObserveTransition(string(next))
	s.log.Info().
		Str("appointment_id", updated.ID).
		Str("actor_id", actor.ID).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("appointment status changed")
	return updated, nil
}

// AddPrescription overwrites the prescription. There is no status precondition.
func (s *SchedulingService) AddPrescription(ctx context.Context, actor access.Actor, id, prescription string) (*models.Appointment, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	apt, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	if err := access.Require(actor, "only the assigned doctor can prescribe for this appointment", assignedDoctor(apt)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prescription) == "" {
		return nil, apperrors.Validation("prescription is required")
	}

	updated, err := s.appointments.SetPrescription(ctx, apt.ID, prescription)
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	s.log.Info().Str("appointment_id", updated.ID).Str("doctor_id", actor.ID).Msg("prescription saved")
	return updated, nil
}

// List returns the actor's own appointments, newest first. It filters rather
// than rejects.
func (s *SchedulingService) List(ctx context.Context, actor access.Actor, opts ListOptions) ([]models.Appointment, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, apperrors.Validation("unknown status " + string(opts.Status))
	}

	filter := store.AppointmentFilter{Status: opts.Status, From: opts.From, To: opts.To}
	switch actor.Role {
	case models.RoleDoctor:
		filter.DoctorID = actor.ID
	case models.RolePatient:
		filter.PatientID = actor.ID
	}

	list, err := s.appointments.ListAppointments(ctx, filter)
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	return list, nil
}

// bookedOn returns the doctor's scheduled instants on the clinic day.
func (s *SchedulingService) bookedOn(ctx context.Context, doctorID string, day time.Time) (map[int64]bool, error) {
	start := s.template.Day(day)
	list, err := s.appointments.ListAppointments(ctx, store.AppointmentFilter{
		DoctorID: doctorID,
		Status:   models.StatusScheduled,
		From:     start.UTC(),
		To:       start.AddDate(0, 0, 1).UTC(),
	})
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	booked := make(map[int64]bool, len(list))
	for _, apt := range list {
		booked[apt.DateTime.Unix()] = true
	}
	return booked, nil
}

// Availability lists the template slots for a doctor on a clinic day. A slot
// is available when the doctor has no scheduled appointment at that instant.
func (s *SchedulingService) Availability(ctx context.Context, actor access.Actor, doctorID string, day time.Time) ([]Slot, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	if _, err := s.loadRole(ctx, doctorID, models.RoleDoctor); err != nil {
		return nil, err
	}

	booked, err := s.bookedOn(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	now := s.now()
	slots := s.template.SlotsOn(day)
	out := make([]Slot, 0, len(slots))
	for _, at := range slots {
		out = append(out, Slot{
			Time:      at,
			Label:     s.template.Label(at),
			Available: !booked[at.Unix()],
			Past:      !at.After(now),
		})
	}
	return out, nil
}

// NextAvailable scans forward from today for the first open future slot.
func (s *SchedulingService) NextAvailable(ctx context.Context, actor access.Actor, doctorID string) (*Slot, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	if _, err := s.loadRole(ctx, doctorID, models.RoleDoctor); err != nil {
		return nil, err
	}

	now := s.now()
	today := s.template.Day(now)
	for d := 0; d < s.horizonDays; d++ {
		day := today.AddDate(0, 0, d)
		booked, err := s.bookedOn(ctx, doctorID, day)
		if err != nil {
			return nil, err
		}
		for _, at := range s.template.SlotsOn(day) {
			if !at.After(now) || booked[at.Unix()] {
				continue
			}
			return &Slot{Time: at, Label: s.template.Label(at), Available: true}, nil
		}
	}
	return nil, apperrors.NoAvailability(s.horizonDays)
}

// CompleteWithRecord completes the appointment and then writes a note for its
// patient linked to it. The assigned doctor is checked up front; after that
// each step runs on its own and both outcomes are returned.
func (s *SchedulingService) CompleteWithRecord(ctx context.Context, actor access.Actor, id string, note models.SOAP) (*Completion, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	apt, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeError(err, "appointment")
	}
	if err := access.Require(actor, "only the assigned doctor can complete this appointment", assignedDoctor(apt)); err != nil {
		return nil, err
	}

	out := &Completion{}
	out.Appointment, out.AppointmentErr = s.Complete(ctx, actor, id)

	aptID := apt.ID
	out.Record, out.RecordErr = s.records.Add(ctx, actor, NewRecord{
		PatientID:     apt.PatientID,
		AppointmentID: &aptID,
		SOAP:          note,
	})

	if out.AppointmentErr != nil || out.RecordErr != nil {
		s.log.Warn().
			Str("appointment_id", apt.ID).
			AnErr("complete_error", out.AppointmentErr).
			AnErr("record_error", out.RecordErr).
			Msg("completion with note partially failed")
	}
	return out, nil
}

// Stats counts the actor's appointments for the dashboard. Today is the
// clinic day and excludes cancelled appointments.
func (s *SchedulingService) Stats(ctx context.Context, actor access.Actor) (*Stats, error) {
	list, err := s.List(ctx, actor, ListOptions{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := s.template.Day(now)
	tomorrow := today.AddDate(0, 0, 1)

	var st Stats
	var todayCount int
	if actor.Role == models.RoleDoctor {
		st.Today = &todayCount
	}
	for _, apt := range list {
		if st.Today != nil && apt.Status != models.StatusCancelled &&
			!apt.DateTime.Before(today) && apt.DateTime.Before(tomorrow) {
			todayCount++
		}
		if apt.Status == models.StatusScheduled && apt.DateTime.After(now) {
			st.Upcoming++
		}
		if apt.Status == models.StatusCompleted {
			st.Completed++
		}
	}
	return &st, nil
}
