// Package memory is an in-process store. Each Store is independent, so tests
// can create one per case.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	users        map[string]models.User
	emails       map[string]string
	appointments map[string]models.Appointment
	records      map[string]models.MedicalRecord
	tokens       map[string]models.RefreshToken
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:          time.Now,
		users:        make(map[string]models.User),
		emails:       make(map[string]string),
		appointments: make(map[string]models.Appointment),
		records:      make(map[string]models.MedicalRecord),
		tokens:       make(map[string]models.RefreshToken),
	}
}

func (s *Store) stamp(base *models.BaseModel, creating bool) {
	now := s.now()
	if creating {
		base.EnsureID()
		if base.CreatedAt.IsZero() {
			base.CreatedAt = now
		}
	}
	base.UpdatedAt = now
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(user.Email)
	if _, taken := s.emails[email]; taken {
		return store.ErrEmailTaken
	}
	s.stamp(&user.BaseModel, true)
	s.users[user.ID] = cloneUser(*user)
	s.emails[email] = user.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[models.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := cloneUser(s.users[id])
	return &u, nil
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0)
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt.DateTime = models.NormalizeInstant(apt.DateTime)
	if apt.Status == models.StatusScheduled {
		for _, existing := range s.appointments {
			if existing.DoctorID == apt.DoctorID &&
				existing.Status == models.StatusScheduled &&
				existing.DateTime.Equal(apt.DateTime) {
				return store.ErrSlotTaken
			}
		}
	}
	apt.RefreshActiveSlot()
	s.stamp(&apt.BaseModel, true)
	s.appointments[apt.ID] = cloneAppointment(*apt)
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apt, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	apt = cloneAppointment(apt)
	return &apt, nil
}

func (s *Store) TransitionAppointment(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if apt.Status != from {
		return nil, store.ErrStatusChanged
	}
	apt.Status = to
	apt.RefreshActiveSlot()
	s.stamp(&apt.BaseModel, false)
	s.appointments[id] = apt

	out := cloneAppointment(apt)
	return &out, nil
}

func (s *Store) SetPrescription(ctx context.Context, id, prescription string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	apt.Prescription = &prescription
	s.stamp(&apt.BaseModel, false)
	s.appointments[id] = apt

	out := cloneAppointment(apt)
	return &out, nil
}

func (s *Store) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Appointment, 0)
	for _, apt := range s.appointments {
		if filter.Matches(&apt) {
			out = append(out, cloneAppointment(apt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].DateTime.After(out[j].DateTime)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&rec.BaseModel, true)
	if rec.Date.IsZero() {
		rec.Date = rec.CreatedAt
	}
	s.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec = cloneRecord(rec)
	return &rec, nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec *models.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[rec.ID]
	if !ok {
		return store.ErrNotFound
	}
	current.Subjective = rec.Subjective
	current.Objective = rec.Objective
	current.Assessment = rec.Assessment
	current.Plan = rec.Plan
	s.stamp(&current.BaseModel, false)
	s.records[rec.ID] = current

	*rec = cloneRecord(current)
	return nil
}

func (s *Store) ListRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MedicalRecord, 0)
	for _, rec := range s.records {
		if rec.PatientID == patientID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&token.BaseModel, true)
	s.tokens[token.ID] = *token
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.Token == token {
			t := t
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok || t.IsRevoked {
		return store.ErrNotFound
	}
	t.IsRevoked = true
	s.stamp(&t.BaseModel, false)
	s.tokens[id] = t
	return nil
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u models.User) models.User {
	u.RefreshTokens = nil
	u.MedicalRecords = nil
	return u
}

func cloneAppointment(a models.Appointment) models.Appointment {
	a.Prescription = cloneString(a.Prescription)
	a.Notes = cloneString(a.Notes)
	a.ActiveSlot = cloneTime(a.ActiveSlot)
	return a
}

func cloneRecord(r models.MedicalRecord) models.MedicalRecord {
	r.AppointmentID = cloneString(r.AppointmentID)
	return r
}
