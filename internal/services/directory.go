package services

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

const doctorsCacheKey = "doctors"

// DirectoryService lists doctors and patients. The doctor list is read on
// every booking screen, so it is cached.
type DirectoryService struct {
	users store.UserRepository
	cache *gocache.Cache
	log   zerolog.Logger
}

// NewDirectoryService caches the doctor list for ttl. A ttl of zero disables caching.
func NewDirectoryService(users store.UserRepository, ttl time.Duration, log zerolog.Logger) *DirectoryService {
	d := &DirectoryService{
		users: users,
		log:   log.With().Str("service", "directory").Logger(),
	}
	if ttl > 0 {
		d.cache = gocache.New(ttl, 2*ttl)
	}
	return d
}

// ListDoctors returns every doctor ordered by name.
func (d *DirectoryService) ListDoctors(ctx context.Context, actor access.Actor) ([]models.UserSanitized, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	return d.doctors(ctx)
}

func (d *DirectoryService) doctors(ctx context.Context) ([]models.UserSanitized, error) {
	if d.cache != nil {
		if cached, ok := d.cache.Get(doctorsCacheKey); ok {
			return copySanitized(cached.([]models.UserSanitized)), nil
		}
	}

	users, err := d.users.ListUsersByRole(ctx, models.RoleDoctor)
	if err != nil {
		return nil, storeError(err, "doctor")
	}
	out := sanitizeAll(users)

	if d.cache != nil {
		d.cache.SetDefault(doctorsCacheKey, out)
		d.log.Debug().Int("count", len(out)).Msg("doctor list cached")
	}
	return copySanitized(out), nil
}

// InvalidateDoctors drops the cached doctor list.
func (d *DirectoryService) InvalidateDoctors() {
	if d == nil || d.cache == nil {
		return
	}
	d.cache.Delete(doctorsCacheKey)
}

// ListPatients is doctor only.
func (d *DirectoryService) ListPatients(ctx context.Context, actor access.Actor) ([]models.UserSanitized, error) {
	if err := access.Require(actor, "only doctors can list patients", access.HasRole(models.RoleDoctor)); err != nil {
		return nil, err
	}
	users, err := d.users.ListUsersByRole(ctx, models.RolePatient)
	if err != nil {
		return nil, storeError(err, "patient")
	}
	return sanitizeAll(users), nil
}

// GetPatient is doctor only. A user who is not a patient is reported as not found.
func (d *DirectoryService) GetPatient(ctx context.Context, actor access.Actor, patientID string) (models.UserSanitized, error) {
	if err := access.Require(actor, "only doctors can view patient details", access.HasRole(models.RoleDoctor)); err != nil {
		return models.UserSanitized{}, err
	}
	user, err := d.users.GetUser(ctx, patientID)
	if err != nil {
		return models.UserSanitized{}, storeError(err, "patient")
	}
	if !user.IsPatient() {
		return models.UserSanitized{}, apperrors.NotFound("patient")
	}
	return user.Sanitize(), nil
}

// DoctorsWithSpecialization returns doctors whose specialization is in specialties.
func (d *DirectoryService) DoctorsWithSpecialization(ctx context.Context, specialties []string) ([]models.UserSanitized, error) {
	want := make(map[string]bool, len(specialties))
	for _, s := range specialties {
		want[s] = true
	}

	all, err := d.doctors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSanitized, 0)
	for _, doc := range all {
		if want[doc.Specialization] {
			out = append(out, doc)
		}
	}
	return out, nil
}

func sanitizeAll(users []models.User) []models.UserSanitized {
	out := make([]models.UserSanitized, 0, len(users))
	for i := range users {
		out = append(out, users[i].Sanitize())
	}
	return out
}

func copySanitized(in []models.UserSanitized) []models.UserSanitized {
	out := make([]models.UserSanitized, len(in))
	copy(out, in)
	return out
}
