package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store/memory"
	"healthcare-booking-server/internal/utils"
)

const testHospitalKey = "st-mungo-7431"

// testNow is 08:00 UTC on the day of the booking scenarios.
var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memory.Store
	clock      *fakeClock
	identity   *IdentityService
	scheduling *SchedulingService
	records    *RecordService
	directory  *DirectoryService
	symptoms   *SymptomChecker
	metrics    *metrics.SchedulingMetrics
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithHorizon(t, DefaultHorizonDays)
}

func newFixtureWithHorizon(t *testing.T, horizon int) *fixture {
	t.Helper()

	st := memory.New()
	clock := &fakeClock{now: testNow}
	log := zerolog.Nop()
	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())

	tokens := utils.NewTokenManager(&config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24 * 365 * 10,
	})

	directory := NewDirectoryService(st, time.Minute, log)
	records := NewRecordService(st, clock.Now, m, log)
	return &fixture{
		store:    st,
		clock:    clock,
		identity: NewIdentityService(st, tokens, directory, IdentityConfig{HospitalKey: testHospitalKey, Clock: clock.Now}, log),
		scheduling: NewSchedulingService(st, records, SchedulingConfig{
			Template:    SlotTemplate{Location: time.UTC},
			HorizonDays: horizon,
			Clock:       clock.Now,
		}, m, log),
		records:   records,
		directory: directory,
		symptoms:  NewSymptomChecker(directory),
		metrics:   m,
	}
}

func (f *fixture) addUser(t *testing.T, u *models.User) access.Actor {
	t.Helper()
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return access.Actor{ID: u.ID, Role: u.Role}
}

func (f *fixture) doctor(t *testing.T, name, specialization string) access.Actor {
	t.Helper()
	return f.addUser(t, &models.User{
		Name:           name,
		Email:          name + "@clinic.test",
		PhoneNumber:    "12345678",
		Role:           models.RoleDoctor,
		Specialization: specialization,
		LicenseNumber:  "AB1234",
	})
}

func (f *fixture) patient(t *testing.T, name string) access.Actor {
	t.Helper()
	return f.addUser(t, &models.User{
		Name:        name,
		Email:       name + "@mail.test",
		PhoneNumber: "87654321",
		Role:        models.RolePatient,
	})
}

func (f *fixture) book(t *testing.T, patient access.Actor, doctorID string, at time.Time) *models.Appointment {
	t.Helper()
	apt, err := f.scheduling.Create(context.Background(), patient, NewAppointment{DoctorID: doctorID, DateTime: at})
	require.NoError(t, err)
	return apt
}

func fullNote() models.SOAP {
	return models.SOAP{
		Subjective: "headache for three days",
		Objective:  "BP 120/80, afebrile",
		Assessment: "tension headache",
		Plan:       "hydration, rest, review in two weeks",
	}
}

func strPtr(s string) *string { return &s }
