package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/store/memory"
	"healthcare-booking-server/internal/utils"
)

const hospitalKey = "st-mungo-7431"

// clinicNow is 08:00 UTC, an hour before the first slot.
var clinicNow = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
}

type server struct {
	t      *testing.T
	router *gin.Engine
}

func newServer(t *testing.T, limiter *middleware.RateLimiter) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:               "test",
		JWTSecret:                 "access",
		JWTRefreshSecret:          "refresh",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
		HospitalKey:               hospitalKey,
	}
	clock := func() time.Time { return clinicNow }
	log := zerolog.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(reg)

	st := memory.New()
	tokens := utils.NewTokenManager(cfg)
	directory := services.NewDirectoryService(st, 0, log)
	records := services.NewRecordService(st, clock, m, log)

	router := gin.New()
	router.Use(middleware.Logger(log, metrics.NewHTTPMetrics(reg)))
	SetupRoutes(router, Dependencies{
		Config:   cfg,
		Tokens:   tokens,
		Identity: services.NewIdentityService(st, tokens, directory, services.IdentityConfig{HospitalKey: hospitalKey, Clock: clock}, log),
		Scheduling: services.NewSchedulingService(st, records, services.SchedulingConfig{
			Template:    services.SlotTemplate{Location: time.UTC},
			HorizonDays: services.DefaultHorizonDays,
			Clock:       clock,
		}, m, log),
		Records:     records,
		Directory:   directory,
		Symptoms:    services.NewSymptomChecker(directory),
		AuthLimiter: limiter,
		Gatherer:    reg,
	})
	return &server{t: t, router: router}
}

func (s *server) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(path, "/api/") && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (s *server) signup(path string, body map[string]string) session {
	s.t.Helper()
	w, env := s.do(http.MethodPost, path, "", body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var out session
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *server) patient(email string) session {
	return s.signup("/api/v1/auth/signup/patient", map[string]string{
		"name": "Rory Williams", "email": email, "phoneNumber": "87654321", "password": "Centurion#2000",
	})
}

func (s *server) doctor(email, specialization string) session {
	return s.signup("/api/v1/auth/signup/doctor", map[string]string{
		"name": "Dr " + email, "email": email, "phoneNumber": "12345678", "password": "Tardis#1963",
		"specialization": specialization, "licenseNumber": "TD1963", "hospitalKey": hospitalKey,
	})
}

func decodeInto(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type appointmentJSON struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	DoctorName   string  `json:"doctorName"`
	Prescription *string `json:"prescription"`
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, nil)

	w, _ := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "UP", health.Status)

	w, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthcare_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t, nil)
	for _, path := range []string{"/api/v1/appointments", "/api/v1/users/doctors", "/api/v1/auth/profile"} {
		w, env := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "unauthenticated", env.Code, path)
	}
}

func TestSignupErrors(t *testing.T) {
	s := newServer(t, nil)
	s.patient("rory@example.com")

	w, env := s.do(http.MethodPost, "/api/v1/auth/signup/patient", "", map[string]string{
		"name": "Again", "email": "RORY@example.com", "phoneNumber": "87654321", "password": "Centurion#2000",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_already_exists", env.Code)

	w, env = s.do(http.MethodPost, "/api/v1/auth/signup/patient", "", map[string]string{
		"name": "Weak", "email": "weak@example.com", "phoneNumber": "123", "password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "phoneNumber")

	w, env = s.do(http.MethodPost, "/api/v1/auth/signup/doctor", "", map[string]string{
		"name": "Master", "email": "master@example.com", "hospitalKey": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_hospital_key", env.Code)

	w, env = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "rory@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", env.Code)
}

func TestBookingLifecycle(t *testing.T) {
	s := newServer(t, nil)
	doc := s.doctor("who@clinic.test", "Neurology")
	amy := s.patient("amy@example.com")
	rory := s.patient("rory@example.com")
	nine := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

	w, env := s.do(http.MethodGet, "/api/v1/users/doctors", amy.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), doc.User.ID)

	w, env = s.do(http.MethodPost, "/api/v1/appointments", amy.AccessToken, map[string]interface{}{
		"doctorId": doc.User.ID, "dateTime": nine,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var apt appointmentJSON
	decodeInto(t, env, &apt)
	assert.Equal(t, "scheduled", apt.Status)
	assert.Equal(t, "Dr who@clinic.test", apt.DoctorName)

	w, env = s.do(http.MethodPost, "/api/v1/appointments", rory.AccessToken, map[string]interface{}{
		"doctorId": doc.User.ID, "dateTime": nine,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "doctor_double_booked", env.Code)

	w, env = s.do(http.MethodGet, "/api/v1/appointments/availability?doctorId="+doc.User.ID+"&date=2030-03-04", rory.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []services.Slot
	decodeInto(t, env, &slots)
	require.Len(t, slots, 12)
	assert.False(t, slots[0].Available)
	assert.True(t, slots[1].Available)

	w, env = s.do(http.MethodGet, "/api/v1/appointments/next-available?doctorId="+doc.User.ID, rory.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var next services.Slot
	decodeInto(t, env, &next)
	assert.Equal(t, "09:30", next.Label)

	w, _ = s.do(http.MethodGet, "/api/v1/appointments/"+apt.ID, rory.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPatch, "/api/v1/appointments/"+apt.ID+"/complete", amy.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPatch, "/api/v1/appointments/"+apt.ID+"/prescription", doc.AccessToken, map[string]string{
		"prescription": "paracetamol 500mg",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, env, &apt)
	require.NotNil(t, apt.Prescription)

	w, env = s.do(http.MethodPatch, "/api/v1/appointments/"+apt.ID+"/cancel", amy.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, env, &apt)
	assert.Equal(t, "cancelled", apt.Status)

	w, env = s.do(http.MethodPatch, "/api/v1/appointments/"+apt.ID+"/cancel", amy.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", env.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/appointments", rory.AccessToken, map[string]interface{}{
		"doctorId": doc.User.ID, "dateTime": nine,
	})
	assert.Equal(t, http.StatusCreated, w.Code, "slot is free again after cancel")

	w, env = s.do(http.MethodGet, "/api/v1/appointments", amy.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []appointmentJSON
	decodeInto(t, env, &mine)
	assert.Len(t, mine, 1)
}

func TestCompleteWithNote(t *testing.T) {
	s := newServer(t, nil)
	doc := s.doctor("who@clinic.test", "Neurology")
	amy := s.patient("amy@example.com")
	ten := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)

	book := func(at time.Time) string {
		w, env := s.do(http.MethodPost, "/api/v1/appointments", amy.AccessToken, map[string]interface{}{
			"doctorId": doc.User.ID, "dateTime": at,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var apt appointmentJSON
		decodeInto(t, env, &apt)
		return apt.ID
	}

	full := map[string]string{
		"subjective": "headache", "objective": "BP normal", "assessment": "migraine", "plan": "rest",
	}
	id := book(ten)
	w, env := s.do(http.MethodPatch, "/api/v1/appointments/"+id+"/complete", doc.AccessToken, full)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"status":"completed"`)
	assert.Contains(t, string(env.Data), `"appointmentId":"`+id+`"`)

	// incomplete note: the appointment still completes
	id = book(ten.Add(30 * time.Minute))
	w, env = s.do(http.MethodPatch, "/api/v1/appointments/"+id+"/complete", doc.AccessToken, map[string]string{
		"subjective": "tired",
	})
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	var partial struct {
		Appointment *appointmentJSON `json:"appointment"`
		RecordError *struct {
			Code string `json:"code"`
		} `json:"recordError"`
	}
	decodeInto(t, env, &partial)
	require.NotNil(t, partial.Appointment)
	assert.Equal(t, "completed", partial.Appointment.Status)
	require.NotNil(t, partial.RecordError)
	assert.Equal(t, "validation_error", partial.RecordError.Code)

	// repeat on a completed appointment with a bad note: both steps fail
	w, env = s.do(http.MethodPatch, "/api/v1/appointments/"+id+"/complete", doc.AccessToken, map[string]string{
		"subjective": "still tired",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", env.Code)
	var failed struct {
		Appointment      *appointmentJSON `json:"appointment"`
		AppointmentError *struct {
			Code string `json:"code"`
		} `json:"appointmentError"`
		RecordError *struct {
			Code string `json:"code"`
		} `json:"recordError"`
	}
	decodeInto(t, env, &failed)
	assert.Nil(t, failed.Appointment)
	require.NotNil(t, failed.AppointmentError)
	assert.Equal(t, "invalid_transition", failed.AppointmentError.Code)
	require.NotNil(t, failed.RecordError)
	assert.Equal(t, "validation_error", failed.RecordError.Code)

	w, env = s.do(http.MethodGet, "/api/v1/medical-records/patient/"+amy.User.ID, amy.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []map[string]interface{}
	decodeInto(t, env, &recs)
	assert.Len(t, recs, 1)

	w, env = s.do(http.MethodGet, "/api/v1/appointments/stats", doc.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.Stats
	decodeInto(t, env, &stats)
	assert.Equal(t, 2, stats.Completed)
	require.NotNil(t, stats.Today)
	assert.Equal(t, 2, *stats.Today)
}

func TestMedicalRecordRoutes(t *testing.T) {
	s := newServer(t, nil)
	author := s.doctor("who@clinic.test", "Neurology")
	other := s.doctor("master@clinic.test", "Neurology")
	amy := s.patient("amy@example.com")
	rory := s.patient("rory@example.com")

	note := map[string]interface{}{
		"patientId": amy.User.ID, "subjective": "s", "objective": "o", "assessment": "a", "plan": "p",
	}
	w, _ := s.do(http.MethodPost, "/api/v1/medical-records", amy.AccessToken, note)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/medical-records", author.AccessToken, note)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec struct {
		ID   string `json:"id"`
		Plan string `json:"plan"`
	}
	decodeInto(t, env, &rec)

	w, _ = s.do(http.MethodPut, "/api/v1/medical-records/"+rec.ID, other.AccessToken, map[string]string{"plan": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPut, "/api/v1/medical-records/"+rec.ID, author.AccessToken, map[string]string{"plan": "review"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, env, &rec)
	assert.Equal(t, "review", rec.Plan)

	w, _ = s.do(http.MethodGet, "/api/v1/medical-records/"+rec.ID, rory.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/medical-records/"+rec.ID, other.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/users/patients", amy.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/users/patients/"+rory.User.ID, author.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newServer(t, nil)
	amy := s.patient("amy@example.com")

	w, env := s.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": amy.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var next session
	decodeInto(t, env, &next)
	assert.NotEqual(t, amy.RefreshToken, next.RefreshToken)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": amy.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/logout", "", map[string]string{"refreshToken": next.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": next.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/auth/profile", next.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), amy.User.ID)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestSymptomCheckRoute(t *testing.T) {
	s := newServer(t, nil)
	s.doctor("strange@clinic.test", "Dermatology")
	amy := s.patient("amy@example.com")

	w, env := s.do(http.MethodPost, "/api/v1/symptoms/check", amy.AccessToken, map[string]string{"symptoms": "A Skin Rash"})
	require.Equal(t, http.StatusOK, w.Code)
	var match services.SymptomMatch
	decodeInto(t, env, &match)
	assert.Equal(t, []string{"Dermatology", "Allergy and Immunology"}, match.Specialties)
	assert.Len(t, match.Doctors, 1)

	w, _ = s.do(http.MethodPost, "/api/v1/symptoms/check", amy.AccessToken, map[string]string{"symptoms": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	s := newServer(t, middleware.NewRateLimiter(2))
	body := map[string]string{"email": "x@example.com", "password": "nope"}

	for i := 0; i < 2; i++ {
		w, _ := s.do(http.MethodPost, "/api/v1/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, _ := s.do(http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
