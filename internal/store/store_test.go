package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"healthcare-booking-server/internal/models"
)

func TestAppointmentFilterMatches(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	apt := &models.Appointment{DoctorID: "d", PatientID: "p", Status: models.StatusScheduled, DateTime: at}

	assert.True(t, AppointmentFilter{}.Matches(apt))
	assert.True(t, AppointmentFilter{DoctorID: "d", Status: models.StatusScheduled}.Matches(apt))
	assert.False(t, AppointmentFilter{PatientID: "q"}.Matches(apt))
	assert.False(t, AppointmentFilter{Status: models.StatusCancelled}.Matches(apt))

	assert.True(t, AppointmentFilter{From: at, To: at.Add(time.Minute)}.Matches(apt))
	assert.False(t, AppointmentFilter{From: at.Add(time.Second)}.Matches(apt))
	assert.False(t, AppointmentFilter{To: at}.Matches(apt))
}
