package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("doctor")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
	assert.False(t, Role("DOCTOR").Valid())
}

func TestPasswordRoundTrip(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("Secret#123"))
	assert.NotEqual(t, "Secret#123", u.Password)
	assert.True(t, u.CheckPassword("Secret#123"))
	assert.False(t, u.CheckPassword("secret#123"))
}

func TestSanitizeDropsDoctorFieldsForPatients(t *testing.T) {
	p := &User{Name: "Pat", Role: RolePatient, Specialization: "stale", Password: "hash"}
	s := p.Sanitize()
	assert.Empty(t, s.Specialization)

	d := &User{Name: "Doc", Role: RoleDoctor, Specialization: "Cardiology", LicenseNumber: "AB1234"}
	s = d.Sanitize()
	assert.Equal(t, "Cardiology", s.Specialization)
	assert.Equal(t, "AB1234", s.LicenseNumber)
}
