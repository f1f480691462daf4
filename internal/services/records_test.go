package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-booking-server/internal/apperrors"
)

func TestAddRecordRequiresAllSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "house", "Diagnostics")
	p := f.patient(t, "p1")

	note := fullNote()
	note.Objective = ""
	_, err := f.records.Add(ctx, d, NewRecord{PatientID: p.ID, SOAP: note})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Contains(t, apperrors.PublicMessage(err), "objective")

	note.Objective = "   "
	_, err = f.records.Add(ctx, d, NewRecord{PatientID: p.ID, SOAP: note})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	records, err := f.store.ListRecordsByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAddRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "house", "Diagnostics")
	p := f.patient(t, "p1")

	rec, err := f.records.Add(ctx, d, NewRecord{PatientID: p.ID, SOAP: fullNote()})
	require.NoError(t, err)
	assert.Equal(t, d.ID, rec.DoctorID)
	assert.Equal(t, "house", rec.DoctorName)
	assert.Equal(t, p.ID, rec.PatientID)
	assert.True(t, rec.Date.Equal(testNow))
	assert.Nil(t, rec.AppointmentID)
}

func TestAddRecordRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "house", "Diagnostics")
	other := f.doctor(t, "wilson", "Oncology")
	p1 := f.patient(t, "p1")
	p2 := f.patient(t, "p2")
	aptOfP2 := f.book(t, p2, d.ID, nineAM)

	tests := []struct {
		name      string
		byPatient bool
		in        NewRecord
		kind      apperrors.Kind
	}{
		{"patient author", true, NewRecord{PatientID: p1.ID, SOAP: fullNote()}, apperrors.KindForbidden},
		{"unknown patient", false, NewRecord{PatientID: "ghost", SOAP: fullNote()}, apperrors.KindNotFound},
		{"target is a doctor", false, NewRecord{PatientID: other.ID, SOAP: fullNote()}, apperrors.KindNotFound},
		{"unknown appointment", false, NewRecord{PatientID: p1.ID, AppointmentID: strPtr("ghost"), SOAP: fullNote()}, apperrors.KindNotFound},
		{"appointment of another patient", false, NewRecord{PatientID: p1.ID, AppointmentID: strPtr(aptOfP2.ID), SOAP: fullNote()}, apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := d
			if tt.byPatient {
				actor = p1
			}
			_, err := f.records.Add(ctx, actor, tt.in)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestRecordEditableOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.doctor(t, "x", "Cardiology")
	y := f.doctor(t, "y", "Cardiology")
	p := f.patient(t, "p1")

	rec, err := f.records.Add(ctx, x, NewRecord{PatientID: p.ID, SOAP: fullNote()})
	require.NoError(t, err)

	_, err = f.records.Update(ctx, y, rec.ID, RecordUpdate{Plan: strPtr("surgery")})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	_, err = f.records.Update(ctx, p, rec.ID, RecordUpdate{Plan: strPtr("surgery")})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	f.clock.now = testNow.Add(time.Hour)
	updated, err := f.records.Update(ctx, x, rec.ID, RecordUpdate{Plan: strPtr("beta blockers")})
	require.NoError(t, err)
	assert.Equal(t, "beta blockers", updated.Plan)
	assert.Equal(t, rec.Subjective, updated.Subjective)
	assert.True(t, updated.Date.Equal(rec.Date))
	assert.Equal(t, x.ID, updated.DoctorID)
	assert.Equal(t, p.ID, updated.PatientID)
}

func TestRecordUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "house", "Diagnostics")
	p := f.patient(t, "p1")

	rec, err := f.records.Add(ctx, d, NewRecord{PatientID: p.ID, SOAP: fullNote()})
	require.NoError(t, err)

	_, err = f.records.Update(ctx, d, rec.ID, RecordUpdate{})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.records.Update(ctx, d, rec.ID, RecordUpdate{Assessment: strPtr(" ")})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.records.Update(ctx, d, "ghost", RecordUpdate{Plan: strPtr("x")})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	stored, err := f.store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, fullNote(), stored.SOAP())
}

func TestRecordVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "house", "Diagnostics")
	anyDoctor := f.doctor(t, "wilson", "Oncology")
	p1 := f.patient(t, "p1")
	p2 := f.patient(t, "p2")

	r1, err := f.records.Add(ctx, d, NewRecord{PatientID: p1.ID, SOAP: fullNote()})
	require.NoError(t, err)
	r2, err := f.records.Add(ctx, d, NewRecord{PatientID: p2.ID, SOAP: fullNote()})
	require.NoError(t, err)

	own, err := f.records.ListForPatient(ctx, p1, p1.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, r1.ID, own[0].ID)

	_, err = f.records.ListForPatient(ctx, p1, p2.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	theirs, err := f.records.ListForPatient(ctx, anyDoctor, p2.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = f.records.Get(ctx, p1, r2.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
	got, err := f.records.Get(ctx, p2, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, r2.ID, got.ID)
	_, err = f.records.Get(ctx, anyDoctor, r1.ID)
	assert.NoError(t, err)

	_, err = f.records.ListForPatient(ctx, d, "ghost")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestRecordsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "house", "Diagnostics")
	p := f.patient(t, "p1")

	var ids []string
	for i := 0; i < 3; i++ {
		f.clock.now = testNow.Add(time.Duration(i) * time.Hour)
		rec, err := f.records.Add(ctx, d, NewRecord{PatientID: p.ID, SOAP: fullNote()})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	list, err := f.records.ListForPatient(ctx, p, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
}
