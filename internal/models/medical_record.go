package models

import (
	"strings"
	"time"
)

// MedicalRecord is a SOAP note written by a doctor about a patient.
// AppointmentID is a traceability link only; deleting or changing the
// appointment never affects the record.
type MedicalRecord struct {
	BaseModel
	Date          time.Time `gorm:"not null;index" json:"date"`
	PatientID     string    `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID      string    `gorm:"size:36;not null;index" json:"doctorId"`
	DoctorName    string    `gorm:"size:255;not null" json:"doctorName"`
	AppointmentID *string   `gorm:"size:36;index" json:"appointmentId,omitempty"`
	Subjective    string    `gorm:"type:text;not null" json:"subjective"`
	Objective     string    `gorm:"type:text;not null" json:"objective"`
	Assessment    string    `gorm:"type:text;not null" json:"assessment"`
	Plan          string    `gorm:"type:text;not null" json:"plan"`
}

// SOAP holds the four clinical sections of a note.
type SOAP struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// MissingSections lists the sections that are blank.
func (s SOAP) MissingSections() []string {
	var missing []string
	if strings.TrimSpace(s.Subjective) == "" {
		missing = append(missing, "subjective")
	}
	if strings.TrimSpace(s.Objective) == "" {
		missing = append(missing, "objective")
	}
	if strings.TrimSpace(s.Assessment) == "" {
		missing = append(missing, "assessment")
	}
	if strings.TrimSpace(s.Plan) == "" {
		missing = append(missing, "plan")
	}
	return missing
}

// SOAP returns the note's clinical sections.
func (r *MedicalRecord) SOAP() SOAP {
	return SOAP{
		Subjective: r.Subjective,
		Objective:  r.Objective,
		Assessment: r.Assessment,
		Plan:       r.Plan,
	}
}

// IsAuthor reports whether userID wrote the record.
func (r *MedicalRecord) IsAuthor(userID string) bool {
	return userID != "" && userID == r.DoctorID
}
