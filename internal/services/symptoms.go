package services

import (
	"context"
	"strings"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/models"
)

// DefaultSpecialty is suggested when no keyword matches.
const DefaultSpecialty = "General Medicine"

type symptomRule struct {
	keyword     string
	specialties []string
}

// symptomRules is matched in order, so the first suggestion is stable.
var symptomRules = []symptomRule{
	{"headache", []string{"Neurology", "General Medicine"}},
	{"skin rash", []string{"Dermatology", "Allergy and Immunology"}},
	{"chest pain", []string{"Cardiology", "Emergency Medicine"}},
	{"joint pain", []string{"Rheumatology", "Orthopedics"}},
	{"sore throat", []string{"ENT", "General Medicine"}},
	{"vision problems", []string{"Ophthalmology"}},
	{"stomach pain", []string{"Gastroenterology", "General Medicine"}},
	{"anxiety", []string{"Psychiatry", "Psychology"}},
	{"fever", []string{"General Medicine", "Infectious Disease"}},
	{"cough", []string{"Pulmonology", "ENT", "General Medicine"}},
	{"back pain", []string{"Orthopedics", "Neurology", "Physical Therapy"}},
	{"dizziness", []string{"Neurology", "ENT", "Cardiology"}},
}

// MatchSpecialties maps free-text symptoms to specialties by keyword. It is a
// routing aid for finding a doctor and makes no clinical judgement.
func MatchSpecialties(symptoms string) []string {
	text := strings.ToLower(symptoms)
	seen := make(map[string]bool)
	var out []string
	for _, rule := range symptomRules {
		if !strings.Contains(text, rule.keyword) {
			continue
		}
		for _, s := range rule.specialties {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		out = []string{DefaultSpecialty}
	}
	return out
}

// SymptomMatch is the result of a symptom check.
type SymptomMatch struct {
	Specialties []string               `json:"specialties"`
	Doctors     []models.UserSanitized `json:"doctors"`
}

type SymptomChecker struct {
	directory *DirectoryService
}

func NewSymptomChecker(directory *DirectoryService) *SymptomChecker {
	return &SymptomChecker{directory: directory}
}

// Check suggests specialties and the doctors practising them.
func (c *SymptomChecker) Check(ctx context.Context, actor access.Actor, symptoms string) (*SymptomMatch, error) {
	if err := access.Require(actor, ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(symptoms) == "" {
		return nil, apperrors.Validation("please describe your symptoms first")
	}

	specialties := MatchSpecialties(symptoms)
	doctors, err := c.directory.DoctorsWithSpecialization(ctx, specialties)
	if err != nil {
		return nil, err
	}
	return &SymptomMatch{Specialties: specialties, Doctors: doctors}, nil
}
