package handlers

import (
	"github.com/gin-gonic/gin"

	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/utils"
)

// MedicalRecordHandler handles SOAP note requests.
type MedicalRecordHandler struct {
	records *services.RecordService
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(records *services.RecordService) *MedicalRecordHandler {
	return &MedicalRecordHandler{records: records}
}

// CreateMedicalRecordRequest represents the request body for a new record.
// Section completeness is checked by the record service.
type CreateMedicalRecordRequest struct {
	PatientID     string  `json:"patientId" validate:"required"`
	AppointmentID *string `json:"appointmentId"`
	Subjective    string  `json:"subjective"`
	Objective     string  `json:"objective"`
	Assessment    string  `json:"assessment"`
	Plan          string  `json:"plan"`
}

// CreateMedicalRecord adds a record authored by the calling doctor.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	rec, err := h.records.Add(c.Request.Context(), middleware.GetActor(c), services.NewRecord{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		SOAP: models.SOAP{
			Subjective: req.Subjective,
			Objective:  req.Objective,
			Assessment: req.Assessment,
			Plan:       req.Plan,
		},
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Medical record created successfully", rec)
}

// UpdateMedicalRecordRequest is a partial SOAP edit.
type UpdateMedicalRecordRequest struct {
	Subjective *string `json:"subjective"`
	Objective  *string `json:"objective"`
	Assessment *string `json:"assessment"`
	Plan       *string `json:"plan"`
}

// UpdateMedicalRecord edits a record. Only its author may do so.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	var req UpdateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	rec, err := h.records.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), services.RecordUpdate(req))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical record updated successfully", rec)
}

// GetMedicalRecordsForPatient lists a patient's records, newest first.
func (h *MedicalRecordHandler) GetMedicalRecordsForPatient(c *gin.Context) {
	list, err := h.records.ListForPatient(c.Request.Context(), middleware.GetActor(c), c.Param("patientId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical records fetched successfully", list)
}

// GetMedicalRecordByID returns one record.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	rec, err := h.records.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical record fetched successfully", rec)
}
