package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	scheduling *services.SchedulingService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(scheduling *services.SchedulingService) *AppointmentHandler {
	return &AppointmentHandler{scheduling: scheduling}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
// PatientID may be omitted when a patient books for themself.
type CreateAppointmentRequest struct {
	DoctorID  string    `json:"doctorId"`
	PatientID string    `json:"patientId"`
	DateTime  time.Time `json:"dateTime" validate:"required"`
	Notes     *string   `json:"notes"`
}

// CreateAppointment books a slot with a doctor.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	apt, err := h.scheduling.Create(c.Request.Context(), middleware.GetActor(c), services.NewAppointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		DateTime:  req.DateTime,
		Notes:     req.Notes,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment created successfully", apt)
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation(key + " must be an RFC 3339 timestamp")
	}
	return t, nil
}

// GetAppointmentsForUser lists the caller's appointments, newest first.
// Optional query filters: status, from, to.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	list, err := h.scheduling.List(c.Request.Context(), middleware.GetActor(c), services.ListOptions{
		Status: models.AppointmentStatus(c.Query("status")),
		From:   from,
		To:     to,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", list)
}

// GetAppointmentByID returns one appointment to a participant.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	apt, err := h.scheduling.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", apt)
}

// CancelAppointment cancels a scheduled appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	apt, err := h.scheduling.Cancel(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled", apt)
}

// outcomeError is the per-step error in a completion response.
type outcomeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newOutcomeError(err error) *outcomeError {
	if err == nil {
		return nil
	}
	return &outcomeError{Code: string(apperrors.KindOf(err)), Message: apperrors.PublicMessage(err)}
}

// CompletionResponse carries both outcomes of completing with a note.
type CompletionResponse struct {
	Appointment      *models.Appointment   `json:"appointment,omitempty"`
	AppointmentError *outcomeError         `json:"appointmentError,omitempty"`
	Record           *models.MedicalRecord `json:"record,omitempty"`
	RecordError      *outcomeError         `json:"recordError,omitempty"`
}

// CompleteAppointment marks an appointment completed. A SOAP body, when
// present, is saved as a record linked to the appointment. The two writes are
// independent; a partial result is reported with 207. When both fail the
// appointment error sets the status and both outcomes are in the body.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	var note models.SOAP
	if err := c.ShouldBindJSON(&note); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(c, apperrors.Validation("invalid request payload"))
		return
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)
	if note == (models.SOAP{}) {
		apt, err := h.scheduling.Complete(ctx, actor, c.Param("id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Success(c, "Appointment completed", apt)
		return
	}

	out, err := h.scheduling.CompleteWithRecord(ctx, actor, c.Param("id"), note)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	resp := CompletionResponse{
		Appointment:      out.Appointment,
		AppointmentError: newOutcomeError(out.AppointmentErr),
		Record:           out.Record,
		RecordError:      newOutcomeError(out.RecordErr),
	}
	switch {
	case out.AppointmentErr != nil && out.RecordErr != nil:
		utils.RespondErrorWithData(c, out.AppointmentErr, resp)
	case out.AppointmentErr != nil || out.RecordErr != nil:
		utils.MultiStatus(c, "Appointment completion partially succeeded", resp)
	default:
		utils.Success(c, "Appointment completed and record saved", resp)
	}
}

// PrescriptionRequest represents the request body for adding a prescription.
type PrescriptionRequest struct {
	Prescription string `json:"prescription" validate:"required"`
}

// AddPrescription sets the prescription text on an appointment.
func (h *AppointmentHandler) AddPrescription(c *gin.Context) {
	var req PrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	apt, err := h.scheduling.AddPrescription(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Prescription)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Prescription saved", apt)
}

// GetAvailability lists the day's slots for ?doctorId=&date=YYYY-MM-DD.
// date defaults to today in the clinic timezone.
func (h *AppointmentHandler) GetAvailability(c *gin.Context) {
	day := h.scheduling.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := h.scheduling.Template().ParseDay(raw)
		if err != nil {
			utils.RespondError(c, apperrors.Validation("date must be formatted YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	slots, err := h.scheduling.Availability(c.Request.Context(), middleware.GetActor(c), c.Query("doctorId"), day)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Availability fetched successfully", slots)
}

// GetNextAvailable returns the doctor's first open slot.
func (h *AppointmentHandler) GetNextAvailable(c *gin.Context) {
	slot, err := h.scheduling.NextAvailable(c.Request.Context(), middleware.GetActor(c), c.Query("doctorId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Next available slot found", slot)
}

// GetStats returns the caller's dashboard counters.
func (h *AppointmentHandler) GetStats(c *gin.Context) {
	stats, err := h.scheduling.Stats(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Stats fetched successfully", stats)
}
