package handlers

import (
	"github.com/gin-gonic/gin"

	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/utils"
)

// UserHandler serves the doctor and patient directories.
type UserHandler struct {
	directory *services.DirectoryService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(directory *services.DirectoryService) *UserHandler {
	return &UserHandler{directory: directory}
}

// GetDoctors lists every doctor, for any authenticated user.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.directory.ListDoctors(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}

// GetPatients lists every patient. Doctor only.
func (h *UserHandler) GetPatients(c *gin.Context) {
	patients, err := h.directory.ListPatients(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patients fetched successfully", patients)
}

// GetPatientByID returns one patient. Doctor only.
func (h *UserHandler) GetPatientByID(c *gin.Context) {
	patient, err := h.directory.GetPatient(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patient fetched successfully", patient)
}
