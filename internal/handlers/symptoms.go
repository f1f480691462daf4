package handlers

import (
	"github.com/gin-gonic/gin"

	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/utils"
)

type SymptomHandler struct {
	checker *services.SymptomChecker
}

func NewSymptomHandler(checker *services.SymptomChecker) *SymptomHandler {
	return &SymptomHandler{checker: checker}
}

type SymptomCheckRequest struct {
	Symptoms string `json:"symptoms"`
}

// CheckSymptoms suggests specialties and matching doctors for free text.
func (h *SymptomHandler) CheckSymptoms(c *gin.Context) {
	var req SymptomCheckRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	match, err := h.checker.Check(c.Request.Context(), middleware.GetActor(c), req.Symptoms)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Symptoms checked", match)
}
