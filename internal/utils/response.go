package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/apperrors"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// MultiStatus reports an operation whose parts succeeded independently.
func MultiStatus(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusMultiStatus, ResponseData{
		Status:  http.StatusMultiStatus,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}


// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound, apperrors.KindNoAvailability:
		return http.StatusNotFound
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindInvalidTransition, apperrors.KindDoctorDoubleBooked, apperrors.KindEmailAlreadyExists:
		return http.StatusConflict
	case apperrors.KindInvalidHospitalKey, apperrors.KindInvalidCredentials, apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err using the envelope. Internal causes are logged on the
// request logger and replaced with a generic message.
func RespondError(c *gin.Context, err error) {
	RespondErrorWithData(c, err, nil)
}

// RespondErrorWithData is RespondError with a data payload alongside the error.
func RespondErrorWithData(c *gin.Context, err error, data interface{}) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	}
	c.JSON(status, ResponseData{
		Status:  status,
		Message: "An error occurred",
		Data:    data,
		Error:   apperrors.PublicMessage(err),
		Code:    string(kind),
	})
}

// AbortWithError is RespondError for middleware.
func AbortWithError(c *gin.Context, err error) {
	RespondError(c, err)
	c.Abort()
}
