package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles signup, login and session requests.
type AuthHandler struct {
	identity *services.IdentityService
	cfg      *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity *services.IdentityService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{identity: identity, cfg: cfg}
}

// PatientSignupRequest represents the request body for patient signup.
type PatientSignupRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone8"`
	Password    string `json:"password" validate:"required,strongpassword"`
}

// DoctorSignupRequest is validated by the identity service, which checks the
// hospital key before any other field.
type DoctorSignupRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	Password       string `json:"password"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"licenseNumber"`
	HospitalKey    string `json:"hospitalKey"`
}

// SignupPatient handles patient registration.
func (h *AuthHandler) SignupPatient(c *gin.Context) {
	var req PatientSignupRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, err := h.identity.SignupPatient(c.Request.Context(), services.PatientSignup(req))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setRefreshCookie(c, session)
	utils.Created(c, "Patient registered successfully", session)
}

// SignupDoctor handles doctor registration.
func (h *AuthHandler) SignupDoctor(c *gin.Context) {
	var req DoctorSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, apperrors.Validation("invalid request payload"))
		return
	}

	session, err := h.identity.SignupDoctor(c.Request.Context(), services.DoctorSignup{
		PatientSignup: services.PatientSignup{
			Name:        req.Name,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			Password:    req.Password,
		},
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
		HospitalKey:    req.HospitalKey,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setRefreshCookie(c, session)
	utils.Created(c, "Doctor registered successfully", session)
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setRefreshCookie(c, session)
	utils.Success(c, "Login successful", session)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshTokenFrom prefers the HTTP-only cookie and falls back to the body.
func refreshTokenFrom(c *gin.Context) (string, error) {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		return token, nil
	}
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", apperrors.Validation("invalid request payload")
	}
	if req.RefreshToken == "" {
		return "", apperrors.Validation("refresh token is required")
	}
	return req.RefreshToken, nil
}

// RefreshToken rotates the refresh token and issues a new access token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := refreshTokenFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	session, err := h.identity.Refresh(c.Request.Context(), token)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setRefreshCookie(c, session)
	utils.Success(c, "Access token refreshed successfully", session)
}

// Logout revokes the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := refreshTokenFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.identity.Logout(c.Request.Context(), token); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.SetCookie(refreshCookie, "", -1, "/", "", h.secureCookies(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	profile, err := h.identity.Profile(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", profile)
}

func (h *AuthHandler) secureCookies() bool {
	return h.cfg.Environment != "development" && h.cfg.Environment != "test"
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, session *services.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = h.cfg.JWTRefreshExpirationHours * 60 * 60
	}
	c.SetCookie(refreshCookie, session.RefreshToken, maxAge, "/", "", h.secureCookies(), true)
}
