package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
	"healthcare-booking-server/internal/utils"
)

// TokenIssuer signs session tokens. *utils.TokenManager implements it.
type TokenIssuer interface {
	GenerateTokens(user *models.User) (accessToken, refreshToken string, err error)
	ValidateRefreshToken(token string) (*utils.Claims, error)
	RefreshTTL() time.Duration
}

// PatientSignup is the input for SignupPatient.
type PatientSignup struct {
	Name        string
	Email       string
	PhoneNumber string
	Password    string
}

// DoctorSignup is the input for SignupDoctor.
type DoctorSignup struct {
	PatientSignup
	Specialization string
	LicenseNumber  string
	HospitalKey    string
}

// Session is what a successful signup, login or refresh returns.
type Session struct {
	User         models.UserSanitized `json:"user"`
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	ExpiresAt    time.Time            `json:"refreshExpiresAt"`
}

// IdentityConfig configures an IdentityService.
type IdentityConfig struct {
	// HospitalKey is compared in constant time. Empty rejects every doctor signup.
	HospitalKey string
	Clock       Clock
}

type IdentityService struct {
	users       store.UserRepository
	tokens      store.RefreshTokenRepository
	issuer      TokenIssuer
	directory   *DirectoryService
	hospitalKey string
	now         Clock
	log         zerolog.Logger
}

// NewIdentityService wires the identity rules. directory may be nil; when set
// its doctor cache is dropped after every doctor signup.
func NewIdentityService(st store.Store, issuer TokenIssuer, directory *DirectoryService, cfg IdentityConfig, log zerolog.Logger) *IdentityService {
	return &IdentityService{
		users:       st,
		tokens:      st,
		issuer:      issuer,
		directory:   directory,
		hospitalKey: cfg.HospitalKey,
		now:         clockOrDefault(cfg.Clock),
		log:         log.With().Str("service", "identity").Logger(),
	}
}

func validateCommon(in PatientSignup) error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return apperrors.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	if !strings.Contains(in.Email, "@") {
		return apperrors.Validation("email is not a valid address")
	}
	if !models.ValidPhoneNumber(in.PhoneNumber) {
		return apperrors.Validation("phone number must be exactly 8 digits")
	}
	if problems := models.PasswordProblems(in.Password); len(problems) > 0 {
		return apperrors.Validation("password must be " + strings.Join(problems, ", "))
	}
	return nil
}

// SignupPatient registers a patient and opens a session.
func (s *IdentityService) SignupPatient(ctx context.Context, in PatientSignup) (*Session, error) {
	if err := validateCommon(in); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:        strings.TrimSpace(in.Name),
		Email:       models.NormalizeEmail(in.Email),
		PhoneNumber: in.PhoneNumber,
		Role:        models.RolePatient,
	}
	if err := s.create(ctx, user, in.Password); err != nil {
		return nil, err
	}
	return s.openSession(ctx, user)
}

// SignupDoctor registers a doctor. The hospital key is checked before
// anything else so an unprovisioned caller learns nothing about the other fields.
func (s *IdentityService) SignupDoctor(ctx context.Context, in DoctorSignup) (*Session, error) {
	if !s.hospitalKeyMatches(in.HospitalKey) {
		s.log.Warn().Msg("doctor signup rejected: invalid hospital key")
		return nil, apperrors.InvalidHospitalKey()
	}
	if err := validateCommon(in.PatientSignup); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Specialization) == "" {
		return nil, apperrors.Validation("missing required fields: specialization")
	}
	if !models.ValidLicenseNumber(in.LicenseNumber) {
		return nil, apperrors.Validation("license number must be two letters followed by four digits")
	}

	user := &models.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          models.NormalizeEmail(in.Email),
		PhoneNumber:    in.PhoneNumber,
		Role:           models.RoleDoctor,
		Specialization: strings.TrimSpace(in.Specialization),
		LicenseNumber:  strings.ToUpper(in.LicenseNumber),
	}
	if err := s.create(ctx, user, in.Password); err != nil {
		return nil, err
	}
	s.directory.InvalidateDoctors()
	return s.openSession(ctx, user)
}

func (s *IdentityService) hospitalKeyMatches(key string) bool {
	if s.hospitalKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.hospitalKey)) == 1
}

func (s *IdentityService) create(ctx context.Context, user *models.User, password string) error {
	if err := user.SetPassword(password); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return apperrors.EmailAlreadyExists()
		}
		return storeError(err, "user")
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return nil
}

// Login resolves credentials to exactly one user.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, storeError(err, "user")
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.InvalidCredentials()
	}
	return s.openSession(ctx, user)
}

// Refresh exchanges an active refresh token for a new session and revokes the old token.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.issuer.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid refresh token")
	}

	stored, err := s.tokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Unauthenticated("refresh token not found, expired, or revoked")
		}
		return nil, storeError(err, "refresh token")
	}
	if !stored.Active(s.now()) || stored.UserID != claims.UserID {
		return nil, apperrors.Unauthenticated("refresh token not found, expired, or revoked")
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Unauthenticated("user no longer exists")
		}
		return nil, storeError(err, "user")
	}

	// Revoke is conditional on the token still being active; a concurrent
	// refresh that revoked it first wins.
	if err := s.tokens.RevokeRefreshToken(ctx, stored.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Unauthenticated("refresh token not found, expired, or revoked")
		}
		return nil, storeError(err, "refresh token")
	}
	return s.openSession(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are not an error.
func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.tokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return storeError(err, "refresh token")
	}
	if stored.IsRevoked {
		return nil
	}
	if err := s.tokens.RevokeRefreshToken(ctx, stored.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeError(err, "refresh token")
	}
	return nil
}

// Profile returns the actor's own account.
func (s *IdentityService) Profile(ctx context.Context, actor access.Actor) (models.UserSanitized, error) {
	if err := access.Require(actor, ""); err != nil {
		return models.UserSanitized{}, err
	}
	user, err := s.users.GetUser(ctx, actor.ID)
	if err != nil {
		return models.UserSanitized{}, storeError(err, "user")
	}
	return user.Sanitize(), nil
}

// ResolveActor loads the persisted identity behind a token subject. The role
// comes from storage, not from the token.
func (s *IdentityService) ResolveActor(ctx context.Context, userID string) (access.Actor, error) {
	if userID == "" {
		return access.Actor{}, apperrors.Unauthenticated("authentication required")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return access.Actor{}, apperrors.Unauthenticated("user no longer exists")
		}
		return access.Actor{}, storeError(err, "user")
	}
	return access.Actor{ID: user.ID, Role: user.Role}, nil
}

func (s *IdentityService) openSession(ctx context.Context, user *models.User) (*Session, error) {
	accessToken, refreshToken, err := s.issuer.GenerateTokens(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	expiresAt := s.now().Add(s.issuer.RefreshTTL())
	if err := s.tokens.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, storeError(err, "refresh token")
	}

	return &Session{
		User:         user.Sanitize(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}
