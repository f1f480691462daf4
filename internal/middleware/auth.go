package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/access"
	"healthcare-booking-server/internal/apperrors"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/utils"
)

const contextActor = "actor"

// TokenValidator parses bearer access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*utils.Claims, error)
}

// ActorResolver loads the persisted identity behind a token subject.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID string) (access.Actor, error)
}

// AuthMiddleware creates a middleware for JWT authentication. The role is
// always read back from storage so a stale token cannot carry a changed role.
func AuthMiddleware(tokens TokenValidator, actors ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, apperrors.Unauthenticated("authorization header required"))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.AbortWithError(c, apperrors.Unauthenticated("invalid authorization header format"))
			return
		}

		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			utils.AbortWithError(c, apperrors.Unauthenticated("invalid or expired token"))
			return
		}

		actor, err := actors.ResolveActor(c.Request.Context(), claims.UserID)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}

		c.Set(contextActor, actor)
		log := zerolog.Ctx(c.Request.Context()).With().Str("user_id", actor.ID).Logger()
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context()))

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		for _, role := range allowedRoles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		if actor.ID == "" {
			utils.AbortWithError(c, apperrors.Unauthenticated("authentication required"))
			return
		}
		utils.AbortWithError(c, apperrors.Forbidden("you do not have permission to access this resource"))
	}
}

// GetActor returns the authenticated actor, or the zero Actor when the
// request was not authenticated.
func GetActor(c *gin.Context) access.Actor {
	v, ok := c.Get(contextActor)
	if !ok {
		return access.Actor{}
	}
	actor, _ := v.(access.Actor)
	return actor
}
