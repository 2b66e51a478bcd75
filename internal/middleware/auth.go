package middleware

import (
	"strings"

	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	IdentityIDKey    = "identity_id"
	IdentityEmailKey = "identity_email"
)

func Auth(jwtService *services.JWTService) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthenticated(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthenticated(c, "invalid authorization header format")
			return
		}

		claims, err := jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			unauthenticated(c, "invalid or expired token")
			return
		}

		c.Set(IdentityIDKey, claims.IdentityID)
		c.Set(IdentityEmailKey, claims.Email)

		c.Next()
	}
}

func GetIdentityID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(IdentityIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func GetIdentityEmail(c *drift.Context) string {
	if email, ok := c.Get(IdentityEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}

// GetSessionUser returns the authenticated user, or false when the request
// carried no valid token.
func GetSessionUser(c *drift.Context) (models.SessionUser, bool) {
	id := GetIdentityID(c)
	if id == uuid.Nil {
		return models.SessionUser{}, false
	}
	return models.SessionUser{ID: id, Email: GetIdentityEmail(c)}, true
}
