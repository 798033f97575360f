package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intakeflow/internal/pkg/jwt"
	"intakeflow/internal/pkg/response"
)

const (
	ctxActorID = "actor_id"
	ctxRole    = "role"
)

// Actor resolves the caller from a bearer token. When required is false a
// request without an Authorization header passes through anonymously, but a
// malformed or invalid token is still rejected.
func Actor(tokens *jwt.Service, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxActorID, claims.ActorID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// ActorID returns the authenticated caller, or "" for anonymous requests.
func ActorID(c *gin.Context) string {
	return c.GetString(ctxActorID)
}
