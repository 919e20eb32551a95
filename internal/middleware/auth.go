package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitlabs/accounts-backend/internal/models"
	"github.com/orbitlabs/accounts-backend/pkg/response"
)

// ContextPrincipal is the gin context key for the authenticated user.
const ContextPrincipal = "principal"

// TokenValidator validates a bearer token and returns the bound user ID.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// PrincipalResolver resolves the validated user ID to a live User record;
// satisfied by the identity service.
type PrincipalResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate gates every protected route: it extracts the bearer token,
// validates it, and resolves the principal against the identity store, so a
// token for a user that no longer exists is rejected. All failure modes get
// the same 401; each request is evaluated fresh, nothing is cached.
func Authenticate(tokens TokenValidator, users PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Authentication failed")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Authentication failed")
			c.Abort()
			return
		}
		userID, err := tokens.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "Authentication failed")
			c.Abort()
			return
		}
		principal, err := users.FindByID(c.Request.Context(), userID)
		if err != nil || principal == nil {
			response.Unauthorized(c, "Authentication failed")
			c.Abort()
			return
		}
		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// Principal returns the authenticated user set by Authenticate.
func Principal(c *gin.Context) *models.User {
	return c.MustGet(ContextPrincipal).(*models.User)
}
