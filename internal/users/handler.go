package users

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitlabs/accounts-backend/internal/identity"
	"github.com/orbitlabs/accounts-backend/internal/membership"
	"github.com/orbitlabs/accounts-backend/internal/middleware"
	"github.com/orbitlabs/accounts-backend/pkg/response"
)

// Handler handles user resource endpoints.
type Handler struct {
	identity   *identity.Service
	membership *membership.Service
}

// NewHandler creates a users handler.
func NewHandler(identitySvc *identity.Service, membershipSvc *membership.Service) *Handler {
	return &Handler{identity: identitySvc, membership: membershipSvc}
}

// Get handles GET /api/users/:id. A record is visible only to users who share
// at least one organisation with the target (every user shares with themself
// through their default organisation); everyone else gets the same 404 as a
// missing user.
func (h *Handler) Get(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "User not found")
		return
	}
	principal := middleware.Principal(c)

	shared, err := h.membership.SharesOrganisation(c.Request.Context(), principal, targetID)
	if err != nil {
		response.Internal(c, "Internal server error")
		return
	}
	if !shared {
		response.NotFound(c, "User not found")
		return
	}

	target, err := h.identity.FindByID(c.Request.Context(), targetID)
	if err != nil {
		response.FromError(c, err, "User not found")
		return
	}
	response.OK(c, "User record retrieved", target.ToPublic())
}
