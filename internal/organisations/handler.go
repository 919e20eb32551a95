package organisations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitlabs/accounts-backend/internal/membership"
	"github.com/orbitlabs/accounts-backend/internal/middleware"
	"github.com/orbitlabs/accounts-backend/internal/models"
	"github.com/orbitlabs/accounts-backend/pkg/response"
)

// Handler handles organisation endpoints. All routes sit behind the
// authentication middleware; membership scoping is done by the membership
// service, never here.
type Handler struct {
	membership *membership.Service
}

// NewHandler creates an organisations handler.
func NewHandler(membershipSvc *membership.Service) *Handler {
	return &Handler{membership: membershipSvc}
}

// CreateRequest is the body for POST /api/organisations.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AddUserRequest is the body for POST /api/organisations/:orgId/users.
type AddUserRequest struct {
	UserID string `json:"userId"`
}

// List handles GET /api/organisations: only the caller's organisations.
func (h *Handler) List(c *gin.Context) {
	principal := middleware.Principal(c)
	orgs, err := h.membership.ListFor(c.Request.Context(), principal)
	if err != nil {
		response.Internal(c, "Internal server error")
		return
	}
	if orgs == nil {
		orgs = []*models.Organisation{}
	}
	response.OK(c, "Organisations retrieved", gin.H{"organisations": orgs})
}

// Get handles GET /api/organisations/:orgId. Non-members get the same 404
// whether the organisation exists or not.
func (h *Handler) Get(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		response.NotFound(c, "Organisation not found")
		return
	}
	principal := middleware.Principal(c)
	org, err := h.membership.GetIfMember(c.Request.Context(), orgID, principal)
	if err != nil {
		response.FromError(c, err, "Organisation not found")
		return
	}
	response.OK(c, "Organisation record retrieved", org)
}

// Create handles POST /api/organisations. The creator becomes the first
// member.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.UnprocessableEntity(c, "Client error", map[string][]string{
			"body": {"request body must be valid JSON"},
		})
		return
	}
	principal := middleware.Principal(c)
	org, err := h.membership.Create(c.Request.Context(), principal, req.Name, req.Description)
	if err != nil {
		response.FromError(c, err, "Client error")
		return
	}
	response.Created(c, "Organisation created successfully", org)
}

// AddUser handles POST /api/organisations/:orgId/users. Only members may add
// users; non-members and missing organisations or users all surface 404.
func (h *Handler) AddUser(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		response.NotFound(c, "Organisation not found")
		return
	}
	var req AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.NotFound(c, "User not found")
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.NotFound(c, "User not found")
		return
	}
	principal := middleware.Principal(c)
	if err := h.membership.AddMember(c.Request.Context(), orgID, principal, targetID); err != nil {
		response.FromError(c, err, "User not found")
		return
	}
	response.OK(c, "User added to organisation successfully", nil)
}
