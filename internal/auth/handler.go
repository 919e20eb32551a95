package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orbitlabs/accounts-backend/internal/identity"
	"github.com/orbitlabs/accounts-backend/internal/models"
	"github.com/orbitlabs/accounts-backend/pkg/queue"
	"github.com/orbitlabs/accounts-backend/pkg/response"
)

// RegisterRequest is the body for POST /auth/register. Validation happens in
// the identity service so every violated field is reported together.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenData is the auth success payload.
type TokenData struct {
	AccessToken string            `json:"accessToken"`
	ExpiresAt   time.Time         `json:"expiresAt"`
	User        models.UserPublic `json:"user"`
}

// WelcomeEnqueuer enqueues the post-registration welcome email job.
type WelcomeEnqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, payload queue.WelcomeEmailPayload) error
}

// Handler handles the public auth endpoints.
type Handler struct {
	identity *identity.Service
	tokens   *TokenService
	emails   WelcomeEnqueuer // nil disables welcome emails
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(identitySvc *identity.Service, tokens *TokenService, emails WelcomeEnqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{identity: identitySvc, tokens: tokens, emails: emails, logger: logger}
}

// Register handles POST /auth/register. On success the user and their default
// organisation exist together; on any failure neither does.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.UnprocessableEntity(c, "Registration unsuccessful", map[string][]string{
			"body": {"request body must be valid JSON"},
		})
		return
	}

	user, _, err := h.identity.Register(c.Request.Context(), identity.RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		response.FromError(c, err, "Registration unsuccessful")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	if h.emails != nil {
		if err := h.emails.EnqueueWelcomeEmail(c.Request.Context(), queue.WelcomeEmailPayload{
			UserID:    user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
		}); err != nil {
			h.logger.Warn("enqueue welcome email", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}

	response.Created(c, "Registration successful", TokenData{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user.ToPublic(),
	})
}

// Login handles POST /auth/login. Every failure is the same generic 401.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Unauthorized(c, "Invalid credentials")
		return
	}

	user, err := h.identity.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(c, err, "Authentication failed")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.OK(c, "Login successful", TokenData{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user.ToPublic(),
	})
}
