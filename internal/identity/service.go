package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/orbitlabs/accounts-backend/internal/apperr"
	"github.com/orbitlabs/accounts-backend/internal/models"
	"github.com/orbitlabs/accounts-backend/pkg/utils"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RegisterParams are the inputs to Register.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
}

// Service implements registration, credential verification, and lookup over a
// Store. Plaintext passwords never leave this package.
type Service struct {
	store Store
}

// NewService creates an identity service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register validates all fields (reporting every violation together),
// hashes the password, and creates the user with their default organisation
// named "{firstName}'s Organisation" in one atomic storage call.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*models.User, *models.Organisation, error) {
	p.Email = NormalizeEmail(p.Email)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)

	ve := apperr.NewValidation()
	if p.FirstName == "" {
		ve.Add("firstName", "firstName is required")
	}
	if p.LastName == "" {
		ve.Add("lastName", "lastName is required")
	}
	if p.Email == "" {
		ve.Add("email", "email is required")
	} else if !emailRegex.MatchString(p.Email) {
		ve.Add("email", "email must be a valid email address")
	}
	if p.Password == "" {
		ve.Add("password", "password is required")
	}
	if ve.HasErrors() {
		return nil, nil, ve
	}

	hash, err := utils.HashPassword(p.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(p.Phone),
	}
	org, err := s.store.CreateWithDefaultOrganisation(ctx, u, fmt.Sprintf("%s's Organisation", p.FirstName))
	if err != nil {
		return nil, nil, err
	}
	return u, org, nil
}

// VerifyCredentials checks email and password. Unknown email and wrong
// password return the same generic error so accounts cannot be enumerated.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, &apperr.AuthenticationError{Message: "Invalid credentials"}
	}
	return u, nil
}

// FindByID returns the user or NotFoundError.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &apperr.NotFoundError{Resource: "User"}
	}
	return u, nil
}

// NormalizeEmail lower-cases and trims an email for use as the login key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
