package membership

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/orbitlabs/accounts-backend/internal/apperr"
	"github.com/orbitlabs/accounts-backend/internal/models"
)

// UserFinder resolves user IDs; satisfied by the identity store. Returns
// (nil, nil) when the user does not exist.
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service enforces membership scoping over a Store. Every organisation read
// and write goes through membership-aware accessors here; nothing fetches an
// organisation by ID and checks membership afterwards.
type Service struct {
	store Store
	users UserFinder
}

// NewService creates a membership service.
func NewService(store Store, users UserFinder) *Service {
	return &Service{store: store, users: users}
}

// Create validates the name, creates the organisation, and adds the creator
// as its first member.
func (s *Service) Create(ctx context.Context, creator *models.User, name, description string) (*models.Organisation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		ve := apperr.NewValidation()
		ve.Add("name", "name is required")
		return nil, ve
	}
	org := &models.Organisation{Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.CreateWithMember(ctx, org, creator.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// ListFor returns exactly the organisations the principal is a member of.
func (s *Service) ListFor(ctx context.Context, principal *models.User) ([]*models.Organisation, error) {
	return s.store.ListForUser(ctx, principal.ID)
}

// GetIfMember returns the organisation only when the principal is a member.
// A missing organisation and a non-member principal both get NotFoundError,
// so non-members cannot learn whether an organisation exists.
func (s *Service) GetIfMember(ctx context.Context, orgID uuid.UUID, principal *models.User) (*models.Organisation, error) {
	org, err := s.store.GetForMember(ctx, orgID, principal.ID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &apperr.NotFoundError{Resource: "Organisation"}
	}
	return org, nil
}

// AddMember adds targetUserID to the organisation. Only an existing member
// may add users; a non-member actor gets the same NotFoundError as a missing
// organisation. Adding a user who is already a member is a no-op success.
func (s *Service) AddMember(ctx context.Context, orgID uuid.UUID, actor *models.User, targetUserID uuid.UUID) error {
	member, err := s.store.IsMember(ctx, orgID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return &apperr.NotFoundError{Resource: "Organisation"}
	}
	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return &apperr.NotFoundError{Resource: "User"}
	}
	return s.store.AddMember(ctx, orgID, target.ID)
}

// SharesOrganisation reports whether the principal shares at least one
// organisation with the target user (true when principal == target, since
// every user is a member of their default organisation).
func (s *Service) SharesOrganisation(ctx context.Context, principal *models.User, targetUserID uuid.UUID) (bool, error) {
	return s.store.ShareOrganisation(ctx, principal.ID, targetUserID)
}
