package membership

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlabs/accounts-backend/internal/apperr"
	"github.com/orbitlabs/accounts-backend/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	orgs    map[uuid.UUID]*models.Organisation
	members map[uuid.UUID]map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		orgs:    make(map[uuid.UUID]*models.Organisation),
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *memStore) CreateWithMember(ctx context.Context, org *models.Organisation, memberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org.ID = uuid.New()
	s.orgs[org.ID] = org
	s.members[org.ID] = map[uuid.UUID]bool{memberID: true}
	return nil
}

func (s *memStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*models.Organisation
	for orgID, members := range s.members {
		if members[userID] {
			list = append(list, s.orgs[orgID])
		}
	}
	return list, nil
}

func (s *memStore) GetForMember(ctx context.Context, orgID, userID uuid.UUID) (*models.Organisation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[orgID][userID] {
		return s.orgs[orgID], nil
	}
	return nil, nil
}

func (s *memStore) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[orgID][userID], nil
}

func (s *memStore) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[orgID] == nil {
		s.members[orgID] = make(map[uuid.UUID]bool)
	}
	s.members[orgID][userID] = true
	return nil
}

func (s *memStore) ShareOrganisation(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, members := range s.members {
		if members[a] && members[b] {
			return true, nil
		}
	}
	return false, nil
}

type memUsers struct {
	byID map[uuid.UUID]*models.User
}

func (f *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.byID[id], nil
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), FirstName: "John", LastName: "Doe", Email: "john@x.com"}
}

func TestCreateValidatesName(t *testing.T) {
	svc := NewService(newMemStore(), &memUsers{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.Create(context.Background(), testUser(), "   ", "")
	require.Error(t, err)
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")
}

func TestCreateAddsCreatorAsMember(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &memUsers{byID: map[uuid.UUID]*models.User{}})
	creator := testUser()

	org, err := svc.Create(context.Background(), creator, "Acme", "widgets")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.True(t, store.members[org.ID][creator.ID])
}

func TestListForReturnsOnlyMemberOrganisations(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &memUsers{byID: map[uuid.UUID]*models.User{}})
	alice, bob := testUser(), testUser()

	aliceOrg, err := svc.Create(context.Background(), alice, "Alice Org", "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), bob, "Bob Org", "")
	require.NoError(t, err)

	orgs, err := svc.ListFor(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, aliceOrg.ID, orgs[0].ID)
}

func TestGetIfMemberHidesExistence(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &memUsers{byID: map[uuid.UUID]*models.User{}})
	alice, bob := testUser(), testUser()

	org, err := svc.Create(context.Background(), alice, "Alice Org", "")
	require.NoError(t, err)

	got, err := svc.GetIfMember(context.Background(), org.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	// An existing org the principal is not in and a missing org must be the
	// same error.
	_, errNonMember := svc.GetIfMember(context.Background(), org.ID, bob)
	_, errMissing := svc.GetIfMember(context.Background(), uuid.New(), bob)
	require.Error(t, errNonMember)
	require.Error(t, errMissing)
	assert.True(t, apperr.IsNotFound(errNonMember))
	assert.Equal(t, errNonMember.Error(), errMissing.Error())
}

func TestAddMember(t *testing.T) {
	store := newMemStore()
	alice, bob, carol := testUser(), testUser(), testUser()
	users := &memUsers{byID: map[uuid.UUID]*models.User{
		alice.ID: alice, bob.ID: bob, carol.ID: carol,
	}}
	svc := NewService(store, users)

	org, err := svc.Create(context.Background(), alice, "Alice Org", "")
	require.NoError(t, err)

	// Non-member actor gets a 404-shaped error and the graph stays unchanged.
	err = svc.AddMember(context.Background(), org.ID, bob, carol.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Len(t, store.members[org.ID], 1)

	// Unknown target.
	err = svc.AddMember(context.Background(), org.ID, alice, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	// Member adds; repeat is a no-op success.
	require.NoError(t, svc.AddMember(context.Background(), org.ID, alice, bob.ID))
	require.NoError(t, svc.AddMember(context.Background(), org.ID, alice, bob.ID))
	assert.Len(t, store.members[org.ID], 2)
}

func TestSharesOrganisation(t *testing.T) {
	store := newMemStore()
	alice, bob := testUser(), testUser()
	users := &memUsers{byID: map[uuid.UUID]*models.User{alice.ID: alice, bob.ID: bob}}
	svc := NewService(store, users)

	org, err := svc.Create(context.Background(), alice, "Alice Org", "")
	require.NoError(t, err)

	shared, err := svc.SharesOrganisation(context.Background(), alice, alice.ID)
	require.NoError(t, err)
	assert.True(t, shared, "a member shares with themself")

	shared, err = svc.SharesOrganisation(context.Background(), alice, bob.ID)
	require.NoError(t, err)
	assert.False(t, shared)

	require.NoError(t, svc.AddMember(context.Background(), org.ID, alice, bob.ID))
	shared, err = svc.SharesOrganisation(context.Background(), alice, bob.ID)
	require.NoError(t, err)
	assert.True(t, shared)
}
