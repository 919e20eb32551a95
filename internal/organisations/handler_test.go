package organisations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlabs/accounts-backend/internal/apperr"
	"github.com/orbitlabs/accounts-backend/internal/membership"
	"github.com/orbitlabs/accounts-backend/internal/middleware"
	"github.com/orbitlabs/accounts-backend/internal/models"
	"github.com/orbitlabs/accounts-backend/pkg/response"
)

// idTokenValidator treats the bearer token as the user ID, so tests can
// authenticate as any user without minting real JWTs.
type idTokenValidator struct{}

func (idTokenValidator) Validate(token string) (uuid.UUID, error) {
	return uuid.Parse(token)
}

type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.User
}

func (f *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, _ := f.GetByID(ctx, id)
	if u == nil {
		return nil, &apperr.NotFoundError{Resource: "User"}
	}
	return u, nil
}

func (f *memUsers) add(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

type memOrgStore struct {
	mu      sync.Mutex
	orgs    map[uuid.UUID]*models.Organisation
	members map[uuid.UUID]map[uuid.UUID]bool
}

func newMemOrgStore() *memOrgStore {
	return &memOrgStore{
		orgs:    make(map[uuid.UUID]*models.Organisation),
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *memOrgStore) CreateWithMember(ctx context.Context, org *models.Organisation, memberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org.ID = uuid.New()
	s.orgs[org.ID] = org
	s.members[org.ID] = map[uuid.UUID]bool{memberID: true}
	return nil
}

func (s *memOrgStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error) {
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

func (s *memOrgStore) GetForMember(ctx context.Context, orgID, userID uuid.UUID) (*models.Organisation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[orgID][userID] {
		return s.orgs[orgID], nil
	}
	return nil, nil
}

func (s *memOrgStore) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[orgID][userID], nil
}

func (s *memOrgStore) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[orgID] == nil {
		s.members[orgID] = make(map[uuid.UUID]bool)
	}
	s.members[orgID][userID] = true
	return nil
}

func (s *memOrgStore) ShareOrganisation(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, members := range s.members {
		if members[a] && members[b] {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	router *gin.Engine
	store  *memOrgStore
	users  *memUsers
	svc    *membership.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemOrgStore()
	users := &memUsers{byID: make(map[uuid.UUID]*models.User)}
	svc := membership.NewService(store, users)
	handler := NewHandler(svc)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.Authenticate(idTokenValidator{}, users))
	api.GET("/organisations", handler.List)
	api.POST("/organisations", handler.Create)
	api.GET("/organisations/:orgId", handler.Get)
	api.POST("/organisations/:orgId/users", handler.AddUser)

	return &fixture{router: router, store: store, users: users, svc: svc}
}

func (f *fixture) newUser(first string) *models.User {
	u := &models.User{ID: uuid.New(), FirstName: first, LastName: "Doe", Email: first + "@x.com"}
	f.users.add(u)
	return u
}

func (f *fixture) do(t *testing.T, as *models.User, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+as.ID.String())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestListReturnsOnlyCallersOrganisations(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.newUser("alice"), f.newUser("bob")
	aliceOrg, err := f.svc.Create(context.Background(), alice, "Alice Org", "")
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), bob, "Bob Org", "")
	require.NoError(t, err)

	rec, env := f.do(t, alice, http.MethodGet, "/api/organisations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]interface{})
	orgs := data["organisations"].([]interface{})
	require.Len(t, orgs, 1)
	assert.Equal(t, aliceOrg.ID.String(), orgs[0].(map[string]interface{})["orgId"])
}

func TestListEmptyIsAnEmptyArray(t *testing.T) {
	f := newFixture(t)
	alice := f.newUser("alice")

	rec, _ := f.do(t, alice, http.MethodGet, "/api/organisations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"organisations":[]`)
}

func TestGetOrganisationScoping(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.newUser("alice"), f.newUser("bob")
	org, err := f.svc.Create(context.Background(), alice, "Alice Org", "secret plans")
	require.NoError(t, err)

	rec, env := f.do(t, alice, http.MethodGet, "/api/organisations/"+org.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Organisation record retrieved", env.Message)

	// Non-member and nonexistent org responses must be byte-identical apart
	// from transport noise: same status, same body.
	recNonMember, _ := f.do(t, bob, http.MethodGet, "/api/organisations/"+org.ID.String(), nil)
	recMissing, _ := f.do(t, bob, http.MethodGet, "/api/organisations/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, recNonMember.Code)
	assert.Equal(t, http.StatusNotFound, recMissing.Code)
	assert.Equal(t, recMissing.Body.String(), recNonMember.Body.String())
}

func TestCreateOrganisation(t *testing.T) {
	f := newFixture(t)
	alice := f.newUser("alice")

	rec, env := f.do(t, alice, http.MethodPost, "/api/organisations", CreateRequest{Name: "Acme", Description: "widgets"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Organisation created successfully", env.Message)

	orgID := uuid.MustParse(env.Data.(map[string]interface{})["orgId"].(string))
	assert.True(t, f.store.members[orgID][alice.ID], "creator is auto-added as member")
}

func TestCreateOrganisationEmptyName(t *testing.T) {
	f := newFixture(t)
	alice := f.newUser("alice")

	rec, env := f.do(t, alice, http.MethodPost, "/api/organisations", CreateRequest{Name: "  "})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "name")
}

func TestAddUserToOrganisation(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := f.newUser("alice"), f.newUser("bob"), f.newUser("carol")
	org, err := f.svc.Create(context.Background(), alice, "Alice Org", "")
	require.NoError(t, err)

	path := "/api/organisations/" + org.ID.String() + "/users"

	// Non-member actor cannot add; the graph is unchanged.
	rec, _ := f.do(t, bob, http.MethodPost, path, AddUserRequest{UserID: carol.ID.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, f.store.members[org.ID], 1)

	// Member adds bob.
	rec, env := f.do(t, alice, http.MethodPost, path, AddUserRequest{UserID: bob.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User added to organisation successfully", env.Message)
	assert.True(t, f.store.members[org.ID][bob.ID])

	// Repeating the add is a no-op success.
	rec, _ = f.do(t, alice, http.MethodPost, path, AddUserRequest{UserID: bob.ID.String()})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown target user.
	rec, _ = f.do(t, alice, http.MethodPost, path, AddUserRequest{UserID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/organisations", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
