package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
	_ "github.com/taskforge/taskforge/testing"
)

type stubRepo struct {
	users   map[string]*auth.User
	orgs    map[int64]*auth.Organization
	created []auth.NewUser
	findErr error
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindOrganization(ctx context.Context, id int64) (*auth.Organization, error) {
	if o, ok := s.orgs[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateUser(ctx context.Context, input auth.NewUser) (*auth.User, error) {
	s.created = append(s.created, input)
	return &auth.User{ID: int64(100 + len(s.created)), Email: input.Email, Name: input.Name, Role: input.Role, OrgID: input.OrgID}, nil
}

type fixture struct {
	router http.Handler
	issuer *auth.TokenIssuer
	repo   *stubRepo
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	parent := int64(1)
	repo := &stubRepo{
		users: map[string]*auth.User{
			"owner@test.local":  {ID: 1, Email: "owner@test.local", PasswordHash: string(hash), Role: rbac.RoleOwner, OrgID: 2, ParentOrgID: &parent},
			"viewer@test.local": {ID: 3, Email: "viewer@test.local", PasswordHash: string(hash), Role: rbac.RoleViewer, OrgID: 2, ParentOrgID: &parent},
		},
		orgs: map[int64]*auth.Organization{2: {ID: 2, Name: "Child", ParentID: &parent}},
	}
	mr := miniredis.RunT(t)
	denylist := auth.NewRedisDenylist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	issuer, err := auth.NewTokenIssuer("test-secret", "taskforge", time.Hour)
	require.NoError(t, err)

	handler := auth.NewHandler(nil, auth.NewService(repo, issuer, denylist), auth.NewAuthenticator(issuer, denylist, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return fixture{router: r, issuer: issuer, repo: repo, redis: mr}
}

func (f fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f fixture) login(t *testing.T, email string) string {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"correctpass"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestLoginIssuesTokenWithParentOrganization(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "owner@test.local")

	claims, err := f.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.Sub)
	assert.Equal(t, "OWNER", claims.Role)
	assert.Equal(t, int64(2), claims.OrganizationID)
	require.NotNil(t, claims.ParentOrganizationID)
	assert.Equal(t, int64(1), *claims.ParentOrganizationID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)

	wrongPass := f.do(t, http.MethodPost, "/auth/login", `{"email":"owner@test.local","password":"wrongpass"}`, "")
	unknown := f.do(t, http.MethodPost, "/auth/login", `{"email":"nobody@test.local","password":"correctpass"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
}

func TestLoginRepositoryFailureIsServerError(t *testing.T) {
	f := newFixture(t)
	f.repo.findErr = errors.New("pg: connection refused")

	rr := f.do(t, http.MethodPost, "/auth/login", `{"email":"owner@test.local","password":"correctpass"}`, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMeReturnsProfile(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "owner@test.local")

	rr := f.do(t, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":1,"email":"owner@test.local","orgId":2,"role":"OWNER"}`, rr.Body.String())
}

func TestMeRequiresToken(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "owner@test.local")

	rr := f.do(t, http.MethodPost, "/auth/logout", "", token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodGet, "/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRevocationLookupFailureIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "owner@test.local")
	f.redis.Close()

	rr := f.do(t, http.MethodGet, "/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterRequiresPrivilegedRole(t *testing.T) {
	f := newFixture(t)
	body := `{"email":"new@test.local","password":"longenough","name":"New","role":"VIEWER","organizationId":2}`

	viewer := f.login(t, "viewer@test.local")
	rr := f.do(t, http.MethodPost, "/auth/register", body, viewer)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, f.repo.created)

	owner := f.login(t, "owner@test.local")
	rr = f.do(t, http.MethodPost, "/auth/register", body, owner)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, f.repo.created, 1)
	assert.Equal(t, rbac.RoleViewer, f.repo.created[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.repo.created[0].PasswordHash), []byte("longenough")))
}

func TestRegisterConflictsAndUnknownOrganization(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "owner@test.local")

	rr := f.do(t, http.MethodPost, "/auth/register", `{"email":"viewer@test.local","password":"longenough","name":"Dup","role":"VIEWER","organizationId":2}`, owner)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/register", `{"email":"x@test.local","password":"longenough","name":"X","role":"ADMIN","organizationId":42}`, owner)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/register", `{"email":"y@test.local","password":"short","name":"Y","role":"ADMIN","organizationId":2}`, owner)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
