package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// gateFixture wires RequireAuth and RequirePermission in front of a
// protected route backed by mock repositories.
type gateFixture struct {
	e      *echo.Echo
	tokens *TokenManager
}

func newGateFixture(t *testing.T, users map[string]*User) *gateFixture {
	t.Helper()
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}
	roles := &mockRoleRepo{roles: []Role{
		{ID: "viewer", Slug: RoleViewer, IsSystem: true, Permissions: []Permission{PermUsersRead}},
		{ID: "triage", Slug: "triage", Permissions: []Permission{PermContactsRead, PermContactsUpdate}},
	}}
	tm := newTestTokens(t)
	svc := NewAuthService(repo, roles, &mockPermissionRepo{}, tm)

	e := newTestEcho()
	RegisterRoutes(e, NewHandler(svc, false), svc)
	g := e.Group("/api/admin", RequireAuth(svc))
	g.GET("/contacts", func(c echo.Context) error {
		return c.JSON(http.StatusOK, GetIdentity(c))
	}, RequirePermission(svc, PermContactsRead))

	return &gateFixture{e: e, tokens: tm}
}

func (f *gateFixture) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := f.tokens.Issue(&User{ID: userID})
	require.NoError(t, err)
	return tok
}

func (f *gateFixture) get(path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRequireAuth_NoToken(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.get("/api/admin/contacts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.TypeAuthenticationRequired, errorCode(t, rec))
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.get("/api/admin/contacts", bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.TypeInvalidToken, errorCode(t, rec))
}

func TestRequirePermission_DeniedWithoutPermission(t *testing.T) {
	f := newGateFixture(t, map[string]*User{
		"u1": {ID: "u1", Email: "v@f.dev", Roles: []string{"viewer"}, IsActive: true},
	})

	rec := f.get("/api/admin/contacts", bearer(f.token(t, "u1")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperror.TypeInsufficientPermission, errorCode(t, rec))
}

func TestRequirePermission_AllowedViaRole(t *testing.T) {
	f := newGateFixture(t, map[string]*User{
		"u2": {ID: "u2", Email: "t@f.dev", Roles: []string{"viewer", "triage"}, IsActive: true},
	})

	rec := f.get("/api/admin/contacts", bearer(f.token(t, "u2")))
	require.Equal(t, http.StatusOK, rec.Code)

	var id Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
	assert.Equal(t, Identity{UserID: "u2", Email: "t@f.dev", Roles: []string{"viewer", "triage"}}, id)
}

func TestRequireAuth_CookieTakesPrecedence(t *testing.T) {
	f := newGateFixture(t, map[string]*User{
		"u2": {ID: "u2", Roles: []string{"triage"}, IsActive: true},
	})
	valid := f.token(t, "u2")

	// Valid cookie, junk header: the cookie wins.
	rec := f.get("/api/admin/contacts", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: valid})
		r.Header.Set("Authorization", "Bearer junk")
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Junk cookie, valid header: still the cookie wins.
	rec = f.get("/api/admin/contacts", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "junk"})
		r.Header.Set("Authorization", "Bearer "+valid)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_ReturnsProfile(t *testing.T) {
	f := newGateFixture(t, map[string]*User{
		"u2": {ID: "u2", Email: "t@f.dev", Name: "Tess", Roles: []string{"triage"}, IsActive: true},
	})

	rec := f.get("/api/admin/auth", bearer(f.token(t, "u2")))
	require.Equal(t, http.StatusOK, rec.Code)

	var p Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Tess", p.Name)
	assert.ElementsMatch(t, []Permission{PermContactsRead, PermContactsUpdate}, p.Permissions)
}

func TestLoginHandler(t *testing.T) {
	hash := mustHash(t, "correct horse")
	users := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*User, error) {
			switch email {
			case "active@f.dev":
				return &User{ID: "u1", Email: email, Name: "A", PasswordHash: hash, IsActive: true}, nil
			case "inactive@f.dev":
				return &User{ID: "u2", Email: email, PasswordHash: hash, IsActive: false}, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}
	svc := NewAuthService(users, &mockRoleRepo{}, &mockPermissionRepo{}, newTestTokens(t))
	e := newTestEcho()
	RegisterRoutes(e, NewHandler(svc, false), svc)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/auth", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("active user", func(t *testing.T) {
		rec := post(`{"email":"active@f.dev","password":"correct horse"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "u1", resp.User.ID)
		assert.Empty(t, rec.Header().Values("Set-Cookie"), "login must not set cookies")
	})

	t.Run("inactive user", func(t *testing.T) {
		rec := post(`{"email":"inactive@f.dev","password":"correct horse"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := post(`{"email":"not-an-email"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperror.TypeValidationFailed, errorCode(t, rec))
	})
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newGateFixture(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/auth", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookieName+"=;")
}
