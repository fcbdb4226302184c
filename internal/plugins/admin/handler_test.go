package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

type testValidator struct{ v *validator.Validate }

func (tv *testValidator) Validate(i any) error {
	if err := tv.v.Struct(i); err != nil {
		return apperror.NewValidation("validation failed", map[string]string{"body": err.Error()})
	}
	return nil
}

type apiFixture struct {
	*fixture
	e      *echo.Echo
	tokens *auth.TokenManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := newFixture()
	tm, err := auth.NewTokenManager("admin-handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	authSvc := auth.NewAuthService(f.users, f.roles, f.perms, tm)

	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			_ = c.JSON(appErr.Code, appErr)
			return
		}
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	RegisterRoutes(e, NewHandler(f.svc), authSvc, nil)

	return &apiFixture{fixture: f, e: e, tokens: tm}
}

func (f *apiFixture) do(t *testing.T, method, path, asUser, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if asUser != "" {
		u, err := f.users.FindByID(req.Context(), asUser)
		require.NoError(t, err)
		token, err := f.tokens.Issue(u)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAPI_SystemRoleMutationForbiddenEvenForSuperAdmin(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, http.MethodPut, "/api/admin/roles/role-super-admin", "root", `{"name":"Hacked"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperror.TypeForbidden, body["code"])

	rec, _ = f.do(t, http.MethodDelete, "/api/admin/roles/role-viewer", "root", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_MissingPermission(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/admin/users", "alice", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperror.TypeInsufficientPermission, body["code"])
}

func TestAPI_Unauthenticated(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/admin/roles", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.TypeAuthenticationRequired, body["code"])
}

func TestAPI_DeleteSuperAdminUser(t *testing.T) {
	f := newAPIFixture(t)

	// Root deleting itself is a bad request; deleting another super-admin
	// is forbidden.
	rec, _ := f.do(t, http.MethodDelete, "/api/admin/users/root", "root", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.users.byID["ops"] = &auth.User{ID: "ops", Email: "ops@forgepoint.dev", Roles: []string{"role-super-admin"}, IsActive: true}
	rec, _ = f.do(t, http.MethodDelete, "/api/admin/users/root", "ops", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/api/admin/users/alice", "root", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_CreateUserValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.roles.byID["role-super-admin"].Permissions = append(f.roles.byID["role-super-admin"].Permissions, auth.PermUsersCreate)

	rec, body := f.do(t, http.MethodPost, "/api/admin/users", "root", `{"email":"bad","name":"B","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.TypeValidationFailed, body["code"])

	rec, body = f.do(t, http.MethodPost, "/api/admin/users", "root", `{"email":"new@forgepoint.dev","name":"Newbie","password":"long-enough-pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "new@forgepoint.dev", body["email"])
	assert.Equal(t, true, body["isActive"])
	assert.NotContains(t, body, "passwordHash")
}

func TestAPI_RoleNotFound(t *testing.T) {
	f := newAPIFixture(t)
	f.roles.byID["role-super-admin"].Permissions = append(f.roles.byID["role-super-admin"].Permissions, auth.PermRolesRead)

	rec, body := f.do(t, http.MethodGet, "/api/admin/roles/nope", "root", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.TypeNotFound, body["code"])
}
