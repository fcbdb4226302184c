package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// --- Mock Repositories ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn          func(ctx context.Context, user *User) error
	findByIDFn        func(ctx context.Context, id string) (*User, error)
	findByEmailFn     func(ctx context.Context, email string) (*User, error)
	emailExistsFn     func(ctx context.Context, email string) (bool, error)
	updateLastLoginFn func(ctx context.Context, id string) error
	updatePasswordFn  func(ctx context.Context, id, passwordHash string) error
	listFn            func(ctx context.Context, offset, limit int) ([]User, int, error)
	updateFn          func(ctx context.Context, user *User) error
	deleteFn          func(ctx context.Context, id string) error
	pullRoleFn        func(ctx context.Context, roleID string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) PullRole(ctx context.Context, roleID string) error {
	if m.pullRoleFn != nil {
		return m.pullRoleFn(ctx, roleID)
	}
	return nil
}

// mockRoleRepo implements RoleRepository with an in-memory role list.
type mockRoleRepo struct {
	roles        []Role
	upserted     []string
	findByIDsErr error
}

func (m *mockRoleRepo) Create(_ context.Context, role *Role) error {
	m.roles = append(m.roles, *role)
	return nil
}

func (m *mockRoleRepo) FindByID(_ context.Context, id string) (*Role, error) {
	for i := range m.roles {
		if m.roles[i].ID == id {
			r := m.roles[i]
			return &r, nil
		}
	}
	return nil, apperror.NewNotFound("role not found")
}

func (m *mockRoleRepo) FindBySlug(_ context.Context, slug string) (*Role, error) {
	for i := range m.roles {
		if m.roles[i].Slug == slug {
			r := m.roles[i]
			return &r, nil
		}
	}
	return nil, apperror.NewNotFound("role not found")
}

func (m *mockRoleRepo) FindByIDs(_ context.Context, ids []string) ([]Role, error) {
	if m.findByIDsErr != nil {
		return nil, m.findByIDsErr
	}
	var out []Role
	for _, r := range m.roles {
		if slices.Contains(ids, r.ID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRoleRepo) List(context.Context) ([]Role, error) { return m.roles, nil }

func (m *mockRoleRepo) Update(context.Context, *Role) error { return nil }

func (m *mockRoleRepo) Delete(context.Context, string) error { return nil }

func (m *mockRoleRepo) UpsertSystem(_ context.Context, role *Role) error {
	role.ID = "role-" + role.Slug
	role.IsSystem = true
	m.upserted = append(m.upserted, role.Slug)
	return nil
}

func (m *mockRoleRepo) PullPermission(context.Context, Permission) error { return nil }

// mockPermissionRepo records seeded permissions.
type mockPermissionRepo struct {
	ensured []Permission
}

func (m *mockPermissionRepo) List(context.Context) ([]PermissionRecord, error) { return nil, nil }

func (m *mockPermissionRepo) FindByID(context.Context, string) (*PermissionRecord, error) {
	return nil, apperror.NewNotFound("permission not found")
}

func (m *mockPermissionRepo) FindBySlug(context.Context, Permission) (*PermissionRecord, error) {
	return nil, apperror.NewNotFound("permission not found")
}

func (m *mockPermissionRepo) Create(context.Context, *PermissionRecord) error { return nil }

func (m *mockPermissionRepo) Update(context.Context, *PermissionRecord) error { return nil }

func (m *mockPermissionRepo) Delete(context.Context, string) error { return nil }

func (m *mockPermissionRepo) EnsureExists(_ context.Context, rec PermissionRecord) error {
	m.ensured = append(m.ensured, rec.Slug)
	return nil
}

// --- Echo helpers ---

type testValidator struct{ v *validator.Validate }

func (tv *testValidator) Validate(i any) error {
	if err := tv.v.Struct(i); err != nil {
		return apperror.NewValidation("validation failed", map[string]string{"body": err.Error()})
	}
	return nil
}

// newTestEcho returns an Echo instance that renders AppErrors as JSON the
// same way the application error handler does.
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			_ = c.JSON(appErr.Code, appErr)
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, map[string]any{"error": he.Message})
			return
		}
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
	return e
}
