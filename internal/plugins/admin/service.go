package admin

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// roleSlugPattern restricts role slugs to lowercase words joined by dashes.
var roleSlugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// AdminService defines the business rules of the admin API. It works on
// the identity repositories owned by the auth plugin.
type AdminService interface {
	ListUsers(ctx context.Context, page, perPage int) (*UserPage, error)
	GetUser(ctx context.Context, id string) (*auth.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*auth.User, error)
	UpdateUser(ctx context.Context, actorID, id string, input UpdateUserInput) (*auth.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error

	ListRoles(ctx context.Context) ([]auth.Role, error)
	GetRole(ctx context.Context, id string) (*auth.Role, error)
	CreateRole(ctx context.Context, input CreateRoleInput) (*auth.Role, error)
	UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*auth.Role, error)
	DeleteRole(ctx context.Context, id string) error

	ListPermissions(ctx context.Context) ([]auth.PermissionRecord, error)
	GetPermission(ctx context.Context, id string) (*auth.PermissionRecord, error)
	CreatePermission(ctx context.Context, slug, name, module string) (*auth.PermissionRecord, error)
	UpdatePermission(ctx context.Context, id, name, module string) (*auth.PermissionRecord, error)
	DeletePermission(ctx context.Context, id string) error
}

type adminService struct {
	users auth.UserRepository
	roles auth.RoleRepository
	perms auth.PermissionRepository
}

// NewAdminService creates a new admin service.
func NewAdminService(users auth.UserRepository, roles auth.RoleRepository, perms auth.PermissionRepository) AdminService {
	return &adminService{users: users, roles: roles, perms: perms}
}

// --- Users ---

func (s *adminService) ListUsers(ctx context.Context, page, perPage int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	users, total, err := s.users.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if users == nil {
		users = []auth.User{}
	}
	return &UserPage{Users: users, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *adminService) GetUser(ctx context.Context, id string) (*auth.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *adminService) CreateUser(ctx context.Context, input CreateUserInput) (*auth.User, error) {
	roles, err := s.checkRoleIDs(ctx, input.Roles)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("a user with this email already exists")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &auth.User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Roles:        roles,
		IsActive:     input.IsActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("admin user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

func (s *adminService) UpdateUser(ctx context.Context, actorID, id string, input UpdateUserInput) (*auth.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			exists, err := s.users.EmailExists(ctx, email)
			if err != nil {
				return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
			}
			if exists {
				return nil, apperror.NewConflict("a user with this email already exists")
			}
			user.Email = email
		}
	}
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
		}
		user.PasswordHash = hash
	}
	if input.Roles != nil {
		roles, err := s.checkRoleIDs(ctx, *input.Roles)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}
	if input.IsActive != nil {
		// Deactivating yourself would lock you out mid-session.
		if !*input.IsActive && id == actorID {
			return nil, apperror.NewBadRequest("you cannot deactivate your own account")
		}
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("admin user updated",
		slog.String("user_id", user.ID),
		slog.String("by", actorID),
	)
	return user, nil
}

// DeleteUser removes a user. Super-admins can never be deleted through the
// API, and nobody can delete their own account.
func (s *adminService) DeleteUser(ctx context.Context, actorID, id string) error {
	if id == actorID {
		return apperror.NewBadRequest("you cannot delete your own account")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	superAdmin, err := s.roles.FindBySlug(ctx, auth.RoleSuperAdmin)
	if err != nil && !apperror.IsNotFound(err) {
		return apperror.NewInternal(fmt.Errorf("loading super-admin role: %w", err))
	}
	if superAdmin != nil && slices.Contains(user.Roles, superAdmin.ID) {
		return apperror.NewForbidden("super-admin users cannot be deleted")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("admin user deleted",
		slog.String("user_id", id),
		slog.String("by", actorID),
	)
	return nil
}

// checkRoleIDs verifies every ID names an existing role and returns the
// deduplicated list.
func (s *adminService) checkRoleIDs(ctx context.Context, ids []string) ([]string, error) {
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return unique, nil
	}

	found, err := s.roles.FindByIDs(ctx, unique)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading roles: %w", err))
	}
	if len(found) != len(unique) {
		missing := []string{}
		for _, id := range unique {
			if !slices.ContainsFunc(found, func(r auth.Role) bool { return r.ID == id }) {
				missing = append(missing, id)
			}
		}
		return nil, apperror.NewValidation("unknown roles", map[string]string{
			"roles": "unknown role ids: " + strings.Join(missing, ", "),
		})
	}
	return unique, nil
}

// --- Roles ---

func (s *adminService) ListRoles(ctx context.Context) ([]auth.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if roles == nil {
		roles = []auth.Role{}
	}
	return roles, nil
}

func (s *adminService) GetRole(ctx context.Context, id string) (*auth.Role, error) {
	return s.roles.FindByID(ctx, id)
}

func (s *adminService) CreateRole(ctx context.Context, input CreateRoleInput) (*auth.Role, error) {
	slug := strings.TrimSpace(input.Slug)
	if !roleSlugPattern.MatchString(slug) {
		return nil, apperror.NewValidation("invalid role", map[string]string{
			"slug": "must be lowercase letters, digits and dashes",
		})
	}
	if slug == auth.RoleSuperAdmin || slug == auth.RoleViewer {
		return nil, apperror.NewForbidden("system role slugs are reserved")
	}

	perms, err := parsePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	role := &auth.Role{
		Slug:        slug,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Permissions: perms,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}

	slog.Info("role created", slog.String("role_id", role.ID), slog.String("slug", role.Slug))
	return role, nil
}

// UpdateRole edits a non-system role.
func (s *adminService) UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*auth.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, apperror.NewForbidden("system roles cannot be modified")
	}

	if input.Name != nil {
		role.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		role.Description = strings.TrimSpace(*input.Description)
	}
	if input.Permissions != nil {
		perms, err := parsePermissions(*input.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = perms
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}

	slog.Info("role updated", slog.String("role_id", role.ID))
	return role, nil
}

// DeleteRole removes a non-system role and unassigns it from every user.
func (s *adminService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return apperror.NewForbidden("system roles cannot be deleted")
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.users.PullRole(ctx, id); err != nil {
		return apperror.NewInternal(err)
	}

	slog.Info("role deleted", slog.String("role_id", id), slog.String("slug", role.Slug))
	return nil
}

func parsePermissions(raw []string) ([]auth.Permission, error) {
	perms, unknown := auth.ParsePermissions(raw)
	if len(unknown) > 0 {
		return nil, apperror.NewValidation("unknown permissions", map[string]string{
			"permissions": "unknown permission slugs: " + strings.Join(unknown, ", "),
		})
	}
	return perms, nil
}

// --- Permissions ---

func (s *adminService) ListPermissions(ctx context.Context) ([]auth.PermissionRecord, error) {
	recs, err := s.perms.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if recs == nil {
		recs = []auth.PermissionRecord{}
	}
	return recs, nil
}

func (s *adminService) GetPermission(ctx context.Context, id string) (*auth.PermissionRecord, error) {
	return s.perms.FindByID(ctx, id)
}

// CreatePermission stores a record for a catalog slug that is not stored
// yet. Name and module default to the catalog values.
func (s *adminService) CreatePermission(ctx context.Context, slug, name, module string) (*auth.PermissionRecord, error) {
	info, ok := auth.LookupPermission(strings.TrimSpace(slug))
	if !ok {
		return nil, apperror.NewValidation("unknown permission", map[string]string{
			"slug": "must be one of the built-in permissions",
		})
	}

	rec := &auth.PermissionRecord{Slug: info.Slug, Name: info.Name, Module: info.Module}
	if name = strings.TrimSpace(name); name != "" {
		rec.Name = name
	}
	if module = strings.TrimSpace(module); module != "" {
		rec.Module = module
	}
	if err := s.perms.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *adminService) UpdatePermission(ctx context.Context, id, name, module string) (*auth.PermissionRecord, error) {
	rec, err := s.perms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Name = strings.TrimSpace(name)
	rec.Module = strings.TrimSpace(module)
	if err := s.perms.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeletePermission removes the record and revokes the slug from every
// non-system role. System roles are reseeded from the catalog on startup.
func (s *adminService) DeletePermission(ctx context.Context, id string) error {
	rec, err := s.perms.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.perms.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.roles.PullPermission(ctx, rec.Slug); err != nil {
		return apperror.NewInternal(err)
	}

	slog.Info("permission deleted", slog.String("slug", string(rec.Slug)))
	return nil
}
