package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// invalidCredentialsMessage is returned for every failed login so callers
// cannot tell which emails exist.
const invalidCredentialsMessage = "Invalid email or password"

// AuthService defines the business logic contract for authentication and
// authorization. Handlers and middleware call these methods -- they never
// touch the repositories directly.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*LoginResponse, error)

	// Authenticate verifies token and loads its active user.
	Authenticate(ctx context.Context, token string) (*User, error)

	// Authorize checks that user's roles grant every required permission.
	Authorize(ctx context.Context, user *User, required []Permission) error

	// ResolvePermissions returns the deduplicated union of the permissions
	// granted by roleIDs.
	ResolvePermissions(ctx context.Context, roleIDs []string) ([]Permission, error)

	Profile(ctx context.Context, user *User) (*Profile, error)

	// Seed upserts the permission catalog and system roles, and creates the
	// bootstrap administrator when configured. It is idempotent.
	Seed(ctx context.Context, bootstrap BootstrapInput) error
}

// authService implements AuthService on top of the identity repositories.
type authService struct {
	users  UserRepository
	roles  RoleRepository
	perms  PermissionRepository
	tokens *TokenManager
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(users UserRepository, roles RoleRepository, perms PermissionRepository, tokens *TokenManager) AuthService {
	return &authService{users: users, roles: roles, perms: perms, tokens: tokens}
}

// Login authenticates a user by email and password and issues an identity
// token. Inactive accounts are refused even with the right password.
func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			checkPassword(input.Password, dummyHash())
			return nil, apperror.NewUnauthorized(invalidCredentialsMessage)
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !checkPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized(invalidCredentialsMessage)
	}
	if !user.IsActive {
		slog.Warn("login refused for inactive user", slog.String("user_id", user.ID))
		return nil, apperror.NewUnauthorized("Account is disabled")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	// Non-critical bookkeeping: failures are logged, login still succeeds.
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	if needsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, input.Password)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &LoginResponse{Token: token, User: user.Summary()}, nil
}

// upgradeHash replaces a legacy bcrypt hash with argon2id after a
// successful login.
func (s *authService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := hashPassword(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		slog.Warn("failed to upgrade password hash",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// Authenticate verifies the token signature and expiry, then loads the user
// it names. A user that no longer exists or has been deactivated makes the
// token invalid.
func (s *authService) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewInvalidToken()
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading user: %w", err))
	}
	if !user.IsActive {
		return nil, apperror.NewInvalidToken()
	}
	return user, nil
}

// Authorize resolves the user's permissions from the database on every call.
func (s *authService) Authorize(ctx context.Context, user *User, required []Permission) error {
	if len(required) == 0 {
		return nil
	}
	granted, err := s.ResolvePermissions(ctx, user.Roles)
	if err != nil {
		return err
	}
	if !hasAll(granted, required) {
		slog.Info("permission denied",
			slog.String("user_id", user.ID),
			slog.Any("required", required),
		)
		return apperror.NewInsufficientPermission()
	}
	return nil
}

func (s *authService) ResolvePermissions(ctx context.Context, roleIDs []string) ([]Permission, error) {
	if len(roleIDs) == 0 {
		return []Permission{}, nil
	}
	roles, err := s.roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading roles: %w", err))
	}
	return unionPermissions(roles), nil
}

func (s *authService) Profile(ctx context.Context, user *User) (*Profile, error) {
	perms, err := s.ResolvePermissions(ctx, user.Roles)
	if err != nil {
		return nil, err
	}
	return &Profile{UserSummary: user.Summary(), Permissions: perms, LastLogin: user.LastLogin}, nil
}

func (s *authService) Seed(ctx context.Context, bootstrap BootstrapInput) error {
	for _, p := range Catalog() {
		rec := PermissionRecord{Slug: p.Slug, Name: p.Name, Module: p.Module}
		if err := s.perms.EnsureExists(ctx, rec); err != nil {
			return err
		}
	}

	superAdmin := &Role{
		Slug:        RoleSuperAdmin,
		Name:        "Super Admin",
		Description: "Full access to every admin feature.",
		Permissions: allPermissions(),
	}
	if err := s.roles.UpsertSystem(ctx, superAdmin); err != nil {
		return err
	}
	viewer := &Role{
		Slug:        RoleViewer,
		Name:        "Viewer",
		Description: "Read-only access to the admin back-office.",
		Permissions: readPermissions(),
	}
	if err := s.roles.UpsertSystem(ctx, viewer); err != nil {
		return err
	}

	slog.Info("identity catalog seeded",
		slog.Int("permissions", len(catalog)),
		slog.String("super_admin_role", superAdmin.ID),
	)

	return s.bootstrapAdmin(ctx, bootstrap, superAdmin.ID)
}

// bootstrapAdmin creates the configured first administrator if missing.
func (s *authService) bootstrapAdmin(ctx context.Context, in BootstrapInput, superAdminRoleID string) error {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hashing bootstrap password: %w", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Administrator"
	}

	user := &User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        []string{superAdminRoleID},
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}

	slog.Info("bootstrap administrator created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// HashPassword exposes argon2id hashing to the admin plugin.
func HashPassword(password string) (string, error) {
	return hashPassword(password)
}
