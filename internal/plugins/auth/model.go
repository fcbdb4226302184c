// Package auth owns the identity store (users, roles, permissions) and the
// authorization gate for the admin API. Admins log in with email and
// password and receive an HS256 JWT; every authenticated request re-loads
// the user and re-resolves permissions from the database so revocations
// take effect immediately.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"
)

// System role slugs. Roles with these slugs are seeded at startup with
// IsSystem=true and cannot be mutated or deleted through the admin API.
const (
	RoleSuperAdmin = "super-admin"
	RoleViewer     = "viewer"
)

// User is an admin back-office account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	Roles        []string   `json:"roles"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Role groups permissions. Users reference roles by ID.
type Role struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsSystem    bool         `json:"isSystem"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// PermissionRecord is the stored, editable description of a catalog
// permission. The slug itself is fixed by the catalog.
type PermissionRecord struct {
	ID     string     `json:"id"`
	Slug   Permission `json:"slug"`
	Name   string     `json:"name"`
	Module string     `json:"module"`
}

// Identity is what the auth middleware attaches to an allowed request.
type Identity struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the credentials posted to POST /api/admin/auth.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// --- Service Input DTOs (passed from handler to service) ---

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// BootstrapInput describes the optional first administrator created at
// startup when no account with Email exists.
type BootstrapInput struct {
	Email    string
	Password string
	Name     string
}

// --- Response DTOs ---

// UserSummary is the public shape of a user in auth responses.
type UserSummary struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// Profile is returned by GET /api/admin/auth.
type Profile struct {
	UserSummary
	Permissions []Permission `json:"permissions"`
	LastLogin   *time.Time   `json:"lastLogin,omitempty"`
}

// Summary returns the public view of u.
func (u *User) Summary() UserSummary {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, Roles: roles}
}
