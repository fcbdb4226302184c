// Package admin provides the role-based admin API: user, role and
// permission management. Routes require an authenticated identity plus the
// catalog permission declared for each endpoint.
package admin

import (
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// Pagination defaults for list endpoints.
const (
	defaultPerPage = 25
	maxPerPage     = 100
)

// --- Request DTOs (bound from HTTP requests) ---

// CreateUserRequest is the body of POST /api/admin/users.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=255"`
	Name     string   `json:"name" validate:"required,min=2,max=100"`
	Password string   `json:"password" validate:"required,min=8,max=128"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
	IsActive *bool    `json:"isActive"`
}

// UpdateUserRequest is the body of PUT /api/admin/users/:id. Omitted fields
// are left unchanged.
type UpdateUserRequest struct {
	Email    *string   `json:"email" validate:"omitempty,email,max=255"`
	Name     *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Password *string   `json:"password" validate:"omitempty,min=8,max=128"`
	Roles    *[]string `json:"roles" validate:"omitempty,dive,required"`
	IsActive *bool     `json:"isActive"`
}

// CreateRoleRequest is the body of POST /api/admin/roles.
type CreateRoleRequest struct {
	Slug        string   `json:"slug" validate:"required,min=2,max=50"`
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleRequest is the body of PUT /api/admin/roles/:id.
type UpdateRoleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Permissions *[]string `json:"permissions"`
}

// CreatePermissionRequest is the body of POST /api/admin/permissions.
type CreatePermissionRequest struct {
	Slug   string `json:"slug" validate:"required"`
	Name   string `json:"name" validate:"omitempty,max=100"`
	Module string `json:"module" validate:"omitempty,max=50"`
}

// UpdatePermissionRequest is the body of PUT /api/admin/permissions/:id.
type UpdatePermissionRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Module string `json:"module" validate:"required,max=50"`
}

// --- Service Input DTOs ---

// CreateUserInput is the validated input for creating a user.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Roles    []string
	IsActive bool
}

// UpdateUserInput carries optional user changes.
type UpdateUserInput struct {
	Email    *string
	Name     *string
	Password *string
	Roles    *[]string
	IsActive *bool
}

// CreateRoleInput is the validated input for creating a role.
type CreateRoleInput struct {
	Slug        string
	Name        string
	Description string
	Permissions []string
}

// UpdateRoleInput carries optional role changes.
type UpdateRoleInput struct {
	Name        *string
	Description *string
	Permissions *[]string
}

// --- Response DTOs ---

// UserPage is one page of the user list.
type UserPage struct {
	Users   []auth.User `json:"users"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"perPage"`
}
