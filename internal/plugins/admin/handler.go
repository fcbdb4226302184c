package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// Handler handles admin API requests. Handlers bind and validate the body,
// call the service, and write JSON.
type Handler struct {
	service AdminService
}

// NewHandler creates a new admin handler.
func NewHandler(service AdminService) *Handler {
	return &Handler{service: service}
}

// bindValid binds the request body into req and runs struct validation.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	return c.Validate(req)
}

// --- Users ---

// ListUsers returns a page of users (GET /api/admin/users).
func (h *Handler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.service.ListUsers(c.Request().Context(), page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetUser returns one user (GET /api/admin/users/:id).
func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser creates a user (POST /api/admin/users).
func (h *Handler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	user, err := h.service.CreateUser(c.Request().Context(), CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
		IsActive: active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser edits a user (PUT /api/admin/users/:id).
func (h *Handler) UpdateUser(c echo.Context) error {
	var req UpdateUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateUser(c.Request().Context(), auth.GetUserID(c), c.Param("id"), UpdateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser deletes a user (DELETE /api/admin/users/:id).
func (h *Handler) DeleteUser(c echo.Context) error {
	if err := h.service.DeleteUser(c.Request().Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Roles ---

// ListRoles returns every role (GET /api/admin/roles).
func (h *Handler) ListRoles(c echo.Context) error {
	roles, err := h.service.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// GetRole returns one role (GET /api/admin/roles/:id).
func (h *Handler) GetRole(c echo.Context) error {
	role, err := h.service.GetRole(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

// CreateRole creates a role (POST /api/admin/roles).
func (h *Handler) CreateRole(c echo.Context) error {
	var req CreateRoleRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	role, err := h.service.CreateRole(c.Request().Context(), CreateRoleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, role)
}

// UpdateRole edits a role (PUT /api/admin/roles/:id).
func (h *Handler) UpdateRole(c echo.Context) error {
	var req UpdateRoleRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	role, err := h.service.UpdateRole(c.Request().Context(), c.Param("id"), UpdateRoleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

// DeleteRole deletes a role (DELETE /api/admin/roles/:id).
func (h *Handler) DeleteRole(c echo.Context) error {
	if err := h.service.DeleteRole(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Permissions ---

// ListPermissions returns stored permission records (GET /api/admin/permissions).
func (h *Handler) ListPermissions(c echo.Context) error {
	recs, err := h.service.ListPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

// GetPermission returns one record (GET /api/admin/permissions/:id).
func (h *Handler) GetPermission(c echo.Context) error {
	rec, err := h.service.GetPermission(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// CreatePermission stores a catalog permission (POST /api/admin/permissions).
func (h *Handler) CreatePermission(c echo.Context) error {
	var req CreatePermissionRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	rec, err := h.service.CreatePermission(c.Request().Context(), req.Slug, req.Name, req.Module)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

// UpdatePermission edits name and module (PUT /api/admin/permissions/:id).
func (h *Handler) UpdatePermission(c echo.Context) error {
	var req UpdatePermissionRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	rec, err := h.service.UpdatePermission(c.Request().Context(), c.Param("id"), req.Name, req.Module)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// DeletePermission removes a record (DELETE /api/admin/permissions/:id).
func (h *Handler) DeletePermission(c echo.Context) error {
	if err := h.service.DeletePermission(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
