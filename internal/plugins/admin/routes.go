package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/plugins/audit"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// RegisterRoutes sets up the admin API. Every route requires a valid
// identity token and declares the catalog permission it needs. Returns the
// authenticated /api/admin group so other plugins can register on it.
// Successful mutations are recorded on rec.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.AuthService, rec audit.Recorder) *echo.Group {
	admin := e.Group("/api/admin", auth.RequireAuth(authService))
	perm := func(p auth.Permission) echo.MiddlewareFunc {
		return auth.RequirePermission(authService, p)
	}
	track := func(action string) echo.MiddlewareFunc {
		return audit.Track(rec, action)
	}

	// User management.
	admin.GET("/users", h.ListUsers, perm(auth.PermUsersRead))
	admin.GET("/users/:id", h.GetUser, perm(auth.PermUsersRead))
	admin.POST("/users", h.CreateUser, perm(auth.PermUsersCreate), track(audit.ActionUserCreated))
	admin.PUT("/users/:id", h.UpdateUser, perm(auth.PermUsersUpdate), track(audit.ActionUserUpdated))
	admin.DELETE("/users/:id", h.DeleteUser, perm(auth.PermUsersDelete), track(audit.ActionUserDeleted))

	// Roles.
	admin.GET("/roles", h.ListRoles, perm(auth.PermRolesRead))
	admin.GET("/roles/:id", h.GetRole, perm(auth.PermRolesRead))
	admin.POST("/roles", h.CreateRole, perm(auth.PermRolesCreate), track(audit.ActionRoleCreated))
	admin.PUT("/roles/:id", h.UpdateRole, perm(auth.PermRolesUpdate), track(audit.ActionRoleUpdated))
	admin.DELETE("/roles/:id", h.DeleteRole, perm(auth.PermRolesDelete), track(audit.ActionRoleDeleted))

	// Permission records.
	admin.GET("/permissions", h.ListPermissions, perm(auth.PermPermissionsRead))
	admin.GET("/permissions/:id", h.GetPermission, perm(auth.PermPermissionsRead))
	admin.POST("/permissions", h.CreatePermission, perm(auth.PermPermissionsManage), track(audit.ActionPermissionCreated))
	admin.PUT("/permissions/:id", h.UpdatePermission, perm(auth.PermPermissionsManage), track(audit.ActionPermissionUpdated))
	admin.DELETE("/permissions/:id", h.DeletePermission, perm(auth.PermPermissionsManage), track(audit.ActionPermissionDeleted))

	return admin
}
