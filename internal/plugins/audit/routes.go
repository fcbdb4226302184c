package audit

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// RegisterRoutes mounts the audit feed on the authenticated admin group.
func RegisterRoutes(admin *echo.Group, h *Handler, authService auth.AuthService) {
	admin.GET("/audit", h.List, auth.RequirePermission(authService, auth.PermAuditRead))
}
