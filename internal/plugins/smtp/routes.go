package smtp

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// RegisterRoutes sets up mail diagnostics on the authenticated admin group.
func RegisterRoutes(admin *echo.Group, h *Handler, authService auth.AuthService) {
	admin.GET("/mail", h.Status, auth.RequirePermission(authService, auth.PermNotificationsRead))
	admin.POST("/mail/test", h.TestConnection, auth.RequirePermission(authService, auth.PermNotificationsManage))
	admin.POST("/mail/send-test", h.SendTest, auth.RequirePermission(authService, auth.PermNotificationsManage))
}
