package notifications

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// RegisterRoutes mounts the feed on the authenticated admin group.
func RegisterRoutes(admin *echo.Group, h *Handler, authService auth.AuthService) {
	read := auth.RequirePermission(authService, auth.PermNotificationsRead)
	manage := auth.RequirePermission(authService, auth.PermNotificationsManage)

	admin.GET("/notifications", h.List, read)
	admin.POST("/notifications/read-all", h.MarkAllRead, manage)
	admin.PATCH("/notifications/:id/read", h.MarkRead, manage)
	admin.DELETE("/notifications/:id", h.Delete, manage)
}
