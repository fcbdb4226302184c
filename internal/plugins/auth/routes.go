package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the admin auth endpoints. Login is public; the
// profile and logout require a valid identity token. Mutating calls are
// additionally covered by the edge gatekeeper's rate limit and CSRF checks
// because they live under /api/admin.
func RegisterRoutes(e *echo.Echo, h *Handler, service AuthService) {
	e.POST("/api/admin/auth", h.Login)
	e.GET("/api/admin/auth", h.Me, RequireAuth(service))
	e.DELETE("/api/admin/auth", h.Logout)
}
