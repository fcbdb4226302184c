package security

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the token endpoints. They are GETs, so the
// gatekeeper never applies CSRF checks to them.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/csrf-token", h.Token)
	e.GET("/api/csrf", h.Readable)
}
