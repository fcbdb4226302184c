package contact

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/plugins/audit"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// RegisterRoutes mounts the public form endpoint and the triage API. The
// gatekeeper applies rate limiting and CSRF checks to POST /api/contact.
// Triage changes are recorded on rec.
func RegisterRoutes(e *echo.Echo, admin *echo.Group, h *Handler, authService auth.AuthService, rec audit.Recorder) {
	e.POST("/api/contact", h.Submit)

	admin.GET("/contacts", h.List, auth.RequirePermission(authService, auth.PermContactsRead))
	admin.GET("/contacts/:id", h.Get, auth.RequirePermission(authService, auth.PermContactsRead))
	admin.PATCH("/contacts/:id", h.Update, auth.RequirePermission(authService, auth.PermContactsUpdate),
		audit.Track(rec, audit.ActionContactUpdated))
	admin.DELETE("/contacts/:id", h.Delete, auth.RequirePermission(authService, auth.PermContactsDelete),
		audit.Track(rec, audit.ActionContactDeleted))
}
