package smtp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// Handler serves the mail diagnostics endpoints of the admin API.
type Handler struct {
	service SMTPService
}

// NewHandler creates a new SMTP handler.
func NewHandler(service SMTPService) *Handler {
	return &Handler{service: service}
}

// Status returns the mail configuration (GET /api/admin/mail).
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Status())
}

// TestConnection checks connectivity (POST /api/admin/mail/test).
func (h *Handler) TestConnection(c echo.Context) error {
	if err := h.service.TestConnection(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// SendTest sends a test message to the notification recipients
// (POST /api/admin/mail/send-test).
func (h *Handler) SendTest(c echo.Context) error {
	to := h.service.NotifyRecipients()
	if len(to) == 0 {
		return apperror.NewBadRequest("no notification recipients configured")
	}
	err := h.service.SendMail(c.Request().Context(), Mail{
		To:      to,
		Subject: "Forgepoint test message",
		Body:    "This is a test message from the Forgepoint admin API.\n",
	})
	if errors.Is(err, ErrNotConfigured) {
		return apperror.NewBadRequest("SMTP host is not configured")
	}
	if err != nil {
		slog.Warn("test message not sent", slog.Any("error", err))
		return apperror.NewBadRequest("sending test message failed")
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "recipients": len(to)})
}
