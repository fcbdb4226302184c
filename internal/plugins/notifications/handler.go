package notifications

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves the admin notification feed.
type Handler struct {
	service NotificationService
}

// NewHandler creates a new notification handler.
func NewHandler(service NotificationService) *Handler {
	return &Handler{service: service}
}

// List returns the feed (GET /api/admin/notifications?unread=true).
func (h *Handler) List(c echo.Context) error {
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.service.List(c.Request().Context(), ListOptions{
		UnreadOnly: unread,
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// MarkRead flags one entry (PATCH /api/admin/notifications/:id/read).
func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.service.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead flags everything (POST /api/admin/notifications/read-all).
func (h *Handler) MarkAllRead(c echo.Context) error {
	n, err := h.service.MarkAllRead(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": n})
}

// Delete removes one entry (DELETE /api/admin/notifications/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
