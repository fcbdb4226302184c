package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves the audit feed. Handlers are thin: bind request, call
// service, render response.
type Handler struct {
	service AuditService
}

// NewHandler creates a new audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// List returns the audit feed
// (GET /api/admin/audit?action=&actor=&target=&page=&limit=).
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.service.List(c.Request().Context(), ListOptions{
		Filter: Filter{
			Action:   c.QueryParam("action"),
			ActorID:  c.QueryParam("actor"),
			TargetID: c.QueryParam("target"),
		},
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
