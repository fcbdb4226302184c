package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// Handler handles HTTP requests for admin authentication. Handlers are
// thin: they bind the request, call the service, and write JSON.
type Handler struct {
	service      AuthService
	secureCookie bool
}

// NewHandler creates a new auth handler. secureCookie controls the Secure
// flag on the cleared session cookie.
func NewHandler(service AuthService, secureCookie bool) *Handler {
	return &Handler{service: service, secureCookie: secureCookie}
}

// Login authenticates credentials (POST /api/admin/auth). The token is
// returned in the body only; no cookie is set.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's profile (GET /api/admin/auth).
func (h *Handler) Me(c echo.Context) error {
	user := GetUser(c)
	if user == nil {
		return apperror.NewMissingContext()
	}
	profile, err := h.service.Profile(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// Logout clears the session cookie (DELETE /api/admin/auth). Tokens are
// stateless, so a bearer token stays valid until it expires.
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return c.NoContent(http.StatusNoContent)
}
