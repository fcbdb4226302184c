// Package security serves the endpoints browsers use to obtain a CSRF token
// pair before calling a protected API. Each call issues a fresh pair: the
// session half goes into an HttpOnly cookie, the client half into the
// response body and a second cookie.
package security

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/csrf"
	"github.com/keyxmakerx/forgepoint/internal/middleware"
)

// TokenIssuer creates CSRF token pairs.
type TokenIssuer interface {
	Issue() (clientToken, sessionToken string, err error)
}

// TokenResponse is returned by GET /api/csrf-token.
type TokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Handler issues CSRF token pairs.
type Handler struct {
	issuer  TokenIssuer
	cookies middleware.CSRFCookieOptions
}

// NewHandler creates a new CSRF token handler. cookies.Secure should be
// true in production.
func NewHandler(issuer TokenIssuer, cookies middleware.CSRFCookieOptions) *Handler {
	return &Handler{issuer: issuer, cookies: cookies}
}

// issue creates a pair and writes the session cookie.
func (h *Handler) issue(c echo.Context) (string, error) {
	client, session, err := h.issuer.Issue()
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	middleware.SetCSRFSessionCookie(c, session, h.cookies)
	return client, nil
}

// Token issues a pair with the client half in an HttpOnly cookie and the
// body (GET /api/csrf-token).
func (h *Handler) Token(c echo.Context) error {
	client, err := h.issue(c)
	if err != nil {
		return err
	}
	middleware.SetCSRFClientCookie(c, csrf.ClientCookieName, client, true, h.cookies)
	return c.JSON(http.StatusOK, TokenResponse{
		Token:   client,
		Message: "CSRF token generated successfully",
	})
}

// Readable issues a pair with the client half in a script-readable
// XSRF-TOKEN cookie (GET /api/csrf).
func (h *Handler) Readable(c echo.Context) error {
	client, err := h.issue(c)
	if err != nil {
		return err
	}
	middleware.SetCSRFClientCookie(c, csrf.ReadableCookieName, client, false, h.cookies)
	return c.JSON(http.StatusOK, map[string]string{"token": client})
}
