package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/csrf"
)

// CSRFVerifier checks a client token against its session token.
type CSRFVerifier interface {
	Verify(clientToken, sessionToken string) bool
}

// checkCSRF requires the x-csrf-token header and the session cookie, and
// that the pair verifies. Token values are never logged.
func checkCSRF(c echo.Context, verifier CSRFVerifier) error {
	clientToken := c.Request().Header.Get(csrf.HeaderName)
	cookie, err := c.Cookie(csrf.SessionCookieName)
	if clientToken == "" || err != nil || cookie.Value == "" {
		return apperror.NewCSRFMissing()
	}
	if !verifier.Verify(clientToken, cookie.Value) {
		return apperror.NewCSRFInvalid()
	}
	return nil
}

// CSRFCookieOptions describes how issued CSRF cookies are written.
type CSRFCookieOptions struct {
	Secure bool
	TTL    time.Duration
}

// SetCSRFSessionCookie stores the session half of a CSRF pair in an
// HttpOnly, SameSite=Strict cookie.
func SetCSRFSessionCookie(c echo.Context, sessionToken string, opts CSRFCookieOptions) {
	c.SetCookie(newCSRFCookie(csrf.SessionCookieName, sessionToken, true, opts))
}

// SetCSRFClientCookie stores the client half of a CSRF pair under name.
// httpOnly=false makes it readable by page script.
func SetCSRFClientCookie(c echo.Context, name, clientToken string, httpOnly bool, opts CSRFCookieOptions) {
	c.SetCookie(newCSRFCookie(name, clientToken, httpOnly, opts))
}

func newCSRFCookie(name, value string, httpOnly bool, opts CSRFCookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(opts.TTL.Seconds()),
	}
}
