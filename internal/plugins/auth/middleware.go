package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// SessionCookieName is the cookie that may carry the identity token. It
// takes precedence over the Authorization header when both are present.
const SessionCookieName = "admin_session"

// Context keys for storing identity data in Echo context. Other plugins
// use the exported getters below instead of the raw keys.
const (
	contextKeyUser     = "auth_user"
	contextKeyIdentity = "auth_identity"
)

// RequireAuth returns middleware that verifies the identity token, loads
// the user, and attaches the resolved identity to the request context.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return apperror.NewAuthenticationRequired()
			}

			user, err := service.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(contextKeyUser, user)
			c.Set(contextKeyIdentity, &Identity{
				UserID: user.ID,
				Email:  user.Email,
				Roles:  user.Roles,
			})
			return next(c)
		}
	}
}

// RequirePermission returns middleware that denies with 403 unless the
// authenticated user's roles grant every listed permission. Must run after
// RequireAuth.
func RequirePermission(service AuthService, required ...Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.NewAuthenticationRequired()
			}
			if err := service.Authorize(c.Request().Context(), user, required); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// extractToken reads the identity token from the session cookie, falling
// back to an Authorization bearer token.
func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// --- Exported getters for other plugins ---

// GetIdentity returns the identity attached by RequireAuth, or nil when the
// request is not authenticated.
func GetIdentity(c echo.Context) *Identity {
	id, ok := c.Get(contextKeyIdentity).(*Identity)
	if !ok {
		return nil
	}
	return id
}

// GetUser returns the user loaded by RequireAuth, or nil.
func GetUser(c echo.Context) *User {
	u, ok := c.Get(contextKeyUser).(*User)
	if !ok {
		return nil
	}
	return u
}

// GetUserID returns the authenticated user's ID, or "".
func GetUserID(c echo.Context) string {
	if id := GetIdentity(c); id != nil {
		return id.UserID
	}
	return ""
}
