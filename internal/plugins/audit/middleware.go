package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/middleware"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// recordTimeout bounds a single audit write.
const recordTimeout = 3 * time.Second

// Track returns route middleware that records action after the handler
// succeeds. The target is the route's :id parameter when present. Requests
// that fail, or that have no authenticated identity, are not recorded. A
// nil recorder disables tracking.
func Track(rec Recorder, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if rec == nil {
			return next
		}
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status >= 400 {
				return nil
			}

			identity := auth.GetIdentity(c)
			if identity == nil {
				return nil
			}

			entry := &Entry{
				Action:     action,
				ActorID:    identity.UserID,
				ActorEmail: identity.Email,
				TargetID:   c.Param("id"),
				IPAddress:  middleware.ClientIP(c),
				RequestID:  middleware.RequestID(c),
			}

			// The response is already written; a slow or cancelled client
			// must not lose the record.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), recordTimeout)
			defer cancel()
			if err := rec.Log(ctx, entry); err != nil {
				slog.Warn("audit entry not recorded",
					slog.String("action", action),
					slog.Any("error", err),
				)
			}
			return nil
		}
	}
}
