package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const contextKeyRequestID = "request_id"

// maxRequestIDLength caps client-supplied IDs before they reach the logs.
const maxRequestIDLength = 64

// RequestIDMiddleware propagates X-Request-ID, generating one when the
// client did not send it.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}
			c.Set(contextKeyRequestID, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// RequestID returns the current request's ID, or "" outside the middleware.
func RequestID(c echo.Context) string {
	id, _ := c.Get(contextKeyRequestID).(string)
	return id
}
