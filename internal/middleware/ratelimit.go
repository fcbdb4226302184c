package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/ratelimit"
)

// checkRateLimit counts the request against the client's IP. Limiter
// errors fail closed.
func checkRateLimit(c echo.Context, limiter ratelimit.Limiter, retryAfter time.Duration) error {
	allowed, err := limiter.Allow(c.Request().Context(), ClientIP(c))
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("rate limiter: %w", err))
	}
	if !allowed {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		return apperror.NewRateLimited()
	}
	return nil
}
