package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/ratelimit"
)

// GatekeeperConfig wires the edge checks applied to every request.
type GatekeeperConfig struct {
	// ProtectedPrefixes are path prefixes whose mutating requests must pass
	// the rate limiter and CSRF verification.
	ProtectedPrefixes []string

	CORS    CORSConfig
	Limiter ratelimit.Limiter
	CSRF    CSRFVerifier

	// RetryAfter is advertised on 429 responses.
	RetryAfter time.Duration

	// HSTS adds Strict-Transport-Security to every response.
	HSTS bool

	// Metrics is optional.
	Metrics *Metrics
}

// Gatekeeper is the single interception point for inbound traffic. It sets
// security headers, answers CORS preflight without reaching a handler, and
// runs the rate limiter then CSRF verification for mutating requests to
// protected prefixes. Everything else passes through to routing.
func Gatekeeper(cfg GatekeeperConfig) echo.MiddlewareFunc {
	cors := newCORSPolicy(cfg.CORS)
	prefixes := normalizePrefixes(cfg.ProtectedPrefixes)
	retryAfter := cfg.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			h := c.Response().Header()

			setSecurityHeaders(h, cfg.HSTS)
			cors.apply(h, req.Header.Get(echo.HeaderOrigin))

			if req.Method == http.MethodOptions {
				cors.preflight(h)
				return c.NoContent(http.StatusNoContent)
			}

			if isSafeMethod(req.Method) || !isProtected(req.URL.Path, prefixes) {
				return next(c)
			}

			if err := checkRateLimit(c, cfg.Limiter, retryAfter); err != nil {
				cfg.Metrics.GateDecision(GateRateLimit, outcomeFor(err))
				return err
			}
			cfg.Metrics.GateDecision(GateRateLimit, OutcomeAllowed)

			if err := checkCSRF(c, cfg.CSRF); err != nil {
				cfg.Metrics.GateDecision(GateCSRF, OutcomeDenied)
				return err
			}
			cfg.Metrics.GateDecision(GateCSRF, OutcomeAllowed)

			return next(c)
		}
	}
}

// isSafeMethod reports whether method skips the rate limit and CSRF checks.
// Only GET does; HEAD and every other method are checked.
func isSafeMethod(method string) bool {
	return method == http.MethodGet
}

// isProtected matches whole path segments, so "/api/contact" covers
// "/api/contact" and "/api/contact/x" but not "/api/contacts".
func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func normalizePrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func outcomeFor(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Type == apperror.TypeRateLimited {
		return OutcomeDenied
	}
	return OutcomeError
}
