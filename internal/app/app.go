// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (Mongo, Redis, limiter, object store,
// metrics registry, Echo instance) and wires together all plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/config"
	"github.com/keyxmakerx/forgepoint/internal/csrf"
	"github.com/keyxmakerx/forgepoint/internal/middleware"
	"github.com/keyxmakerx/forgepoint/internal/plugins/contact"
	"github.com/keyxmakerx/forgepoint/internal/ratelimit"
	"github.com/keyxmakerx/forgepoint/internal/storage"
	"github.com/keyxmakerx/forgepoint/internal/templates/pages"
)

// Infra is the shared infrastructure created in main and handed to New.
type Infra struct {
	Mongo   *mongo.Client
	DB      *mongo.Database
	Redis   *redis.Client // nil when Redis is not configured
	Limiter ratelimit.Limiter
	Store   storage.ObjectStore
}

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	Config *config.Config
	Infra

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Registry collects the Prometheus metrics served on /metrics.
	Registry *prometheus.Registry
	Metrics  *middleware.Metrics

	CSRF *csrf.Service

	// contacts is kept for draining background mail on shutdown.
	contacts contact.ContactService

	checks []healthCheck
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, infra Infra) (*App, error) {
	csrfService, err := csrf.NewService(cfg.CSRF.Secret)
	if err != nil {
		return nil, fmt.Errorf("creating csrf service: %w", err)
	}

	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	// Forwarding headers are only believed from these networks, so the
	// rate limiter keys on the real client address.
	middleware.TrustedProxies(e, cfg.Gate.TrustedProxies)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		Infra:    infra,
		Echo:     e,
		Registry: reg,
		Metrics:  middleware.NewMetrics(reg),
		CSRF:     csrfService,
	}
	app.checks = app.defaultChecks()

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, the gatekeeper last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	a.Echo.Use(middleware.RequestIDMiddleware())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	a.Echo.Use(a.Metrics.Middleware())

	// Security headers, CORS, then rate limit + CSRF on protected writes.
	a.Echo.Use(middleware.Gatekeeper(middleware.GatekeeperConfig{
		ProtectedPrefixes: a.Config.Gate.ProtectedPrefixes,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   a.Config.CORSOrigins(),
			AllowCredentials: true,
		},
		Limiter:    a.Limiter,
		CSRF:       a.CSRF,
		RetryAfter: a.Config.RateLimit.Window,
		HSTS:       a.Config.IsProduction(),
		Metrics:    a.Metrics,
	}))
}

// errorHandler maps domain errors (AppError) to HTTP responses: JSON for
// API requests, an HTML error page for everything else. Internal causes are
// logged and never sent to the client.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = fromEchoError(err)
	}

	if appErr.Internal != nil {
		slog.Error("internal error",
			slog.String("type", appErr.Type),
			slog.Any("internal", appErr.Internal),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.String("request_id", middleware.RequestID(c)),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.Code)
		return
	}

	if middleware.IsAPIRequest(c) {
		_ = c.JSON(appErr.Code, appErr)
		return
	}

	_ = middleware.Render(c, appErr.Code, pages.ErrorPage(appErr.Code, appErr.Message))
}

// fromEchoError converts router and binder errors, and anything unexpected,
// into an AppError.
func fromEchoError(err error) *apperror.AppError {
	var echoErr *echo.HTTPError
	if !errors.As(err, &echoErr) {
		return apperror.NewInternal(err)
	}

	switch echoErr.Code {
	case http.StatusNotFound:
		return apperror.NewNotFound("Not found")
	case http.StatusRequestEntityTooLarge:
		return apperror.NewPayloadTooLarge("Request body too large")
	case http.StatusInternalServerError:
		return apperror.NewInternal(err)
	}

	e := apperror.NewBadRequest(defaultErrorMessage(echoErr.Code))
	e.Code = echoErr.Code
	if echoErr.Code == http.StatusMethodNotAllowed {
		e.Type = "METHOD_NOT_ALLOWED"
	}
	return e
}

// defaultErrorMessage returns a user-friendly message for common HTTP status
// codes when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusUnsupportedMediaType:
		return "Unsupported content type."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return http.StatusText(code)
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Forgepoint server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	a.Echo.Server.ReadHeaderTimeout = 10 * time.Second
	return a.Echo.Start(addr)
}

// Shutdown stops accepting requests, waits for in-flight ones and for
// queued notification mail, bounded by ctx.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.contacts != nil {
		if drainErr := a.contacts.Drain(ctx); drainErr != nil {
			slog.Warn("pending notification emails abandoned", slog.Any("error", drainErr))
		}
	}
	return err
}
