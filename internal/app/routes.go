package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/forgepoint/internal/middleware"
	"github.com/keyxmakerx/forgepoint/internal/plugins/admin"
	"github.com/keyxmakerx/forgepoint/internal/plugins/audit"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
	"github.com/keyxmakerx/forgepoint/internal/plugins/contact"
	"github.com/keyxmakerx/forgepoint/internal/plugins/notifications"
	"github.com/keyxmakerx/forgepoint/internal/plugins/security"
	"github.com/keyxmakerx/forgepoint/internal/plugins/smtp"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// healthCheck pings one dependency.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

func (a *App) defaultChecks() []healthCheck {
	var checks []healthCheck
	if a.Mongo != nil {
		checks = append(checks, healthCheck{"mongodb", func(ctx context.Context) error {
			return a.Mongo.Ping(ctx, nil)
		}})
	}
	if a.Redis != nil {
		checks = append(checks, healthCheck{"redis", func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}})
	}
	return checks
}

// RegisterRoutes sets up all application routes. It registers operational
// routes directly and delegates to each plugin's route registration
// function. Returns the auth service so main can seed the identity store.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() (auth.AuthService, error) {
	e := a.Echo
	cfg := a.Config

	// --- Operational Routes ---
	e.GET("/healthz", a.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	// --- Security: CSRF token issuance ---
	cookieOpts := middleware.CSRFCookieOptions{Secure: cfg.IsProduction(), TTL: cfg.CSRF.TTL}
	security.RegisterRoutes(e, security.NewHandler(a.CSRF, cookieOpts))

	// --- Identity ---
	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TTL)
	if err != nil {
		return nil, err
	}
	users := auth.NewUserRepository(a.DB)
	roles := auth.NewRoleRepository(a.DB)
	perms := auth.NewPermissionRepository(a.DB)
	authService := auth.NewAuthService(users, roles, perms, tokens)
	auth.RegisterRoutes(e, auth.NewHandler(authService, cfg.IsProduction()), authService)

	// --- Audit trail ---
	auditService := audit.NewAuditService(audit.NewRepository(a.DB))

	// --- Admin API ---
	adminGroup := admin.RegisterRoutes(e, admin.NewHandler(admin.NewAdminService(users, roles, perms)), authService, auditService)
	audit.RegisterRoutes(adminGroup, audit.NewHandler(auditService), authService)

	// --- Notifications ---
	notificationService := notifications.NewNotificationService(notifications.NewRepository(a.DB))
	notifications.RegisterRoutes(adminGroup, notifications.NewHandler(notificationService), authService)

	// --- Mail ---
	mailService := smtp.NewSMTPService(cfg.SMTP)
	smtp.RegisterRoutes(adminGroup, smtp.NewHandler(mailService), authService)
	if !mailService.IsConfigured() {
		slog.Warn("SMTP_HOST not set, contact notification emails are disabled")
	}

	// --- Contact form ---
	limits := contact.Limits{MaxFileSize: cfg.Upload.MaxSize, MaxFiles: cfg.Upload.MaxFiles}
	a.contacts = contact.NewContactService(
		contact.NewRepository(a.DB), a.Store, notificationService, mailService, limits, cfg.BaseURL,
	)
	contact.RegisterRoutes(e, adminGroup, contact.NewHandler(a.contacts, limits), authService, auditService)

	return authService, nil
}

// health reports dependency status (GET /healthz). Any failing check makes
// the endpoint return 503.
func (a *App) health(c echo.Context) error {
	status := http.StatusOK
	result := map[string]string{}

	for _, hc := range a.checks {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		err := hc.check(ctx)
		cancel()

		if err != nil {
			slog.Warn("health check failed", slog.String("dependency", hc.name), slog.Any("error", err))
			result[hc.name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		result[hc.name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]any{"status": overall, "checks": result})
}
