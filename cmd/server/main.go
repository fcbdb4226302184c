// Package main is the entry point for the Forgepoint API server. It loads
// configuration, establishes database connections, wires together all
// plugins, and starts the HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyxmakerx/forgepoint/internal/app"
	"github.com/keyxmakerx/forgepoint/internal/config"
	"github.com/keyxmakerx/forgepoint/internal/database"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
	"github.com/keyxmakerx/forgepoint/internal/ratelimit"
	"github.com/keyxmakerx/forgepoint/internal/storage"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting Forgepoint",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Connect to MongoDB ---
	mongoClient, db, err := database.NewMongo(cfg.Mongo)
	if err != nil {
		slog.Error("failed to connect to MongoDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	slog.Info("connected to MongoDB", slog.String("database", cfg.Mongo.Database))

	if err := database.RunMigrations(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Connect to Redis (optional) ---
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.Any("error", err))
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		slog.Info("connected to Redis")
	}

	// --- Rate Limiter ---
	// In-memory counters always exist: they serve single-instance deploys
	// and act as the fallback when Redis is unreachable.
	memory := ratelimit.NewMemoryStore(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	go memory.Run(ctx, cfg.RateLimit.SweepInterval)

	var limiter ratelimit.Limiter = memory
	if rdb != nil {
		limiter = ratelimit.NewRedisStore(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, memory)
	}

	// --- Object Storage ---
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to initialise object storage", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Create Application ---
	application, err := app.New(cfg, app.Infra{
		Mongo:   mongoClient,
		DB:      db,
		Redis:   rdb,
		Limiter: limiter,
		Store:   store,
	})
	if err != nil {
		slog.Error("failed to create application", slog.Any("error", err))
		os.Exit(1)
	}

	authService, err := application.RegisterRoutes()
	if err != nil {
		slog.Error("failed to register routes", slog.Any("error", err))
		os.Exit(1)
	}

	if err := authService.Seed(ctx, auth.BootstrapInput{
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
		Name:     cfg.Bootstrap.Name,
	}); err != nil {
		slog.Error("failed to seed roles and permissions", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Start Server ---
	go func() {
		if err := application.Start(); err != nil {
			// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
			slog.Info("server stopped", slog.Any("reason", err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give in-flight requests and queued mail 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", slog.Any("error", err))
	}
	stop()
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
