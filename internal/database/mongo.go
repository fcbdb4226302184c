// Package database provides connection setup for MongoDB and Redis.
// Both connections are created once at startup and shared across the
// application via dependency injection. This package owns the connection
// lifecycle (open, ping, close).
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/keyxmakerx/forgepoint/internal/config"
)

// NewMongo connects to MongoDB and returns the client together with the
// configured database handle. It pings with backoff because the database
// container may still be starting when the app launches.
func NewMongo(cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetAppName("forgepoint").
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	const maxRetries = 5
	backoff := time.Second
	var pingErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		pingErr = client.Ping(ctx, nil)
		cancel()

		if pingErr == nil {
			return client, client.Database(cfg.Database), nil
		}
		if attempt == maxRetries {
			break
		}

		slog.Warn("mongodb not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff *= 2
	}

	_ = client.Disconnect(context.Background())
	return nil, nil, fmt.Errorf("pinging mongodb after %d attempts: %w", maxRetries, pingErr)
}
