// Package storage persists uploaded files. Contact attachments and voice
// notes go to MinIO (or any S3-compatible service) when an endpoint is
// configured, and to a local directory otherwise.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/keyxmakerx/forgepoint/internal/config"
)

// ErrInvalidKey is returned for object keys that are empty or try to
// escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStore stores and removes opaque objects by key.
type ObjectStore interface {
	// Put stores size bytes read from r under key. size may be -1 when
	// unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// New returns the object store selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	if cfg.Endpoint == "" {
		slog.Info("object storage: using local directory", slog.String("path", cfg.LocalPath))
		return NewDiskStore(cfg.LocalPath)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	slog.Info("object storage: using minio",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.Bucket),
	)
	return NewMinioStore(ctx, client, cfg.Bucket)
}
