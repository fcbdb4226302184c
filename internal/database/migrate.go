package database

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/golang-migrate/migrate/v4"

	// MongoDB database driver; migrations are JSON arrays of db commands.
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	// File source driver for reading migration files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all pending migrations from migrationsPath to the
// named database. Already-applied migrations are skipped, so it is safe to
// call on every startup.
func RunMigrations(uri, database, migrationsPath string) error {
	target, err := migrationURL(uri, database)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+migrationsPath, target)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// migrationURL points uri at database. The migrate driver reads the target
// database from the URL path rather than from a client option.
func migrationURL(uri, database string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing mongodb URI: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("unsupported mongodb URI scheme %q", u.Scheme)
	}
	if database != "" {
		u.Path = "/" + database
	}
	return u.String(), nil
}
