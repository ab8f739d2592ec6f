package sqlstore

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// NewMigrator builds a migrator for the driver. When dir is empty the
// migrations embedded in the binary are used, otherwise dir is read from disk.
// Closing the migrator closes its own connection.
func NewMigrator(driver, dsn, dir string) (*migrate.Migrate, error) {
	dbURL, err := migrationURL(driver, dsn)
	if err != nil {
		return nil, err
	}

	if dir != "" {
		m, err := migrate.New("file://"+dir, dbURL)
		if err != nil {
			return nil, fmt.Errorf("create migrator: %w", err)
		}
		return m, nil
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations and returns the resulting version.
func MigrateUp(driver, dsn, dir string) (uint, error) {
	m, err := NewMigrator(driver, dsn, dir)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	v, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, err
	}
	return v, nil
}

func migrationURL(driver, dsn string) (string, error) {
	switch driver {
	case DriverPostgres:
		return dsn, nil
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("create data dir: %w", err)
			}
		}
		return "sqlite://" + dsn, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
