package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/ghuser/lostfound/pkg/config"
)

// RunMigrations applies all pending goose migrations in files against db,
// using the SQL dialect that matches driver (config.DriverPostgres or
// config.DriverSQLite). It returns the number of migrations applied.
func RunMigrations(ctx context.Context, db *sql.DB, driver string, files fs.FS) (int, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(dialect, db, files)
	if err != nil {
		return 0, fmt.Errorf("failed to create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to up migrations: %w", err)
	}
	return len(results), nil
}

// Version reports the current schema version recorded by goose.
func Version(ctx context.Context, db *sql.DB, driver string, files fs.FS) (int64, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return 0, err
	}
	provider, err := goose.NewProvider(dialect, db, files)
	if err != nil {
		return 0, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}

func dialectFor(driver string) (goose.Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return goose.DialectPostgres, nil
	case config.DriverSQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("migrator: unsupported driver %q", driver)
	}
}
