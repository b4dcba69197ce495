// Package dbtest opens migrated databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/ghuser/lostfound/migrations"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/migrator"
)

// NewSQLite returns an in-memory SQLite database with every migration
// applied. It is closed when the test ends.
func NewSQLite(t testing.TB) *database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := migrator.RunMigrations(ctx, db.DB(), config.DriverSQLite, migrations.SQLite()); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
