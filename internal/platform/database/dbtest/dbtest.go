// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"database/sql"
	"testing"

	"suitehub/internal/platform/config"
	"suitehub/internal/platform/database"
	"suitehub/migrations"
)

func New(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.NewDB(config.DatabaseConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if _, err := database.Migrate(db, migrations.FS); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
