// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/playperu/beastgames/internal/database"
	"github.com/playperu/beastgames/internal/migrations"
)

// OpenDB creates a migrated SQLite database in a temp directory. It is
// closed when the test ends.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.DriverLibSQL, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db
}
