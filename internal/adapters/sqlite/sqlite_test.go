package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atviroplatforma/appcore/internal/adapters/sqlite/gormsqlite"
	"github.com/atviroplatforma/appcore/migrations"
)

func openTestDB(t *testing.T) *gormsqlite.DB {
	t.Helper()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("write sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}
