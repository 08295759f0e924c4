package storage

import (
	"path/filepath"
	"testing"
)

// OpenTestDB opens a migrated database file under t.TempDir and closes it
// when the test ends. Exported for other packages' tests.
func OpenTestDB(t testing.TB) *DB {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
