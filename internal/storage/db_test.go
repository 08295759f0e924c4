package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}
	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}
	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}
	if config.AutoMigrate {
		t.Error("expected AutoMigrate to default to false")
	}
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("failed to ping database: %v", err)
	}
	if db.Conn() == nil {
		t.Error("expected non-nil connection")
	}
}

func TestOpen_NilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected error when opening with nil config")
	}
}

func TestOpen_AutoMigrateRejectsMemory(t *testing.T) {
	config := DefaultConfig(":memory:")
	config.AutoMigrate = true

	if _, err := Open(config); err == nil {
		t.Error("expected error for auto-migrate on in-memory database")
	}
}

func TestOpen_AutoMigrateCreatesSchema(t *testing.T) {
	db := OpenTestDB(t)

	for _, table := range []string{"users", "locations", "catches", "spins"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestClose(t *testing.T) {
	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "close.db")))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("failed to close database: %v", err)
	}
	if err := db.Ping(); err == nil {
		t.Error("expected error when pinging closed database")
	}
}

func TestWithTransaction(t *testing.T) {
	db := OpenTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO users (username) VALUES (?)", "committed")
		return err
	})
	if err != nil {
		t.Fatalf("commit path failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (username) VALUES (?)", "rolled-back"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := db.Conn().QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 user after rollback, got %d", count)
	}
}
