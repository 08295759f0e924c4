package repository

import (
	"context"
	"testing"
	"time"

	"github.com/xDyN/AlphaBot/internal/storage"
)

func setupUser(t *testing.T, name string) (Querier, int64) {
	t.Helper()

	db := storage.OpenTestDB(t)
	id, err := NewUserRepository(db.Conn()).Ensure(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return db.Conn(), id
}

func TestUserRepository_Ensure(t *testing.T) {
	db := storage.OpenTestDB(t)
	repo := NewUserRepository(db.Conn())
	ctx := context.Background()

	missing, err := repo.ID(ctx, "ash")
	if err != nil {
		t.Fatalf("ID failed: %v", err)
	}
	if missing != 0 {
		t.Errorf("expected 0 for unknown user, got %d", missing)
	}

	first, err := repo.Ensure(ctx, "ash")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	second, err := repo.Ensure(ctx, "ash")
	if err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if first != second {
		t.Errorf("Ensure not idempotent: %d vs %d", first, second)
	}

	loc, err := NewLocationRepository(db.Conn()).Get(ctx, first)
	if err != nil {
		t.Fatalf("Get location failed: %v", err)
	}
	if loc == nil {
		t.Fatal("expected a location row for a new user")
	}
}

func TestLocationRepository(t *testing.T) {
	db, userID := setupUser(t, "misty")
	repo := NewLocationRepository(db)
	ctx := context.Background()

	if err := repo.ResetStart(ctx, userID, 25.03, 121.56); err != nil {
		t.Fatalf("ResetStart failed: %v", err)
	}
	if err := repo.SetCurrent(ctx, userID, 25.04, 121.57); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}

	loc, err := repo.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loc.StartLat != 25.03 || loc.StartLng != 121.56 {
		t.Errorf("unexpected start %v,%v", loc.StartLat, loc.StartLng)
	}
	if loc.Lat != 25.04 || loc.Lng != 121.57 {
		t.Errorf("unexpected current %v,%v", loc.Lat, loc.Lng)
	}

	none, err := repo.Get(ctx, userID+100)
	if err != nil {
		t.Fatalf("Get unknown failed: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil location for unknown user, got %+v", none)
	}
}

func TestCatchRepository(t *testing.T) {
	db, userID := setupUser(t, "brock")
	repo := NewCatchRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Insert(ctx, userID, "old", now.Add(-13*time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Insert(ctx, userID, "new", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ok, err := repo.Exists(ctx, userID, "old")
	if err != nil || !ok {
		t.Fatalf("expected old to exist, got %v %v", ok, err)
	}

	removed, err := repo.DeleteBefore(ctx, userID, now.Add(-12*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 purged row, got %d", removed)
	}

	n, err := repo.Count(ctx, userID)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 catch, got %d", n)
	}

	ok, err = repo.Exists(ctx, userID, "old")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("purged encounter should no longer exist")
	}
}

func TestSpinRepository(t *testing.T) {
	db, userID := setupUser(t, "gary")
	repo := NewSpinRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{30 * time.Minute, 11 * time.Hour, 12*time.Hour + time.Second} {
		if err := repo.Insert(ctx, userID, now.Add(-age)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if _, err := repo.DeleteBefore(ctx, userID, now.Add(-12*time.Hour)); err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}

	n, err := repo.Count(ctx, userID)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 spins inside the window, got %d", n)
	}
}
