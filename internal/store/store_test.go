package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db, time.UTC)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestInsertAndListReadings(t *testing.T) {
	store := setupTestStore(t)

	r1, err := store.InsertReading(100.500, false)
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if r1.ID == 0 {
		t.Error("expected assigned id")
	}
	if r1.Automatic {
		t.Error("expected manual reading")
	}

	r2, err := store.InsertReading(101.250, true)
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if r2.ID == r1.ID {
		t.Errorf("ids not unique: %d", r2.ID)
	}

	readings, err := store.ListReadings()
	if err != nil {
		t.Fatalf("ListReadings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("len(readings) = %d, want 2", len(readings))
	}

	count, err := store.CountReadings()
	if err != nil {
		t.Fatalf("CountReadings: %v", err)
	}
	if count != 2 {
		t.Errorf("CountReadings = %d, want 2", count)
	}
}

func TestListReadings_Empty(t *testing.T) {
	store := setupTestStore(t)

	readings, err := store.ListReadings()
	if err != nil {
		t.Fatalf("ListReadings: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("len(readings) = %d, want 0", len(readings))
	}
}

func TestDeleteReading(t *testing.T) {
	store := setupTestStore(t)

	r, err := store.InsertReading(42.000, false)
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	if err := store.DeleteReading(r.ID); err != nil {
		t.Fatalf("DeleteReading: %v", err)
	}

	count, err := store.CountReadings()
	if err != nil {
		t.Fatalf("CountReadings: %v", err)
	}
	if count != 0 {
		t.Errorf("CountReadings = %d, want 0", count)
	}
}

func TestDeleteReading_NotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.DeleteReading(999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteReading(999) = %v, want ErrNotFound", err)
	}
}

func TestLatestReading(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.LatestReading()
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil on empty store")
	}

	if _, err := store.InsertReading(100.000, false); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if _, err := store.InsertReading(100.750, true); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	latest, err = store.LatestReading()
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if latest == nil {
		t.Fatal("LatestReading returned nil")
	}
	if latest.Value != 100.750 {
		t.Errorf("Value = %v, want 100.750", latest.Value)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("MigrationVersion = %d, want %d", version, len(migrations))
	}
}
