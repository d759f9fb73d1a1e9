package sql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bcnelson/servicetag-watcher/internal/storage"
	"github.com/bcnelson/servicetag-watcher/internal/storage/sql"
	"github.com/bcnelson/servicetag-watcher/internal/storage/storagetest"
)

func newSQLiteStore(t *testing.T) *sql.Store {
	t.Helper()
	s, err := sql.New("sqlite3", filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.SnapshotStore {
		return newSQLiteStore(t)
	})
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	s, err := sql.New("sqlite3", path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.PutHistorical(ctx, "2025-10-09", storagetest.Dataset(4)); err != nil {
		t.Fatalf("PutHistorical failed: %v", err)
	}
	s.Close()

	// Migrations must be idempotent on an existing database.
	s, err = sql.New("sqlite3", path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()

	ds, err := s.GetHistorical(ctx, "2025-10-09")
	if err != nil {
		t.Fatalf("GetHistorical failed: %v", err)
	}
	if ds.ChangeNumber != 4 {
		t.Errorf("Expected change number 4, got %d", ds.ChangeNumber)
	}
}
