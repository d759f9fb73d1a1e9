package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
	"github.com/bcnelson/servicetag-watcher/internal/storage/file"
	"github.com/bcnelson/servicetag-watcher/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.SnapshotStore {
		s, err := file.New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := s.PutCurrent(ctx, storagetest.Dataset(1)); err != nil {
		t.Fatalf("PutCurrent failed: %v", err)
	}
	if err := s.PutHistorical(ctx, "2025-10-09", storagetest.Dataset(1)); err != nil {
		t.Fatalf("PutHistorical failed: %v", err)
	}

	for _, p := range []string{"current.json", "history/2025-10-09.json"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("Expected %s to exist: %v", p, err)
		}
	}
}

func TestStore_CorruptCurrent(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "current.json"), []byte("{\"values\": ["), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = s.GetCurrent(context.Background())
	if !errors.Is(err, domain.ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", err)
	}
}

func TestStore_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, name := range []string{"2025-10-09.json", "notes.json", "2025-10-02.json.bak", "2025-99-99.json"} {
		if err := os.WriteFile(filepath.Join(dir, "history", name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dates, err := s.ListHistorical(context.Background())
	if err != nil {
		t.Fatalf("ListHistorical failed: %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2025-10-09"}) {
		t.Errorf("Unexpected dates: %v", dates)
	}
}
