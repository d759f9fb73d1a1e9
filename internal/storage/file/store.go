// Package file stores snapshots as JSON documents in the dashboard data directory:
//
//	<dir>/current.json
//	<dir>/history/YYYY-MM-DD.json
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/fsutil"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

const (
	currentFile = "current.json"
	historyDir  = "history"
)

// Store implements storage.SnapshotStore on the local filesystem.
type Store struct {
	dir string
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates a file store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, historyDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}

// HistoryPath returns the path of the snapshot for date.
func (s *Store) HistoryPath(date string) string {
	return filepath.Join(s.dir, historyDir, date+".json")
}

func (s *Store) GetCurrent(ctx context.Context) (*domain.Dataset, error) {
	return readDataset(filepath.Join(s.dir, currentFile))
}

func (s *Store) PutCurrent(ctx context.Context, ds *domain.Dataset) error {
	if err := fsutil.WriteJSON(filepath.Join(s.dir, currentFile), ds); err != nil {
		return fmt.Errorf("writing current snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetHistorical(ctx context.Context, date string) (*domain.Dataset, error) {
	if err := storage.CheckDate(date); err != nil {
		return nil, err
	}
	return readDataset(s.HistoryPath(date))
}

func (s *Store) PutHistorical(ctx context.Context, date string, ds *domain.Dataset) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	if err := fsutil.WriteJSON(s.HistoryPath(date), ds); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", date, err)
	}
	return nil
}

// ListHistorical returns the dates of all history files. Files whose name is
// not a date are ignored.
func (s *Store) ListHistorical(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, historyDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing history: %w", err)
	}
	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || !domain.ValidDate(date) {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Store) DeleteHistorical(ctx context.Context, date string) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	if err := os.Remove(s.HistoryPath(date)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func readDataset(path string) (*domain.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w: %v", path, domain.ErrCorrupt, err)
	}
	return &ds, nil
}
