package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
// Snapshots are kept as encoded JSON so callers never share slices with the store.
type Store struct {
	mu sync.RWMutex

	current []byte
	history map[string][]byte // key: date
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		history: make(map[string][]byte),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) GetCurrent(ctx context.Context) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domain.ErrNotFound
	}
	return decode(s.current)
}

func (s *Store) PutCurrent(ctx context.Context, ds *domain.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = data
	return nil
}

// SetCurrentRaw stores raw bytes as the current snapshot, bypassing encoding.
func (s *Store) SetCurrentRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = data
}

func (s *Store) GetHistorical(ctx context.Context, date string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.history[date]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return decode(data)
}

func (s *Store) PutHistorical(ctx context.Context, date string, ds *domain.Dataset) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[date] = data
	return nil
}

func (s *Store) ListHistorical(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := make([]string, 0, len(s.history))
	for d := range s.history {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Store) DeleteHistorical(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history[date]; !ok {
		return domain.ErrNotFound
	}
	delete(s.history, date)
	return nil
}

func decode(data []byte) (*domain.Dataset, error) {
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, domain.ErrCorrupt
	}
	return &ds, nil
}
