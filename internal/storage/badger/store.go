// Package badger stores snapshots in an embedded BadgerDB.
//
// Keys:
//
//	current         current snapshot JSON
//	history/<date>  historical snapshot JSON
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

const (
	currentKey    = "current"
	historyPrefix = "history/"
)

// Config configures the database.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger log.Logger
}

// Store implements storage.SnapshotStore on BadgerDB.
type Store struct {
	db *badger.DB
}

var _ storage.SnapshotStore = (*Store)(nil)

// Open opens (creating if needed) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetCurrent(ctx context.Context) (*domain.Dataset, error) {
	return s.get(ctx, currentKey)
}

func (s *Store) PutCurrent(ctx context.Context, ds *domain.Dataset) error {
	return s.put(ctx, currentKey, ds)
}

func (s *Store) GetHistorical(ctx context.Context, date string) (*domain.Dataset, error) {
	if err := storage.CheckDate(date); err != nil {
		return nil, err
	}
	return s.get(ctx, historyPrefix+date)
}

func (s *Store) PutHistorical(ctx context.Context, date string, ds *domain.Dataset) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	return s.put(ctx, historyPrefix+date, ds)
}

// ListHistorical returns stored dates in ascending order. Badger iterates
// keys in byte order, which is chronological for YYYY-MM-DD.
func (s *Store) ListHistorical(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dates := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(historyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			date := strings.TrimPrefix(string(it.Item().Key()), historyPrefix)
			if domain.ValidDate(date) {
				dates = append(dates, date)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return dates, nil
}

func (s *Store) DeleteHistorical(ctx context.Context, date string) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(historyPrefix + date)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *Store) get(ctx context.Context, key string) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Join(domain.ErrCorrupt, err)
	}
	return &ds, nil
}

func (s *Store) put(ctx context.Context, key string, ds *domain.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// setRaw writes value under key without encoding. Used by tests.
func (s *Store) setRaw(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// badgerLogger adapts a go-kit logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	level.Error(l.logger).Log("msg", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	level.Warn(l.logger).Log("msg", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	level.Info(l.logger).Log("msg", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	level.Debug(l.logger).Log("msg", strings.TrimSpace(fmt.Sprintf(format, args...)))
}
