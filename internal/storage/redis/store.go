// Package redis stores snapshots in Redis.
//
// Keys, for a prefix P:
//
//	P:current        current snapshot JSON
//	P:history:<date> historical snapshot JSON
//	P:history        sorted set of stored dates (all scores 0, lexical order)
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

// Store implements storage.SnapshotStore on a Redis server.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ storage.SnapshotStore = (*Store)(nil)

// NewUniversalClient creates a client from a redis:// URL.
func NewUniversalClient(redisAddr string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("cant parse redis url: %w", err)
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		TLSConfig:    opts.TLSConfig,
	}), nil
}

// New creates a store using client. Keys are namespaced under prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) currentKey() string {
	return s.prefix + ":current"
}

func (s *Store) indexKey() string {
	return s.prefix + ":history"
}

func (s *Store) historyKey(date string) string {
	return s.prefix + ":history:" + date
}

func (s *Store) GetCurrent(ctx context.Context) (*domain.Dataset, error) {
	return s.get(ctx, s.currentKey())
}

func (s *Store) PutCurrent(ctx context.Context, ds *domain.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.currentKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("can't write current snapshot to redis, err: %w", err)
	}
	return nil
}

func (s *Store) GetHistorical(ctx context.Context, date string) (*domain.Dataset, error) {
	if err := storage.CheckDate(date); err != nil {
		return nil, err
	}
	return s.get(ctx, s.historyKey(date))
}

func (s *Store) PutHistorical(ctx context.Context, date string, ds *domain.Dataset) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.historyKey(date), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), &redis.Z{Score: 0, Member: date})
		return nil
	})
	if err != nil {
		return fmt.Errorf("can't write snapshot %s to redis, err: %w", date, err)
	}
	return nil
}

func (s *Store) ListHistorical(ctx context.Context) ([]string, error) {
	dates, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list history error, err: %w", err)
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}

func (s *Store) DeleteHistorical(ctx context.Context, date string) error {
	if err := storage.CheckDate(date); err != nil {
		return err
	}
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.historyKey(date))
		pipe.ZRem(ctx, s.indexKey(), date)
		return nil
	})
	if err != nil {
		return fmt.Errorf("can't delete snapshot %s from redis, err: %w", date, err)
	}
	if del.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (*domain.Dataset, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get key error (key='%s'), err: %w", key, err)
	}
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Join(domain.ErrCorrupt, err)
	}
	return &ds, nil
}
