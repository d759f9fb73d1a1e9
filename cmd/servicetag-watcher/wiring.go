package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/bcnelson/servicetag-watcher/internal/config"
	"github.com/bcnelson/servicetag-watcher/internal/dashboard"
	"github.com/bcnelson/servicetag-watcher/internal/logging"
	"github.com/bcnelson/servicetag-watcher/internal/metrics"
	"github.com/bcnelson/servicetag-watcher/internal/publish"
	"github.com/bcnelson/servicetag-watcher/internal/retention"
	"github.com/bcnelson/servicetag-watcher/internal/service"
	"github.com/bcnelson/servicetag-watcher/internal/source"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
	badgerstore "github.com/bcnelson/servicetag-watcher/internal/storage/badger"
	"github.com/bcnelson/servicetag-watcher/internal/storage/file"
	redisstore "github.com/bcnelson/servicetag-watcher/internal/storage/redis"
	"github.com/bcnelson/servicetag-watcher/internal/storage/sql"
)

// openStore opens the snapshot store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, logger log.Logger) (storage.SnapshotStore, error) {
	logger = logging.Component(logger, "store")
	level.Info(logger).Log("msg", "opening snapshot store", "backend", cfg.Store.Backend)

	var (
		store storage.SnapshotStore
		err   error
	)
	switch cfg.Store.Backend {
	case config.BackendFile:
		store, err = file.New(cfg.Store.DataDir)

	case config.BackendSQL:
		if cfg.Store.DBDriver == "sqlite3" {
			if err := os.MkdirAll(filepath.Dir(cfg.Store.DBDSN), 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		store, err = sql.New(cfg.Store.DBDriver, cfg.Store.DBDSN)

	case config.BackendRedis:
		client, err := redisstore.NewUniversalClient(cfg.Store.RedisAddr)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = redisstore.New(client, cfg.Store.RedisPrefix)

	case config.BackendBadger:
		store, err = badgerstore.Open(badgerstore.Config{
			Path:       cfg.Store.BadgerPath,
			SyncWrites: true,
			Logger:     logging.Component(logger, "badger"),
		})

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	return store, nil
}

// newSource returns the file source when SERVICE_TAGS_FILE is set and the
// HTTP source otherwise.
func newSource(cfg *config.Config, logger log.Logger) source.Source {
	logger = logging.Component(logger, "source")
	if cfg.UseFileSource() {
		level.Info(logger).Log("msg", "using local dataset file", "path", cfg.Fetch.File)
		return source.NewFileSource(cfg.Fetch.File, logger)
	}
	return source.NewHTTPSource(source.HTTPConfig{
		PageURL:     cfg.Fetch.URL,
		DirectURL:   cfg.Fetch.DirectURL,
		UserAgent:   cfg.Fetch.UserAgent,
		MaxRetries:  cfg.Fetch.MaxRetries,
		RetryDelay:  cfg.Fetch.RetryDelay,
		PageTimeout: cfg.Fetch.PageTimeout,
		JSONTimeout: cfg.Fetch.JSONTimeout,
	}, nil, logger)
}

func newSweeper(store storage.SnapshotStore, cfg *config.Config, logger log.Logger) *retention.Sweeper {
	return retention.NewSweeper(
		store,
		filepath.Join(cfg.Store.DataDir, dashboard.ChangesDir),
		cfg.Retention.KeepWeeks,
		logging.Component(logger, "retention"),
	)
}

// newRecorder builds the metrics recorders that are configured. The
// returned func releases their clients.
func newRecorder(cfg *config.Config) (metrics.Recorder, func()) {
	var (
		recorders metrics.Multi
		closers   []func()
	)
	if cfg.Metrics.Textfile != "" {
		recorders = append(recorders, metrics.NewPrometheus(cfg.Metrics.Textfile))
	}
	if cfg.Metrics.InfluxURL != "" {
		client, influx := metrics.NewInfluxClient(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		recorders = append(recorders, influx)
		closers = append(closers, client.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(recorders) == 0 {
		return nil, closeAll
	}
	return recorders, closeAll
}

// newPublisher returns nil when publishing is not configured.
func newPublisher(ctx context.Context, cfg *config.Config, logger log.Logger) (service.Publisher, func(), error) {
	noop := func() {}
	if !cfg.PublishEnabled() {
		return nil, noop, nil
	}
	uploader, err := publish.NewGCSUploader(ctx, cfg.Publish.Bucket, cfg.Publish.CredentialsFile)
	if err != nil {
		return nil, noop, err
	}
	p := publish.NewPublisher(uploader, cfg.Publish.Prefix, cfg.Publish.Parallelism, logging.Component(logger, "publish"))
	return p, func() { _ = uploader.Close() }, nil
}
