package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config holds all configuration for the application.
type Config struct {
	Fetch     FetchConfig
	Store     StoreConfig
	Retention RetentionConfig
	Server    ServerConfig
	Metrics   MetricsConfig
	Publish   PublishConfig
	Log       LogConfig
}

// FetchConfig holds service tag download configuration.
type FetchConfig struct {
	URL         string        `env:"SERVICE_TAGS_URL" envDefault:"https://www.microsoft.com/en-us/download/confirmation.aspx?id=56519"`
	DirectURL   string        `env:"SERVICE_TAGS_DIRECT_URL"` // JSON URL, skips scraping the confirmation page
	File        string        `env:"SERVICE_TAGS_FILE"`       // Local JSON file, disables network fetches
	MaxRetries  int           `env:"FETCH_MAX_RETRIES" envDefault:"3"`
	RetryDelay  time.Duration `env:"FETCH_RETRY_DELAY" envDefault:"2s"`
	PageTimeout time.Duration `env:"FETCH_PAGE_TIMEOUT" envDefault:"60s"`
	JSONTimeout time.Duration `env:"FETCH_JSON_TIMEOUT" envDefault:"120s"`
	UserAgent   string        `env:"FETCH_USER_AGENT" envDefault:"Azure-Service-Tag-Dashboard/1.0"`
}

// StoreConfig holds snapshot storage configuration.
type StoreConfig struct {
	Backend     string `env:"STORE_BACKEND" envDefault:"file"`
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN       string `env:"DB_DSN" envDefault:"data/snapshots.db"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"redis://localhost:6379/0"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"servicetags"`
	BadgerPath  string `env:"BADGER_PATH" envDefault:"data/badger"`
}

// RetentionConfig holds history retention configuration.
type RetentionConfig struct {
	KeepWeeks int `env:"RETENTION_KEEP_WEEKS" envDefault:"12"`
}

// ServerConfig holds read API server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// MetricsConfig holds run metrics export configuration.
type MetricsConfig struct {
	Textfile     string `env:"METRICS_TEXTFILE"`
	InfluxURL    string `env:"INFLUXDB_URL"`
	InfluxToken  string `env:"INFLUXDB_TOKEN"`
	InfluxOrg    string `env:"INFLUXDB_ORG" envDefault:"servicetags"`
	InfluxBucket string `env:"INFLUXDB_BUCKET" envDefault:"servicetags"`
}

// PublishConfig holds dashboard publishing configuration.
type PublishConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	Prefix          string `env:"GCS_PREFIX" envDefault:"data"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
	Parallelism     int    `env:"GCS_PARALLELISM" envDefault:"8"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"logfmt"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Fetch); err != nil {
		return nil, fmt.Errorf("parsing fetch config: %w", err)
	}
	if err := env.Parse(&cfg.Store); err != nil {
		return nil, fmt.Errorf("parsing store config: %w", err)
	}
	if err := env.Parse(&cfg.Retention); err != nil {
		return nil, fmt.Errorf("parsing retention config: %w", err)
	}
	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Metrics); err != nil {
		return nil, fmt.Errorf("parsing metrics config: %w", err)
	}
	if err := env.Parse(&cfg.Publish); err != nil {
		return nil, fmt.Errorf("parsing publish config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Retention returns the retention window as a duration.
func (c *RetentionConfig) Retention() time.Duration {
	return time.Duration(c.KeepWeeks) * 7 * 24 * time.Hour
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Fetch.File == "" && c.Fetch.URL == "" && c.Fetch.DirectURL == "" {
		return fmt.Errorf("SERVICE_TAGS_URL, SERVICE_TAGS_DIRECT_URL or SERVICE_TAGS_FILE is required")
	}
	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be at least 1")
	}
	if c.Fetch.RetryDelay < 0 {
		return fmt.Errorf("FETCH_RETRY_DELAY must not be negative")
	}

	switch c.Store.Backend {
	case BackendFile:
	case BackendSQL:
		if c.Store.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for the sql backend")
		}
		if c.Store.DBDriver != "sqlite3" && c.Store.DBDriver != "postgres" {
			return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendBadger:
		if c.Store.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of file, sql, redis, badger")
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}

	if c.Retention.KeepWeeks < 1 {
		return fmt.Errorf("RETENTION_KEEP_WEEKS must be at least 1")
	}

	if c.Metrics.InfluxURL != "" && c.Metrics.InfluxToken == "" {
		return fmt.Errorf("INFLUXDB_TOKEN is required when INFLUXDB_URL is set")
	}

	if c.Publish.Bucket != "" && c.Publish.Parallelism < 1 {
		return fmt.Errorf("GCS_PARALLELISM must be at least 1")
	}

	switch strings.ToLower(c.Log.Format) {
	case "logfmt", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be logfmt or json")
	}

	return nil
}

// UseFileSource returns true if the dataset should be read from a local file.
func (c *Config) UseFileSource() bool {
	return c.Fetch.File != ""
}

// PublishEnabled returns true if the data directory should be uploaded after a run.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Bucket != ""
}
