// Package config provides unified configuration loading for the segmentation
// engine. Supports YAML files, a local .env file and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/segmenta-ai/segment-engine/internal/segment"
)

// Config holds all configuration for the segmentation engine.
type Config struct {
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Detector      DetectorConfig      `yaml:"detector"`
	Cache         CacheConfig         `yaml:"cache"`
	Storage       StorageConfig       `yaml:"storage"`
	Batch         BatchConfig         `yaml:"batch"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ChunkingConfig holds chunker parameters.
type ChunkingConfig struct {
	MaxCharacters int `yaml:"max_characters"`
	Overlap       int `yaml:"overlap"`
}

// DetectorConfig holds language detection settings. An optional indicator
// file replaces the shipped indicator table.
type DetectorConfig struct {
	AcceptThreshold    float64 `yaml:"accept_threshold"`
	MinConfidence      float64 `yaml:"min_confidence"`
	DominanceThreshold float64 `yaml:"dominance_threshold"`
	IndicatorFile      string  `yaml:"indicator_file"`
}

// CacheConfig holds pipeline result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// StorageConfig holds run-store settings.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// BatchConfig holds batch runner settings.
type BatchConfig struct {
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies .env plus
// environment overrides. An empty path loads defaults and overrides only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for
// development.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxCharacters: 512,
			Overlap:       64,
		},
		Detector: DetectorConfig{
			AcceptThreshold:    segment.DefaultAcceptThreshold,
			MinConfidence:      segment.DefaultMinConfidence,
			DominanceThreshold: segment.DefaultDominanceThreshold,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/segment-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Batch: BatchConfig{
			MaxConcurrentJobs: 4,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Chunking.MaxCharacters <= 0 {
		return fmt.Errorf("chunking max_characters must be positive, got %d", c.Chunking.MaxCharacters)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxCharacters {
		return fmt.Errorf("chunking overlap must be in [0, max_characters), got %d", c.Chunking.Overlap)
	}

	if c.Detector.AcceptThreshold < 0 || c.Detector.AcceptThreshold >= 1 {
		return fmt.Errorf("detector accept_threshold must be in [0, 1), got %v", c.Detector.AcceptThreshold)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector min_confidence must be in [0, 1], got %v", c.Detector.MinConfidence)
	}
	if c.Detector.DominanceThreshold <= 0 || c.Detector.DominanceThreshold > 1 {
		return fmt.Errorf("detector dominance_threshold must be in (0, 1], got %v", c.Detector.DominanceThreshold)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}
	if c.Batch.MaxConcurrentJobs < 1 {
		return fmt.Errorf("batch max_concurrent_jobs must be at least 1")
	}
	return nil
}

// StorageDSN returns the connection string for the configured driver.
func (c *Config) StorageDSN() string {
	if c.Storage.Driver == "sqlite" {
		return c.Storage.SQLite.Path
	}
	return c.Storage.Postgres.DSN
}

// DetectorIndicators loads the configured indicator table, falling back to
// the shipped defaults when no indicator file is set.
func (c *Config) DetectorIndicators() (map[string]segment.Indicator, error) {
	if c.Detector.IndicatorFile == "" {
		return segment.DefaultIndicators(), nil
	}

	data, err := os.ReadFile(c.Detector.IndicatorFile)
	if err != nil {
		return nil, fmt.Errorf("read indicator file: %w", err)
	}
	indicators := make(map[string]segment.Indicator)
	if err := yaml.Unmarshal(data, &indicators); err != nil {
		return nil, fmt.Errorf("parse indicator file: %w", err)
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("indicator file %s defines no languages", c.Detector.IndicatorFile)
	}
	return indicators, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHUNK_MAX_CHARACTERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.MaxCharacters = n
		}
	}
	if v := os.Getenv("CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Overlap = n
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Storage.Driver = "postgres"
			cfg.Storage.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.MaxConcurrentJobs = n
		}
	}

	if v := os.Getenv("LANGUAGE_INDICATOR_FILE"); v != "" {
		cfg.Detector.IndicatorFile = v
	}
}
