package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/segmenta-ai/segment-engine/cmd/segmentctl/ui"
	"github.com/segmenta-ai/segment-engine/internal/cache"
	"github.com/segmenta-ai/segment-engine/internal/config"
	"github.com/segmenta-ai/segment-engine/internal/observability"
	"github.com/segmenta-ai/segment-engine/internal/pipeline"
	"github.com/segmenta-ai/segment-engine/internal/storage"
)

// loadConfig loads the config file and applies CLI flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Observability.LogLevel = "debug"
	}
	ui.Init(noColor, verbose)
	return cfg, nil
}

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "segmentctl",
	})
}

// newCacheClient builds the configured cache backend.
func newCacheClient(cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}

// buildPipeline wires config, logger and cache into a ready pipeline. The
// returned cache client must be closed by the caller.
func buildPipeline(cfg *config.Config, logger *observability.Logger) (*pipeline.Pipeline, cache.Client, error) {
	cacheClient, err := newCacheClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("cache connection: %w", err)
	}
	pipe, err := pipeline.New(cfg, logger, cacheClient)
	if err != nil {
		cacheClient.Close()
		return nil, nil, err
	}
	return pipe, cacheClient, nil
}

// openDatabase opens the run store for the configured driver.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	var driver string
	switch cfg.Storage.Driver {
	case "sqlite":
		driver = "sqlite3"
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}

	db, err := storage.Open(ctx, driver, cfg.StorageDSN())
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == "sqlite" {
		db.SetMaxOpenConns(cfg.Storage.SQLite.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(cfg.Storage.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Storage.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Storage.Postgres.ConnMaxLifetime)
	}
	return db, nil
}

func formatPage(page *int) string {
	if page == nil {
		return "-"
	}
	return strconv.Itoa(*page)
}

func formatConfidence(confidence float64) string {
	return strconv.FormatFloat(confidence, 'f', 1, 64)
}
