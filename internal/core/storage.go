package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"woodcore/internal/infra/persistence/memory"
	"woodcore/internal/infra/persistence/postgres"
	"woodcore/internal/infra/persistence/redis"
	"woodcore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis hash snapshot
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	WOODCORE_STORAGE_DRIVER: memory|sqlite|postgres|redis (default sqlite)
//	WOODCORE_SQLITE_PATH: path to sqlite file (default ./woodcore.db)
//	WOODCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	WOODCORE_REDIS_ADDR, WOODCORE_REDIS_PASSWORD, WOODCORE_REDIS_DB, WOODCORE_REDIS_KEY
func OpenPersistentStore(ctx context.Context, engine *RulesEngine) (PersistentStore, error) {
	return OpenPersistentStoreOr(ctx, engine, StorageSQLite)
}

// OpenPersistentStoreOr is OpenPersistentStore with fallback used when
// WOODCORE_STORAGE_DRIVER is unset. An empty fallback means sqlite.
func OpenPersistentStoreOr(ctx context.Context, engine *RulesEngine, fallback StorageDriver) (PersistentStore, error) {
	driver := os.Getenv("WOODCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(fallback)
	}
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		ss, err := NewSQLiteStore(os.Getenv("WOODCORE_SQLITE_PATH"), engine)
		if err != nil {
			return nil, err
		}
		return ss, nil
	case StoragePostgres:
		ps, err := NewPostgresStore(os.Getenv("WOODCORE_POSTGRES_DSN"), engine)
		if err != nil {
			return nil, err
		}
		return ps, nil
	case StorageRedis:
		cfg, err := redisConfigFromEnv()
		if err != nil {
			return nil, err
		}
		rs, err := NewRedisStore(ctx, cfg, engine)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

func redisConfigFromEnv() (redis.Config, error) {
	cfg := redis.Config{
		Addr:     os.Getenv("WOODCORE_REDIS_ADDR"),
		Password: os.Getenv("WOODCORE_REDIS_PASSWORD"),
		Key:      os.Getenv("WOODCORE_REDIS_KEY"),
	}
	if raw := os.Getenv("WOODCORE_REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return redis.Config{}, fmt.Errorf("parse WOODCORE_REDIS_DB: %w", err)
		}
		cfg.DB = db
	}
	return cfg, nil
}

// NewSQLiteStore constructs a SQLite-backed persistent store; an empty path selects the default file.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}

// NewPostgresStore constructs a Postgres-backed store from the provided DSN.
func NewPostgresStore(dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(ctx context.Context, cfg redis.Config, engine *RulesEngine) (*redis.Store, error) {
	return redis.NewStore(ctx, cfg, engine)
}

// CloseStore releases the store's resources when it holds any.
func CloseStore(store PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
