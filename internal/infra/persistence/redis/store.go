// Package redis provides a Redis-backed persistent store that snapshots the
// in-memory state into a hash after every committed transaction.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"woodcore/internal/infra/persistence/memory"
	"woodcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultAddr   = "localhost:6379"
	defaultKey    = "woodcore:state"
	recordsBucket = "records"
)

// client captures the subset of go-redis commands the store relies on.
type client interface {
	Ping(ctx context.Context) *goredis.StatusCmd
	HGet(ctx context.Context, key, field string) *goredis.StringCmd
	HSet(ctx context.Context, key string, values ...any) *goredis.IntCmd
	Close() error
}

// Config describes how the store connects to Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash holding the snapshot buckets.
	Key string
}

// Store persists state to a Redis hash while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	client client
	key    string
	mu     sync.Mutex
}

// NewStore dials Redis using cfg and hydrates the in-memory store from any existing snapshot.
func NewStore(ctx context.Context, cfg Config, engine *domain.RulesEngine) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	cl := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	store, err := newStoreWithClient(ctx, cl, cfg.Key, engine)
	if err != nil {
		_ = cl.Close()
		return nil, err
	}
	return store, nil
}

func newStoreWithClient(ctx context.Context, cl client, key string, engine *domain.RulesEngine) (*Store, error) {
	if key == "" {
		key = defaultKey
	}
	if err := cl.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), client: cl, key: key}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	payload, err := s.client.HGet(ctx, s.key, recordsBucket).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", recordsBucket, err)
	}
	var snapshot memory.Snapshot
	if err := json.Unmarshal(payload, &snapshot.Records); err != nil {
		return fmt.Errorf("decode %s: %w", recordsBucket, err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	data, err := json.Marshal(snapshot.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, recordsBucket, data).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", recordsBucket, err)
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots to Redis if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Key returns the hash key holding the snapshot.
func (s *Store) Key() string { return s.key }

// Close releases the Redis connection.
func (s *Store) Close() error { return s.client.Close() }
