// Package sqlite provides a snapshotting SQLite-backed persistent store that
// reuses the in-memory implementation for transactions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"woodcore/internal/infra/persistence/memory"
	"woodcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "woodcore.db"

const stateDDL = `CREATE TABLE IF NOT EXISTS state (
	bucket TEXT PRIMARY KEY,
	payload BLOB NOT NULL
)`

const recordsDDL = `CREATE TABLE IF NOT EXISTS wood_records (
	id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	species TEXT NOT NULL,
	thickness_mm REAL NOT NULL,
	moisture_pct REAL NOT NULL,
	treated INTEGER NOT NULL,
	processed_count INTEGER NOT NULL
)`

const recordsBucket = "records"

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction and keeps a
// queryable wood_records projection alongside it.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, ddl := range []string{stateDDL, recordsDDL} {
		if _, err := db.Exec(ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply ddl: %w", err)
		}
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, recordsBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snapshot memory.Snapshot
	if err := json.Unmarshal(payload, &snapshot.Records); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	data, err := json.Marshal(snapshot.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, recordsBucket, data); err != nil {
		return fmt.Errorf("upsert %s: %w", recordsBucket, err)
	}
	for _, rec := range snapshot.Records {
		if _, err = tx.ExecContext(ctx, `INSERT INTO wood_records(id,seq,species,thickness_mm,moisture_pct,treated,processed_count) VALUES(?,?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET moisture_pct=excluded.moisture_pct, treated=excluded.treated, processed_count=excluded.processed_count`,
			rec.ID, rec.Seq, rec.Species, rec.Thickness, rec.Moisture, rec.Treated, rec.ProcessedCount); err != nil {
			return fmt.Errorf("upsert wood record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
