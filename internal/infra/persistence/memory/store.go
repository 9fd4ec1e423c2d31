// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"woodcore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Record aliases domain.Record for in-memory persistence operations.
	Record = domain.Record
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	records map[string]Record
	nextSeq int64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Records map[string]Record `json:"records"`
}

func newMemoryState() memoryState {
	return memoryState{records: make(map[string]Record), nextSeq: 1}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Records: make(map[string]Record, len(state.records))}
	for k, v := range state.records {
		s.Records[k] = v.Clone()
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Records {
		state.records[k] = v.Clone()
		if v.Seq >= state.nextSeq {
			state.nextSeq = v.Seq + 1
		}
	}
	return state
}

func (s memoryState) clone() memoryState {
	out := memoryState{records: make(map[string]Record, len(s.records)), nextSeq: s.nextSeq}
	for k, v := range s.records {
		out.records[k] = v.Clone()
	}
	return out
}

func (s memoryState) ordered() []Record {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Store provides an in-memory transactional store for wood records.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider; nil restores the UTC wall clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListRecords returns all records in insertion order.
func (v transactionView) ListRecords() []Record {
	return v.state.ordered()
}

// FindRecord returns the record with the given ID.
func (v transactionView) FindRecord(id string) (Record, bool) {
	r, ok := v.state.records[id]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

// RunInTransaction applies fn to a cloned state, evaluates rules over the
// result and commits only when no blocking violation is reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindRecord exposes record lookup within the transaction scope.
func (tx *transaction) FindRecord(id string) (Record, bool) {
	return newTransactionView(&tx.state).FindRecord(id)
}

// ListRecords lists records within the transaction scope.
func (tx *transaction) ListRecords() []Record {
	return tx.state.ordered()
}

// CreateRecord stores a new record, assigning an ID when absent and the next sequence number.
func (tx *transaction) CreateRecord(record Record) (Record, error) {
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		record.ID = tx.store.newID()
	}
	if _, exists := tx.state.records[record.ID]; exists {
		return Record{}, fmt.Errorf("wood record %q already exists", record.ID)
	}
	record.CreatedAt = tx.now
	record.UpdatedAt = tx.now
	record.Seq = tx.state.nextSeq
	tx.state.nextSeq++
	record = record.Clone()
	tx.state.records[record.ID] = record
	tx.recordChange(Change{Entity: domain.EntityRecord, Action: domain.OperationCreate, After: record.Clone()})
	return record.Clone(), nil
}

// UpdateRecord mutates a record through mutator. Identity, sequence and
// creation time are preserved regardless of what the mutator does.
func (tx *transaction) UpdateRecord(id string, mutator func(*Record) error) (Record, error) {
	current, ok := tx.state.records[id]
	if !ok {
		return Record{}, fmt.Errorf("wood record %q not found", id)
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return Record{}, err
	}
	updated.ID = current.ID
	updated.Seq = current.Seq
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = tx.now
	tx.state.records[id] = updated
	tx.recordChange(Change{Entity: domain.EntityRecord, Action: domain.OperationUpdate, Before: before, After: updated.Clone()})
	return updated.Clone(), nil
}

// GetRecord retrieves a record by ID.
func (s *Store) GetRecord(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.records[id]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

// ListRecords returns all records in insertion order.
func (s *Store) ListRecords() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ordered()
}
