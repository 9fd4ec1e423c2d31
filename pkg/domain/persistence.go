package domain

import "context"

// Transaction exposes the record operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateRecord(Record) (Record, error)
	UpdateRecord(id string, mutator func(*Record) error) (Record, error)
	FindRecord(id string) (Record, bool)
	ListRecords() []Record
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListRecords() []Record
	FindRecord(id string) (Record, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetRecord(id string) (Record, bool)
	ListRecords() []Record
}
