// Package core hosts the woodcore service layer: transactional record
// operations, batch processing, report export and the built-in rule set.
package core

import (
	"fmt"

	"woodcore/pkg/domain"
)

type (
	// Record aliases domain.Record.
	Record = domain.Record
	// StepSpec aliases domain.StepSpec.
	StepSpec = domain.StepSpec
	// Result aliases domain.Result.
	Result = domain.Result
	// Violation aliases domain.Violation.
	Violation = domain.Violation
	// Change aliases domain.Change.
	Change = domain.Change
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }

// ErrNotFound indicates the requested entity does not exist.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
