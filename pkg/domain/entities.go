// Package domain defines the wood processing core: records, processing
// actions, the inventory aggregate, and the persistent record shapes and
// rule evaluation primitives used by woodcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityRecord identifies a persisted wood record.
	EntityRecord EntityType = "wood_record"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	// SeverityLog is informational.
	SeverityLog Severity = "log"
)

// Base contains common fields for all persisted records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is the persisted counterpart of a WoodItem. Steps are carried as
// StepSpec values so they survive serialization.
type Record struct {
	Base
	Seq             int64      `json:"seq"`
	Species         string     `json:"species"`
	Thickness       float64    `json:"thickness_mm"`
	Moisture        float64    `json:"moisture_pct"`
	Treated         bool       `json:"treated"`
	Steps           []StepSpec `json:"steps"`
	ProcessedCount  int        `json:"processed_count"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}

// Item materialises a WoodItem owning freshly built actions for every step.
func (r Record) Item() *WoodItem {
	return NewWoodItem(r.Species, r.Thickness, r.Moisture, r.Treated, BuildActions(r.Steps))
}

// Absorb copies the mutable state of a processed item back onto the record.
func (r *Record) Absorb(item ItemView) {
	r.Moisture = item.Moisture()
	r.Treated = item.IsTreated()
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Steps = CloneStepSpecs(r.Steps)
	if r.LastProcessedAt != nil {
		t := *r.LastProcessedAt
		out.LastProcessedAt = &t
	}
	return out
}

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Operation
	Before any
	After  any
}

// Operation indicates the type of modification performed.
type Operation string

// Change operations captured in the audit trail.
const (
	// OperationCreate indicates an entity was created.
	OperationCreate Operation = "create"
	// OperationUpdate indicates an entity was updated.
	OperationUpdate Operation = "update"
)

// Violation reports a rule finding.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
