package core

import "woodcore/pkg/domain"

// KilnDryMoistureCeiling is the moisture percentage above which treated
// stock is flagged as not kiln-dry.
const KilnDryMoistureCeiling = 19.0

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewSpeciesRequiredRule())
	engine.Register(NewMoistureCeilingRule(KilnDryMoistureCeiling))
	engine.Register(NewTreatmentPendingRule())
	return engine
}

// changedRecords returns the post-change state of every record touched by
// the transaction, in change order.
func changedRecords(changes []Change) []Record {
	out := make([]Record, 0, len(changes))
	for _, change := range changes {
		if change.Entity != domain.EntityRecord {
			continue
		}
		if rec, ok := change.After.(Record); ok {
			out = append(out, rec)
		}
	}
	return out
}
