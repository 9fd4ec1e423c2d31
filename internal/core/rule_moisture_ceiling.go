package core

import (
	"context"
	"fmt"

	"woodcore/pkg/domain"
)

// NewMoistureCeilingRule warns when treated stock sits above ceiling percent moisture.
func NewMoistureCeilingRule(ceiling float64) domain.Rule {
	return moistureCeilingRule{ceiling: ceiling}
}

type moistureCeilingRule struct {
	ceiling float64
}

func (moistureCeilingRule) Name() string { return "moisture_ceiling" }

func (r moistureCeilingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, rec := range changedRecords(changes) {
		if !rec.Treated || rec.Moisture <= r.ceiling {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("treated %s at %.2f%% moisture exceeds %.0f%%", rec.Species, rec.Moisture, r.ceiling),
			Entity:   domain.EntityRecord,
			EntityID: rec.ID,
		})
	}
	return res, nil
}
