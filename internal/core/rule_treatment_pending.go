package core

import (
	"context"
	"fmt"

	"woodcore/pkg/domain"
)

// NewTreatmentPendingRule notes processed records whose conditional
// treatment has not fired yet.
func NewTreatmentPendingRule() domain.Rule {
	return treatmentPendingRule{}
}

type treatmentPendingRule struct{}

func (treatmentPendingRule) Name() string { return "treatment_pending" }

func (r treatmentPendingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, rec := range changedRecords(changes) {
		if rec.Treated || rec.ProcessedCount == 0 || !gatesTreatment(rec.Steps) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityLog,
			Message:  fmt.Sprintf("%s at %.2f%% moisture still awaits conditional treatment", rec.Species, rec.Moisture),
			Entity:   domain.EntityRecord,
			EntityID: rec.ID,
		})
	}
	return res, nil
}

func gatesTreatment(steps []domain.StepSpec) bool {
	for _, step := range steps {
		if step.Gates(domain.StepTreat) {
			return true
		}
	}
	return false
}
