package core

import (
	"context"
	"strings"

	"woodcore/pkg/domain"
)

// NewSpeciesRequiredRule blocks records that carry no species name.
func NewSpeciesRequiredRule() domain.Rule {
	return speciesRequiredRule{}
}

type speciesRequiredRule struct{}

func (speciesRequiredRule) Name() string { return "species_required" }

func (r speciesRequiredRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, rec := range changedRecords(changes) {
		if strings.TrimSpace(rec.Species) != "" {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  "wood record requires a species",
			Entity:   domain.EntityRecord,
			EntityID: rec.ID,
		})
	}
	return res, nil
}
