package core

import (
	"context"
	"testing"

	"woodcore/pkg/domain"
)

func recordChange(after Record) []Change {
	return []Change{{Entity: domain.EntityRecord, Action: domain.OperationUpdate, After: after}}
}

func TestDefaultRulesEngineRegistration(t *testing.T) {
	names := NewDefaultRulesEngine().Rules()
	want := []string{"species_required", "moisture_ceiling", "treatment_pending"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestSpeciesRequiredRule(t *testing.T) {
	rule := NewSpeciesRequiredRule()
	res, err := rule.Evaluate(context.Background(), nil, recordChange(Record{Base: domain.Base{ID: "r1"}, Species: " \t"}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() || res.Violations[0].EntityID != "r1" {
		t.Fatalf("expected blocking violation, got %+v", res)
	}
	res, _ = rule.Evaluate(context.Background(), nil, recordChange(Record{Species: "Ash"}))
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violation, got %+v", res)
	}
}

func TestMoistureCeilingRule(t *testing.T) {
	rule := NewMoistureCeilingRule(KilnDryMoistureCeiling)
	cases := []struct {
		name     string
		rec      Record
		violates bool
	}{
		{"treated wet", Record{Species: "Oak", Moisture: 19.5, Treated: true}, true},
		{"treated at ceiling", Record{Species: "Oak", Moisture: 19, Treated: true}, false},
		{"untreated wet", Record{Species: "Oak", Moisture: 40}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := rule.Evaluate(context.Background(), nil, recordChange(tc.rec))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if (len(res.Violations) == 1) != tc.violates {
				t.Fatalf("violates=%v, got %+v", tc.violates, res.Violations)
			}
			if tc.violates && res.Violations[0].Severity != domain.SeverityWarn {
				t.Fatalf("expected warn severity, got %s", res.Violations[0].Severity)
			}
		})
	}
}

func TestTreatmentPendingRule(t *testing.T) {
	rule := NewTreatmentPendingRule()
	gated := []StepSpec{{Kind: domain.StepConditional, Predicate: domain.PredicateMoistureAbove, Threshold: 14,
		Inner: &StepSpec{Kind: domain.StepConditional, Predicate: domain.PredicateMoistureAbove, Threshold: 10, Inner: &StepSpec{Kind: domain.StepTreat}}}}
	cases := []struct {
		name     string
		rec      Record
		violates bool
	}{
		{"processed untreated nested gate", Record{Species: "Fir", ProcessedCount: 1, Steps: gated}, true},
		{"not yet processed", Record{Species: "Fir", Steps: gated}, false},
		{"already treated", Record{Species: "Fir", ProcessedCount: 1, Treated: true, Steps: gated}, false},
		{"no gated treatment", Record{Species: "Fir", ProcessedCount: 1, Steps: []StepSpec{{Kind: domain.StepTreat}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := rule.Evaluate(context.Background(), nil, recordChange(tc.rec))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if (len(res.Violations) == 1) != tc.violates {
				t.Fatalf("violates=%v, got %+v", tc.violates, res.Violations)
			}
		})
	}
}

func TestChangedRecordsSkipsForeignPayloads(t *testing.T) {
	changes := []Change{
		{Entity: "other", After: Record{Species: "x"}},
		{Entity: domain.EntityRecord, After: "not a record"},
		{Entity: domain.EntityRecord, After: Record{Species: "Elm"}},
	}
	got := changedRecords(changes)
	if len(got) != 1 || got[0].Species != "Elm" {
		t.Fatalf("unexpected records %+v", got)
	}
}
