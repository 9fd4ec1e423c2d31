package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"woodcore/internal/core"
	"woodcore/pkg/domain"
)

func treatAbove(threshold float64) domain.StepSpec {
	return domain.StepSpec{
		Kind:      domain.StepConditional,
		Predicate: domain.PredicateMoistureAbove,
		Threshold: threshold,
		Inner:     &domain.StepSpec{Kind: domain.StepTreat},
	}
}

// demoRecords seeds one record per step shape, with the conditional
// treatment exercised on both sides of its threshold.
func demoRecords() []core.Record {
	return []core.Record{
		{Species: "Oak", Thickness: 25, Moisture: 15, Steps: []domain.StepSpec{{Kind: domain.StepCut, Length: 2.5}}},
		{Species: "Teak", Thickness: 15, Moisture: 15, Steps: []domain.StepSpec{{Kind: domain.StepDry}}},
		{Species: "Walnut", Thickness: 18, Moisture: 12, Steps: []domain.StepSpec{treatAbove(10)}},
		{Species: "Cedar", Thickness: 22, Moisture: 12, Steps: []domain.StepSpec{treatAbove(15)}},
		{Species: "Mahogany", Thickness: 20, Moisture: 14, Steps: []domain.StepSpec{{Kind: domain.StepDry}, {Kind: domain.StepTreat}}},
	}
}

func runDemo(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("demo")
	var passes int
	fs.IntVar(&passes, "passes", 1, "number of processing passes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if passes < 0 {
		return usageError{err: fmt.Errorf("-passes must be >= 0")}
	}
	for _, rec := range demoRecords() {
		_, res, err := a.svc.AddRecord(ctx, rec)
		a.reportViolations(res)
		if err != nil {
			return err
		}
	}
	for i := 0; i < passes; i++ {
		summary, res, err := a.svc.ProcessAll(ctx)
		if err != nil {
			return err
		}
		a.reportViolations(res)
		_, _ = fmt.Fprintf(a.stdout, "pass %d: processed %d, newly treated %d, moisture %.2f%% -> %.2f%%\n",
			i+1, summary.Processed, summary.NewlyTreated, summary.AverageMoistureFrom, summary.AverageMoistureTo)
	}
	records, err := a.svc.ListRecords(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SPECIES\tTHICKNESS\tMOISTURE\tTREATED")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%t\n", r.Species, r.Thickness, r.Moisture, r.Treated)
	}
	return tw.Flush()
}
