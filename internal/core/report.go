package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"woodcore/internal/blob"
)

// Report is the exported inventory snapshot.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []ReportItem `json:"items"`
	Totals      ReportTotals `json:"totals"`
}

// ReportItem is one record as it appears in a report.
type ReportItem struct {
	ID              string     `json:"id"`
	Species         string     `json:"species"`
	Thickness       float64    `json:"thickness_mm"`
	Moisture        float64    `json:"moisture_pct"`
	Treated         bool       `json:"treated"`
	Steps           []StepSpec `json:"steps"`
	ProcessedCount  int        `json:"processed_count"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}

// SpeciesTotals aggregates the records of one species.
type SpeciesTotals struct {
	Species         string  `json:"species"`
	Items           int     `json:"items"`
	Treated         int     `json:"treated"`
	AverageMoisture float64 `json:"average_moisture_pct"`
}

// ReportTotals summarises a report.
type ReportTotals struct {
	Items           int             `json:"items"`
	Treated         int             `json:"treated"`
	AverageMoisture float64         `json:"average_moisture_pct"`
	BySpecies       []SpeciesTotals `json:"by_species"`
}

// BuildReport assembles a report from records in the order given.
func BuildReport(records []Record, at time.Time) Report {
	rep := Report{GeneratedAt: at.UTC(), Items: make([]ReportItem, 0, len(records))}
	species := make(map[string]*SpeciesTotals)
	var moisture float64
	for _, rec := range records {
		rec = rec.Clone()
		rep.Items = append(rep.Items, ReportItem{
			ID:              rec.ID,
			Species:         rec.Species,
			Thickness:       rec.Thickness,
			Moisture:        rec.Moisture,
			Treated:         rec.Treated,
			Steps:           rec.Steps,
			ProcessedCount:  rec.ProcessedCount,
			LastProcessedAt: rec.LastProcessedAt,
		})
		moisture += rec.Moisture
		st, ok := species[rec.Species]
		if !ok {
			st = &SpeciesTotals{Species: rec.Species}
			species[rec.Species] = st
		}
		st.Items++
		st.AverageMoisture += rec.Moisture
		if rec.Treated {
			st.Treated++
			rep.Totals.Treated++
		}
	}
	rep.Totals.Items = len(records)
	if len(records) > 0 {
		rep.Totals.AverageMoisture = moisture / float64(len(records))
	}
	rep.Totals.BySpecies = make([]SpeciesTotals, 0, len(species))
	for _, st := range species {
		st.AverageMoisture /= float64(st.Items)
		rep.Totals.BySpecies = append(rep.Totals.BySpecies, *st)
	}
	sort.Slice(rep.Totals.BySpecies, func(i, j int) bool {
		return rep.Totals.BySpecies[i].Species < rep.Totals.BySpecies[j].Species
	})
	return rep
}

// ReportKey returns the default archive key for a report generated at t.
func ReportKey(t time.Time) string {
	return fmt.Sprintf("reports/%s.json", t.UTC().Format("20060102T150405.000Z"))
}

// ExportReport writes the current inventory as a JSON report to store. An
// empty key selects ReportKey(now). Existing keys are never overwritten.
func (s *Service) ExportReport(ctx context.Context, store blob.Store, key string) (blob.Info, Report, error) {
	var (
		info blob.Info
		rep  Report
	)
	if key == "" {
		key = ReportKey(s.clock.Now())
	}
	_, err := s.run(ctx, "export_report", func(ctx context.Context) (string, Result, error) {
		if store == nil {
			return key, Result{}, fmt.Errorf("export %s: no blob store configured", key)
		}
		var records []Record
		if err := s.store.View(ctx, func(view TransactionView) error {
			records = view.ListRecords()
			return nil
		}); err != nil {
			return key, Result{}, err
		}
		rep = BuildReport(records, s.clock.Now())
		var err error
		info, err = blob.PutJSON(ctx, store, key, rep, map[string]string{
			"items":   strconv.Itoa(rep.Totals.Items),
			"treated": strconv.Itoa(rep.Totals.Treated),
		})
		if err != nil {
			return key, Result{}, fmt.Errorf("export %s: %w", key, err)
		}
		return key, Result{}, nil
	})
	if err != nil {
		return blob.Info{}, Report{}, err
	}
	return info, rep, nil
}

// LoadReport reads a previously exported report back from store.
func LoadReport(ctx context.Context, store blob.Store, key string) (Report, error) {
	var rep Report
	if _, err := blob.GetJSON(ctx, store, key, &rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}
