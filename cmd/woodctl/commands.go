package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"woodcore/internal/blob"
	"woodcore/internal/core"
	"woodcore/pkg/domain"
)

// usageError marks bad invocations. reported is set when flag has already
// written the message to stderr.
type usageError struct {
	err      error
	reported bool
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageStatus reports whether err is a usage error and, if so, whether it
// still needs to be printed.
func usageStatus(err error) (usage, unreported bool) {
	var ue usageError
	if !errors.As(err, &ue) {
		return false, false
	}
	return true, !ue.reported
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("woodctl "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err: err, reported: true}
	}
	if fs.NArg() > 0 {
		return usageError{err: fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) reportViolations(res core.Result) {
	for _, v := range res.Violations {
		_, _ = fmt.Fprintf(a.stdout, "# %s [%s] %s\n", v.Rule, v.Severity, v.Message)
	}
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("add")
	var (
		rec   core.Record
		steps string
	)
	fs.StringVar(&rec.ID, "id", "", "record id (generated when empty)")
	fs.StringVar(&rec.Species, "species", "", "wood species")
	fs.Float64Var(&rec.Thickness, "thickness", 0, "thickness in mm")
	fs.Float64Var(&rec.Moisture, "moisture", 0, "moisture content in percent")
	fs.BoolVar(&rec.Treated, "treated", false, "already treated")
	fs.StringVar(&steps, "steps", "", `processing steps as JSON, e.g. [{"kind":"dry"}]`)
	if err := parse(fs, args); err != nil {
		return err
	}
	if steps != "" {
		if err := json.Unmarshal([]byte(steps), &rec.Steps); err != nil {
			return fmt.Errorf("parse -steps: %w", err)
		}
		if err := validateSteps(rec.Steps); err != nil {
			return fmt.Errorf("parse -steps: %w", err)
		}
	}
	created, res, err := a.svc.AddRecord(ctx, rec)
	a.reportViolations(res)
	if err != nil {
		return err
	}
	return a.printJSON(created)
}

// validateSteps rejects unknown kinds at any depth, including the inner step
// of a conditional.
func validateSteps(steps []domain.StepSpec) error {
	for _, s := range steps {
		for cur := &s; cur != nil; cur = cur.Inner {
			if domain.BuildAction(*cur) == nil {
				return fmt.Errorf("unknown step kind %q", cur.Kind)
			}
		}
	}
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("list")
	asJSON := fs.Bool("json", false, "print records as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	records, err := a.svc.ListRecords(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return a.printJSON(records)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SEQ\tID\tSPECIES\tTHICKNESS\tMOISTURE\tTREATED\tSTEPS\tPROCESSED")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.4f\t%t\t%d\t%d\n",
			r.Seq, r.ID, r.Species, r.Thickness, r.Moisture, r.Treated, len(r.Steps), r.ProcessedCount)
	}
	return tw.Flush()
}

func runProcess(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("process")
	id := fs.String("id", "", "process a single record")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id != "" {
		rec, res, err := a.svc.ProcessRecord(ctx, *id)
		a.reportViolations(res)
		if err != nil {
			return err
		}
		return a.printJSON(rec)
	}
	summary, res, err := a.svc.ProcessAll(ctx)
	a.reportViolations(res)
	if err != nil {
		return err
	}
	return a.printJSON(summary)
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("export")
	key := fs.String("key", "", "blob key (default reports/<timestamp>.json)")
	if err := parse(fs, args); err != nil {
		return err
	}
	store, err := a.openBlob(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	info, rep, err := a.svc.ExportReport(ctx, store, *key)
	if err != nil {
		return err
	}
	url, err := store.PresignURL(ctx, info.Key, blob.SignedURLOptions{})
	if err != nil && !errors.Is(err, blob.ErrUnsupported) {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "exported %s (%d items, %d treated, %d bytes)\n", info.Key, rep.Totals.Items, rep.Totals.Treated, info.Size)
	if err == nil && url != "" {
		_, err = fmt.Fprintln(a.stdout, url)
	}
	return err
}

func runReports(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("reports")
	prefix := fs.String("prefix", "reports/", "key prefix")
	if err := parse(fs, args); err != nil {
		return err
	}
	store, err := a.openBlob(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	infos, err := store.List(ctx, *prefix)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, info := range infos {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.Format("2006-01-02T15:04:05Z07:00"))
	}
	return tw.Flush()
}
