// Command woodctl manages a lumber inventory: it records wood items with
// their processing steps, runs processing batches and exports reports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"woodcore/internal/core"
)

var exitFunc = os.Exit

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
	// storage is the driver used when WOODCORE_STORAGE_DRIVER is unset.
	storage core.StorageDriver
}

var commands = map[string]command{
	"add":     {summary: "add a wood record", run: runAdd},
	"list":    {summary: "list wood records in insertion order", run: runList},
	"process": {summary: "process every record (or one with -id)", run: runProcess},
	"export":  {summary: "export an inventory report to the blob store", run: runExport},
	"reports": {summary: "list exported reports", run: runReports},
	"demo":    {summary: "seed sample records and process them (in memory unless WOODCORE_STORAGE_DRIVER is set)", run: runDemo, storage: core.StorageMemory},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	a, err := openApp(ctx, stdout, stderr, cmd.storage)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "woodctl: %v\n", err)
		return 1
	}
	defer a.Close()
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if usage, unreported := usageStatus(err); usage {
			if unreported {
				_, _ = fmt.Fprintf(stderr, "woodctl %s: %v\n", args[0], err)
			}
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "woodctl %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	_, _ = fmt.Fprintln(w, "usage: woodctl <command> [flags]")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
}
