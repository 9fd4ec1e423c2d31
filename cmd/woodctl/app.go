package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"woodcore/internal/blob"
	"woodcore/internal/core"
	"woodcore/internal/events"
)

// app holds the wiring for one command invocation.
type app struct {
	svc      *core.Service
	store    core.PersistentStore
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	metrics  *core.PrometheusMetricsRecorder
	server   *http.Server
	closers  []func() error
	openBlob func(context.Context) (blob.Store, error)
}

func openApp(ctx context.Context, stdout, stderr io.Writer, storage core.StorageDriver) (*app, error) {
	logger, err := newLogger(stderr, os.Getenv("WOODCORE_LOG_FORMAT"), os.Getenv("WOODCORE_LOG_LEVEL"))
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, stdout: stdout, stderr: stderr, openBlob: blob.Open}

	store, err := core.OpenPersistentStoreOr(ctx, core.NewDefaultRulesEngine(), storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func() error { return core.CloseStore(store) })

	publisher, closePub, err := events.OpenFromEnv()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open publisher: %w", err)
	}
	a.closers = append(a.closers, closePub)

	a.metrics = core.NewPrometheusMetricsRecorder(true)
	if addr := os.Getenv("WOODCORE_METRICS_ADDR"); addr != "" {
		if err := a.serveMetrics(addr); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.svc = core.NewService(store,
		core.WithLogger(logger),
		core.WithMetricsRecorder(a.metrics),
		core.WithAuditRecorder(slogAudit{logger: logger}),
		core.WithPublisher(publisher),
	)
	return a, nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.server.Shutdown(ctx)
	})
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level == "" {
		level = "warn"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid WOODCORE_LOG_LEVEL %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid WOODCORE_LOG_FORMAT %q", format)
	}
}

// slogAudit writes audit entries as structured debug logs.
type slogAudit struct {
	logger *slog.Logger
}

func (s slogAudit) Record(ctx context.Context, entry core.AuditEntry) {
	s.logger.DebugContext(ctx, "audit",
		"operation", entry.Operation,
		"status", string(entry.Status),
		"entity_id", entry.EntityID,
		"violations", entry.Violations,
		"duration", entry.Duration,
		"error", entry.Error,
	)
}
