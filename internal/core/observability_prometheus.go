package core

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetricsRecorder exports operation latency and outcome counts on
// its own registry, so several recorders can coexist in one process.
type PrometheusMetricsRecorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder builds a recorder; withRuntime also registers
// the Go runtime and process collectors.
func NewPrometheusMetricsRecorder(withRuntime bool) *PrometheusMetricsRecorder {
	reg := prometheus.NewRegistry()
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "woodcore",
		Name:      "operation_duration_seconds",
		Help:      "Latency of woodcore service operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"operation"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "woodcore",
		Name:      "operation_total",
		Help:      "Count of woodcore service operations by outcome.",
	}, []string{"operation", "status"})
	reg.MustRegister(duration, total)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return &PrometheusMetricsRecorder{registry: reg, duration: duration, total: total}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	r.total.WithLabelValues(operation, statusLabel(success)).Inc()
}

// Registry exposes the underlying registry for scraping or tests.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusMetricsRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// MultiMetricsRecorder fans observations out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, rec := range m {
		if rec != nil {
			rec.Observe(ctx, operation, success, duration)
		}
	}
}
