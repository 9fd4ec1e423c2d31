package core

import (
	"context"
	"time"

	"woodcore/internal/events"
)

// Logger is the slog-shaped logging surface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc reports UTC wall time.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// MetricsRecorder observes operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// AuditStatus classifies the outcome recorded in an AuditEntry.
type AuditStatus string

const (
	// AuditStatusSuccess marks a committed operation.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks a failed operation.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry describes one service operation for the audit trail.
type AuditEntry struct {
	Operation  string
	Status     AuditStatus
	EntityID   string
	Error      string
	Violations int
	StartedAt  time.Time
	Duration   time.Duration
}

// AuditRecorder receives one entry per service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

type noopSpan struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

type serviceOptions struct {
	logger    Logger
	clock     Clock
	clockSet  bool
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	publisher events.Publisher
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:    noopLogger{},
		clock:     ClockFunc(nil),
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		audit:     noopAudit{},
		publisher: events.NoopPublisher{},
	}
}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

// WithLogger sets the service logger; nil keeps the noop logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for timestamps and audit entries.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
			o.clockSet = true
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(audit AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if audit != nil {
			o.audit = audit
		}
	}
}

// WithPublisher sets the event publisher used for lifecycle notifications.
func WithPublisher(publisher events.Publisher) ServiceOption {
	return func(o *serviceOptions) {
		if publisher != nil {
			o.publisher = publisher
		}
	}
}
