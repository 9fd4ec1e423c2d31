package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"woodcore/internal/events"
	"woodcore/internal/infra/persistence/memory"
	"woodcore/pkg/domain"
)

// Service exposes transactional record operations and batch processing.
type Service struct {
	store     PersistentStore
	logger    Logger
	clock     Clock
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	publisher events.Publisher
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.clockSet {
		if clocked, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
			clocked.SetNowFunc(cfg.clock.Now)
		}
	}
	return &Service{
		store:     store,
		logger:    cfg.logger,
		clock:     cfg.clock,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
		audit:     cfg.audit,
		publisher: cfg.publisher,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects the default rule set.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// run wraps a service operation with tracing, metrics, audit and logging.
// fn reports the primary entity ID it touched, if any.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, Result, error)) (Result, error) {
	startedAt := s.clock.Now()
	begin := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	s.logger.Debug("operation started", "operation", op)

	entityID, res, err := fn(ctx)
	duration := time.Since(begin)

	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	entry := AuditEntry{
		Operation:  op,
		Status:     AuditStatusSuccess,
		EntityID:   entityID,
		Violations: len(res.Violations),
		StartedAt:  startedAt,
		Duration:   duration,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
	s.logViolations(op, res)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "duration", duration, "error", err)
		return res, err
	}
	s.logger.Info("operation completed", "operation", op, "entity_id", entityID, "duration", duration, "violations", len(res.Violations))
	return res, nil
}

func (s *Service) logViolations(op string, res Result) {
	for _, v := range res.Violations {
		args := []any{"operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message}
		switch v.Severity {
		case domain.SeverityBlock:
			s.logger.Error("rule blocked transaction", args...)
		case domain.SeverityWarn:
			s.logger.Warn("rule violation", args...)
		default:
			s.logger.Info("rule note", args...)
		}
	}
}

// notify publishes evt; failures are logged and never fail the caller.
func (s *Service) notify(ctx context.Context, typ events.Type, payload any) {
	evt, err := events.New(typ, payload, s.clock.Now())
	if err == nil {
		err = s.publisher.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn("event publish failed", "event", string(typ), "error", err)
	}
}

// AddRecord persists a new wood record. Steps are stored as given; an empty
// ID is replaced by a generated one.
func (s *Service) AddRecord(ctx context.Context, record Record) (Record, Result, error) {
	var created Record
	record.Species = strings.TrimSpace(record.Species)
	record.ProcessedCount = 0
	record.LastProcessedAt = nil
	res, err := s.run(ctx, "add_record", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateRecord(record)
			return err
		})
		return created.ID, res, err
	})
	if err != nil {
		return Record{}, res, err
	}
	s.notify(ctx, events.TypeRecordAdded, recordAddedPayload{ID: created.ID, Seq: created.Seq, Species: created.Species, Steps: len(created.Steps)})
	return created, res, nil
}

type recordAddedPayload struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Species string `json:"species"`
	Steps   int    `json:"steps"`
}

// GetRecord loads one record by ID.
func (s *Service) GetRecord(ctx context.Context, id string) (Record, error) {
	var rec Record
	_, err := s.run(ctx, "get_record", func(context.Context) (string, Result, error) {
		found, ok := s.store.GetRecord(id)
		if !ok {
			return id, Result{}, ErrNotFound{Entity: domain.EntityRecord, ID: id}
		}
		rec = found
		return id, Result{}, nil
	})
	return rec, err
}

// ListRecords returns every record in insertion order.
func (s *Service) ListRecords(ctx context.Context) ([]Record, error) {
	var out []Record
	_, err := s.run(ctx, "list_records", func(ctx context.Context) (string, Result, error) {
		return "", Result{}, s.store.View(ctx, func(view TransactionView) error {
			out = view.ListRecords()
			return nil
		})
	})
	return out, err
}

// BatchSummary describes one processing run.
type BatchSummary struct {
	BatchID             string    `json:"batch_id"`
	Processed           int       `json:"processed"`
	NewlyTreated        int       `json:"newly_treated"`
	TreatedTotal        int       `json:"treated_total"`
	AverageMoistureFrom float64   `json:"average_moisture_from_pct"`
	AverageMoistureTo   float64   `json:"average_moisture_to_pct"`
	ProcessedAt         time.Time `json:"processed_at"`
}

// ProcessAll runs every record's steps once, in insertion order, and
// persists the resulting moisture and treatment state atomically.
func (s *Service) ProcessAll(ctx context.Context) (BatchSummary, Result, error) {
	var summary BatchSummary
	res, err := s.run(ctx, "process_all", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			summary, err = s.processRecords(tx, tx.ListRecords())
			return err
		})
		return summary.BatchID, res, err
	})
	if err != nil {
		return BatchSummary{}, res, err
	}
	if summary.Processed > 0 {
		s.notify(ctx, events.TypeBatchProcessed, summary)
	}
	return summary, res, nil
}

// ProcessRecord runs a single record's steps once.
func (s *Service) ProcessRecord(ctx context.Context, id string) (Record, Result, error) {
	var updated Record
	res, err := s.run(ctx, "process_record", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			rec, ok := tx.FindRecord(id)
			if !ok {
				return ErrNotFound{Entity: domain.EntityRecord, ID: id}
			}
			if _, err := s.processRecords(tx, []Record{rec}); err != nil {
				return err
			}
			updated, _ = tx.FindRecord(id)
			return nil
		})
		return id, res, err
	})
	if err != nil {
		return Record{}, res, err
	}
	return updated, res, nil
}

// processRecords loads records into an Inventory, processes it and writes
// each item's state back onto its record.
func (s *Service) processRecords(tx Transaction, records []Record) (BatchSummary, error) {
	now := s.clock.Now()
	summary := BatchSummary{ProcessedAt: now}
	if len(records) == 0 {
		return summary, nil
	}
	inv := domain.NewInventory()
	var before float64
	for _, rec := range records {
		inv.AddItem(rec.Item())
		before += rec.Moisture
	}
	inv.ProcessAll()

	var after float64
	for i, item := range inv.Items() {
		rec := records[i]
		if _, err := tx.UpdateRecord(rec.ID, func(r *Record) error {
			r.Absorb(item)
			r.ProcessedCount++
			processedAt := now
			r.LastProcessedAt = &processedAt
			return nil
		}); err != nil {
			return BatchSummary{}, err
		}
		after += item.Moisture()
		if item.IsTreated() {
			summary.TreatedTotal++
			if !rec.Treated {
				summary.NewlyTreated++
			}
		}
	}
	n := float64(len(records))
	summary.Processed = len(records)
	summary.AverageMoistureFrom = before / n
	summary.AverageMoistureTo = after / n
	summary.BatchID = uuid.NewString()
	return summary, nil
}

// IsBlocked reports whether err stems from a blocking rule violation.
func IsBlocked(err error) bool {
	var rv domain.RuleViolationError
	return errors.As(err, &rv)
}
