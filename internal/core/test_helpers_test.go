package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"woodcore/internal/events"
	"woodcore/pkg/domain"
)

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(entry string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, entry)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

type capturePublisher struct {
	events []events.Event
	fail   bool
}

func (c *capturePublisher) Publish(_ context.Context, evt events.Event) error {
	if c.fail {
		return errors.New("broker unavailable")
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *capturePublisher) types() []events.Type {
	out := make([]events.Type, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.Type)
	}
	return out
}

func oakRecord() Record {
	return Record{
		Species:   "Oak",
		Thickness: 25,
		Moisture:  15,
		Steps: []StepSpec{
			{Kind: domain.StepCut, Length: 2.5},
			{Kind: domain.StepDry},
			{Kind: domain.StepConditional, Predicate: domain.PredicateMoistureAbove, Threshold: 10, Inner: &StepSpec{Kind: domain.StepTreat}},
		},
	}
}

func pineRecord() Record {
	return Record{
		Species:   "Pine",
		Thickness: 30,
		Moisture:  12,
		Steps:     []StepSpec{{Kind: domain.StepDry}},
	}
}

func mapleRecord() Record {
	return Record{
		Species:   "Maple",
		Thickness: 20,
		Moisture:  10,
		Steps: []StepSpec{
			{Kind: domain.StepConditional, Predicate: domain.PredicateMoistureAbove, Threshold: 11, Inner: &StepSpec{Kind: domain.StepTreat}},
		},
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
