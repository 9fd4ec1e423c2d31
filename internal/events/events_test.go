package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

type stubConn struct {
	subjects []string
	payloads [][]byte
	fail     error
	drained  bool
}

func (s *stubConn) Publish(subj string, data []byte) error {
	if s.fail != nil {
		return s.fail
	}
	s.subjects = append(s.subjects, subj)
	s.payloads = append(s.payloads, data)
	return nil
}

func (s *stubConn) Drain() error {
	s.drained = true
	return nil
}

func TestNewEncodesPayload(t *testing.T) {
	at := time.Date(2026, 3, 18, 9, 0, 0, 0, time.FixedZone("x", 3600))
	evt, err := New(TypeBatchProcessed, map[string]int{"processed": 3}, at)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if evt.ID == "" || evt.Type != TypeBatchProcessed || evt.OccurredAt.Location() != time.UTC {
		t.Fatalf("unexpected event %+v", evt)
	}
	if string(evt.Payload) != `{"processed":3}` {
		t.Fatalf("unexpected payload %s", evt.Payload)
	}
	other, _ := New(TypeBatchProcessed, nil, at)
	if other.ID == evt.ID || other.Payload != nil {
		t.Fatalf("expected fresh id and no payload, got %+v", other)
	}
	if _, err := New(TypeRecordAdded, make(chan int), at); err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestNATSPublisherPublishesJSON(t *testing.T) {
	stub := &stubConn{}
	pub := newNATSPublisher(stub, "wood.events.")
	evt, _ := New(TypeRecordAdded, map[string]string{"id": "r1"}, time.Now())
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(stub.subjects) != 1 || stub.subjects[0] != "wood.events.record.added" {
		t.Fatalf("unexpected subjects %v", stub.subjects)
	}
	var decoded Event
	if err := json.Unmarshal(stub.payloads[0], &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != evt.ID || decoded.Type != TypeRecordAdded {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
	if err := pub.Close(); err != nil || !stub.drained {
		t.Fatalf("expected drain on close")
	}
}

func TestNATSPublisherErrors(t *testing.T) {
	stub := &stubConn{fail: errors.New("disconnected")}
	pub := newNATSPublisher(stub, "")
	if pub.Subject(TypeBatchProcessed) != "woodcore.events.batch.processed" {
		t.Fatalf("unexpected default subject %s", pub.Subject(TypeBatchProcessed))
	}
	if err := pub.Publish(context.Background(), Event{Type: TypeBatchProcessed}); err == nil {
		t.Fatalf("expected publish error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newNATSPublisher(&stubConn{}, "").Publish(ctx, Event{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNewNATSPublisherDial(t *testing.T) {
	if _, err := NewNATSPublisher(NATSConfig{}); err == nil {
		t.Fatalf("expected missing url error")
	}
	prev := natsConnect
	t.Cleanup(func() { natsConnect = prev })

	var gotURL string
	natsConnect = func(url string, opts ...nats.Option) (conn, error) {
		gotURL = url
		if len(opts) != 2 {
			t.Fatalf("expected name and timeout options, got %d", len(opts))
		}
		return &stubConn{}, nil
	}
	pub, err := NewNATSPublisher(NATSConfig{URL: "nats://broker:4222", Subject: "mill"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if gotURL != "nats://broker:4222" || pub.Subject(TypeRecordAdded) != "mill.record.added" {
		t.Fatalf("unexpected publisher url=%s subject=%s", gotURL, pub.Subject(TypeRecordAdded))
	}

	natsConnect = func(string, ...nats.Option) (conn, error) { return nil, nats.ErrNoServers }
	if _, err := NewNATSPublisher(NATSConfig{URL: "nats://down:4222"}); !errors.Is(err, nats.ErrNoServers) {
		t.Fatalf("expected wrapped ErrNoServers, got %v", err)
	}
}

func TestOpenFromEnv(t *testing.T) {
	t.Setenv("WOODCORE_NATS_URL", "")
	pub, closeFn, err := OpenFromEnv()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := pub.(NoopPublisher); !ok {
		t.Fatalf("expected noop publisher, got %T", pub)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}

	prev := natsConnect
	t.Cleanup(func() { natsConnect = prev })
	stub := &stubConn{}
	natsConnect = func(string, ...nats.Option) (conn, error) { return stub, nil }
	t.Setenv("WOODCORE_NATS_URL", "nats://broker:4222")
	t.Setenv("WOODCORE_NATS_SUBJECT", "yard")
	pub, closeFn, err = OpenFromEnv()
	if err != nil {
		t.Fatalf("open nats: %v", err)
	}
	if np, ok := pub.(*NATSPublisher); !ok || np.Subject(TypeRecordAdded) != "yard.record.added" {
		t.Fatalf("unexpected publisher %T", pub)
	}
	_ = closeFn()
	if !stub.drained {
		t.Fatalf("expected close to drain")
	}
}
