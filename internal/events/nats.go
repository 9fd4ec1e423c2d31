package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const defaultSubject = "woodcore.events"

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	URL     string
	Subject string // prefix; the event type is appended
	Name    string
	Timeout time.Duration
}

// NATSPublisher sends each event as a JSON message on <subject>.<type>.
type NATSPublisher struct {
	conn    conn
	subject string
}

var natsConnect = func(url string, opts ...nats.Option) (conn, error) {
	return nats.Connect(url, opts...)
}

// NewNATSPublisher dials the server described by cfg.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url required")
	}
	if cfg.Name == "" {
		cfg.Name = "woodcore"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	nc, err := natsConnect(cfg.URL, nats.Name(cfg.Name), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(nc, cfg.Subject), nil
}

func newNATSPublisher(nc conn, subject string) *NATSPublisher {
	subject = strings.TrimSuffix(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = defaultSubject
	}
	return &NATSPublisher{conn: nc, subject: subject}
}

// Subject returns the subject an event of typ is published on.
func (p *NATSPublisher) Subject(typ Type) string {
	return p.subject + "." + string(typ)
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	if err := p.conn.Publish(p.Subject(evt.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error { return p.conn.Drain() }

// OpenFromEnv returns a NATS publisher when WOODCORE_NATS_URL is set and a
// NoopPublisher otherwise. The returned close func is always safe to call.
func OpenFromEnv() (Publisher, func() error, error) {
	url := os.Getenv("WOODCORE_NATS_URL")
	if url == "" {
		return NoopPublisher{}, func() error { return nil }, nil
	}
	pub, err := NewNATSPublisher(NATSConfig{URL: url, Subject: os.Getenv("WOODCORE_NATS_SUBJECT")})
	if err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}
