// Package events publishes inventory lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a notification kind.
type Type string

const (
	// TypeRecordAdded is emitted after a wood record is persisted.
	TypeRecordAdded Type = "record.added"
	// TypeBatchProcessed is emitted after a processing run commits.
	TypeBatchProcessed Type = "batch.processed"
)

// Event is the JSON envelope sent to subscribers.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a fresh ID, encoding payload as JSON.
func New(typ Type, payload any, at time.Time) (Event, error) {
	evt := Event{ID: uuid.NewString(), Type: typ, OccurredAt: at.UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		evt.Payload = raw
	}
	return evt, nil
}

// Publisher delivers events to an external channel.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }
