// Package events describes ledger changes as messages so other processes
// (the worker, the audit log, a spreadsheet mirror) can follow the budget.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

type Kind string

const (
	EntryAdded   Kind = "entry.added"
	EntryRemoved Kind = "entry.removed"
)

func (k Kind) Valid() bool {
	return k == EntryAdded || k == EntryRemoved
}

// Event is one change to the period budget.
type Event struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Entry      core.Entry `json:"entry"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// New stamps a fresh event for e.
func New(kind Kind, e core.Entry) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Entry:      e,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode converts the event to JSON bytes
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses and checks an encoded event.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.ID == "" {
		return Event{}, fmt.Errorf("decode event: missing id")
	}
	if !e.Kind.Valid() {
		return Event{}, fmt.Errorf("decode event %s: unknown kind %q", e.ID, e.Kind)
	}
	return e, nil
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Handler processes one delivered event. Returning an error asks the
// consumer to redeliver it.
type Handler func(ctx context.Context, e Event) error

// Consumer delivers events to a handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }
