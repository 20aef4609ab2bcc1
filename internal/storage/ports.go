// Package storage persists the period budget, the long-term goals and the
// audit trail of ledger events.
package storage

import (
	"context"

	"budget/internal/core"
	"budget/internal/events"
)

// EntryStore keeps period budget entries in insertion order.
type EntryStore interface {
	ListEntries(ctx context.Context) ([]core.StoredEntry, error)
	GetEntry(ctx context.Context, id string) (core.StoredEntry, error)
	// InsertEntry fails with core.DuplicateIDError when the id is taken.
	InsertEntry(ctx context.Context, e core.Entry) (core.StoredEntry, error)
	// DeleteEntry fails with core.NotFoundError when no row matches.
	DeleteEntry(ctx context.Context, id string) error
	CountEntries(ctx context.Context) (int, error)
}

// GoalReader lists long-term savings goals.
type GoalReader interface {
	ListGoals(ctx context.Context) ([]core.Goal, error)
}

// EventRecorder is the audit trail written by the worker.
type EventRecorder interface {
	// RecordEvent stores e once; recording the same event id again is a no-op
	// and reports false.
	RecordEvent(ctx context.Context, e events.Event) (bool, error)
	// ListEvents returns the most recent events first.
	ListEvents(ctx context.Context, limit int) ([]events.Event, error)
}

// Store is everything a backend provides.
type Store interface {
	EntryStore
	GoalReader
	EventRecorder
	Ping(ctx context.Context) error
	Close() error
}
