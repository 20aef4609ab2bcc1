// Package worker follows the ledger event stream out of process: every event
// is kept in the audit table and, when a spreadsheet is configured, mirrored
// into it.
package worker

import (
	"context"
	"fmt"

	"budget/internal/events"
	"budget/internal/log"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// EventWorker handles ledger events delivered by a broker.
type EventWorker struct {
	recorder storage.EventRecorder
	mirror   sheets.EntryMirror
	logger   *log.Logger
}

// NewEventWorker builds a worker. mirror may be nil.
func NewEventWorker(recorder storage.EventRecorder, mirror sheets.EntryMirror, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		recorder: recorder,
		mirror:   mirror,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Handle mirrors e and then records it. Both steps are idempotent, so a
// returned error can safely lead to redelivery.
func (w *EventWorker) Handle(ctx context.Context, e events.Event) error {
	logger := w.logger.With(log.NewFields().WithEvent(e.ID, string(e.Kind)).ToSlice()...)
	logger.InfoContext(ctx, "Processing event", log.FieldEntryID, e.Entry.ID)

	if w.mirror != nil {
		if err := w.mirrorEvent(ctx, e); err != nil {
			logger.ErrorContext(ctx, "Failed to mirror event",
				log.FieldEntryID, e.Entry.ID,
				log.FieldError, err)
			return fmt.Errorf("mirror event %s: %w", e.ID, err)
		}
	}

	fresh, err := w.recorder.RecordEvent(ctx, e)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record event", log.FieldError, err)
		return fmt.Errorf("record event %s: %w", e.ID, err)
	}
	if !fresh {
		logger.InfoContext(ctx, "Event already recorded, skipping")
		return nil
	}

	logger.InfoContext(ctx, "Event processed",
		log.FieldEntryID, e.Entry.ID,
		log.FieldSuccess, true)
	return nil
}

func (w *EventWorker) mirrorEvent(ctx context.Context, e events.Event) error {
	switch e.Kind {
	case events.EntryAdded:
		return w.mirror.AppendEntry(ctx, e)
	case events.EntryRemoved:
		return w.mirror.DeleteEntry(ctx, e.Entry.ID)
	}
	return fmt.Errorf("unknown event kind %q", e.Kind)
}

// Run consumes events until ctx is cancelled. Cancellation is a clean stop.
func (w *EventWorker) Run(ctx context.Context, consumer events.Consumer) error {
	w.logger.InfoContext(ctx, "Event worker started")
	err := consumer.Consume(ctx, w.Handle)
	if err != nil && ctx.Err() != nil {
		err = nil
	}
	w.logger.InfoContext(ctx, "Event worker stopped")
	return err
}
