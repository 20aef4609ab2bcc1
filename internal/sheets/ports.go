// Package sheets mirrors the period budget into a spreadsheet so it can be
// read and shared outside the app.
package sheets

import (
	"context"

	"budget/internal/core"
	"budget/internal/events"
)

// Ports for outbound adapters.
type (
	// EntryMirror keeps one row per budget entry.
	EntryMirror interface {
		// AppendEntry adds the row for an entry.added event.
		AppendEntry(ctx context.Context, e events.Event) error
		// DeleteEntry removes the row of entry id. A missing row is not an error.
		DeleteEntry(ctx context.Context, id string) error
	}
)

// Header is the first row of a mirror sheet.
var Header = []string{"ID", "Název", "Částka", "Typ", "Změněno"}

// Row renders the cells mirrored for an event's entry.
func Row(e events.Event) []any {
	return []any{
		e.Entry.ID,
		e.Entry.Name,
		e.Entry.Amount.StringFixed(core.AmountPlaces),
		string(e.Entry.Type),
		e.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
	}
}
