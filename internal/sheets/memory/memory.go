// Package memory is an in-process EntryMirror, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"budget/internal/events"
	ports "budget/internal/sheets"
)

// Mirror keeps rows in memory in append order.
type Mirror struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.EntryMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// AppendEntry stores the row for e unless its entry is already mirrored.
func (m *Mirror) AppendEntry(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r[0] == e.Entry.ID {
			return nil
		}
	}
	m.rows = append(m.rows, ports.Row(e))
	return nil
}

// DeleteEntry drops the first row for id.
func (m *Mirror) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r[0] == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.rows))
	copy(out, m.rows)
	return out
}

// IDs returns the entry id of every row.
func (m *Mirror) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r[0].(string))
	}
	return out
}
