// Package ledger holds the period budget: an ordered set of entries, the
// interaction session that decides when entries are added or removed, and the
// projection that turns both into render-ready rows.
//
// Nothing in this package locks. A Ledger and its Session belong to a single
// owner; concurrent hosts must serialize access themselves.
package ledger

import (
	"strings"

	"budget/internal/core"
)

// maxIDAttempts is how many ids beyond the ledger size are proposed before
// giving up with a DuplicateIDError. A generator that proposes a different
// id on every attempt always finds a free one within the ledger size.
const maxIDAttempts = 16

// Ledger is the ordered collection of budget entries.
type Ledger struct {
	entries []core.Entry
	index   map[string]int
	ids     IDGenerator
}

// New returns an empty ledger. A nil generator defaults to SlugGenerator.
func New(ids IDGenerator) *Ledger {
	if ids == nil {
		ids = SlugGenerator{}
	}
	return &Ledger{
		index: make(map[string]int),
		ids:   ids,
	}
}

// List returns a copy of the entries in insertion order.
func (l *Ledger) List() []core.Entry {
	out := make([]core.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// FindByID looks up an entry.
func (l *Ledger) FindByID(id string) (core.Entry, bool) {
	i, ok := l.index[id]
	if !ok {
		return core.Entry{}, false
	}
	return l.entries[i], true
}

// Add validates c and appends a new expense entry. On error the ledger is
// left untouched.
func (l *Ledger) Add(c core.Candidate) (core.Entry, error) {
	if err := core.ValidateCandidate(c); err != nil {
		return core.Entry{}, err
	}
	name := strings.TrimSpace(c.Name)
	id, err := l.nextID(name)
	if err != nil {
		return core.Entry{}, err
	}
	e := core.Entry{
		ID:     id,
		Name:   name,
		Amount: core.RoundAmount(c.Amount),
		Type:   core.Expense,
	}
	l.append(e)
	return e, nil
}

// Insert appends an entry that already has an identity, e.g. one read back
// from storage. Invalid entries and taken ids are rejected.
func (l *Ledger) Insert(e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, taken := l.index[e.ID]; taken {
		return &core.DuplicateIDError{ID: e.ID}
	}
	e.Amount = e.Amount.Round(core.AmountPlaces)
	l.append(e)
	return nil
}

// Remove deletes the entry with id. Removing an absent id is an error, also
// when it was removed before.
func (l *Ledger) Remove(id string) error {
	i, ok := l.index[id]
	if !ok {
		return &core.NotFoundError{ID: id}
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.entries); j++ {
		l.index[l.entries[j].ID] = j
	}
	return nil
}

func (l *Ledger) append(e core.Entry) {
	l.index[e.ID] = len(l.entries)
	l.entries = append(l.entries, e)
}

func (l *Ledger) nextID(name string) (string, error) {
	var id string
	for attempt := 0; attempt < len(l.entries)+maxIDAttempts; attempt++ {
		id = l.ids.NextID(name, attempt)
		if _, taken := l.index[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", &core.DuplicateIDError{ID: id}
}
