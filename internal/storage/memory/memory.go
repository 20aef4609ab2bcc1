// Package memory is a process local Store, used for development, tests and
// the memory backend. Data can be seeded from a TOML file.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/events"
)

// Seed is the TOML document layout:
//
//	[[entry]]
//	id = "vyplata"
//	name = "Výplata"
//	amount = 40000
//	type = "income"
//
//	[[goal]]
//	name = "Rezerva"
//	amount = 50000
type Seed struct {
	Entries []SeedEntry `toml:"entry"`
	Goals   []SeedGoal  `toml:"goal"`
}

type SeedEntry struct {
	ID     string  `toml:"id"`
	Name   string  `toml:"name"`
	Amount float64 `toml:"amount"`
	Type   string  `toml:"type"`
}

type SeedGoal struct {
	Name   string  `toml:"name"`
	Amount float64 `toml:"amount"`
}

// DefaultSeed is the budget a fresh installation starts with.
func DefaultSeed() Seed {
	return Seed{
		Entries: []SeedEntry{
			{ID: "vyplata", Name: "Výplata", Amount: 40000, Type: string(core.Income)},
			{ID: "najem", Name: "Nájem", Amount: 17000, Type: string(core.Expense)},
		},
		Goals: []SeedGoal{
			{Name: "Rezerva", Amount: 50000},
			{Name: "Postel", Amount: 15000},
			{Name: "Macbook", Amount: 80000},
		},
	}
}

// Encode renders the seed as a TOML document ParseSeed accepts.
func (s Seed) Encode() ([]byte, error) {
	return toml.Marshal(s)
}

// SeedFrom captures entries and goals, e.g. to export a store.
func SeedFrom(entries []core.Entry, goals []core.Goal) Seed {
	var s Seed
	for _, e := range entries {
		s.Entries = append(s.Entries, SeedEntry{ID: e.ID, Name: e.Name, Amount: e.Amount.InexactFloat64(), Type: string(e.Type)})
	}
	for _, g := range goals {
		s.Goals = append(s.Goals, SeedGoal{Name: g.Name, Amount: g.Amount.InexactFloat64()})
	}
	return s
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document. Amounts may be written as integers or
// floats.
func ParseSeed(data []byte) (Seed, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	var s Seed
	for i, t := range tables(tree, "entry") {
		amount, err := number(t, "amount")
		if err != nil {
			return Seed{}, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		s.Entries = append(s.Entries, SeedEntry{
			ID:     str(t, "id"),
			Name:   str(t, "name"),
			Amount: amount,
			Type:   str(t, "type"),
		})
	}
	for i, t := range tables(tree, "goal") {
		amount, err := number(t, "amount")
		if err != nil {
			return Seed{}, fmt.Errorf("seed goal %d: %w", i+1, err)
		}
		s.Goals = append(s.Goals, SeedGoal{Name: str(t, "name"), Amount: amount})
	}
	return s, nil
}

func tables(tree *toml.Tree, key string) []*toml.Tree {
	switch v := tree.Get(key).(type) {
	case []*toml.Tree:
		return v
	case *toml.Tree:
		return []*toml.Tree{v}
	}
	return nil
}

func str(t *toml.Tree, key string) string {
	s, _ := t.Get(key).(string)
	return s
}

func number(t *toml.Tree, key string) (float64, error) {
	switch v := t.Get(key).(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case nil:
		return 0, fmt.Errorf("missing %s", key)
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

type Store struct {
	mu      sync.RWMutex
	entries []core.StoredEntry
	goals   []core.Goal
	events  map[string]events.Event
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		events: make(map[string]events.Event),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store filled from seed. Entries are validated like
// stored rows; the first invalid one aborts.
func NewSeeded(seed Seed) (*Store, error) {
	s := New()
	for _, se := range seed.Entries {
		typ, ok := core.ParseEntryType(se.Type)
		if !ok && se.Type == "" {
			typ = core.Expense
		}
		e := core.Entry{
			ID:     se.ID,
			Name:   se.Name,
			Amount: core.RoundAmount(se.Amount),
			Type:   typ,
		}
		if _, err := s.InsertEntry(context.Background(), e); err != nil {
			return nil, fmt.Errorf("seed entry %q: %w", se.ID, err)
		}
	}
	for _, g := range seed.Goals {
		s.goals = append(s.goals, core.Goal{Name: g.Name, Amount: decimal.NewFromFloat(g.Amount).Round(core.AmountPlaces)})
	}
	return s, nil
}

func (s *Store) ListEntries(_ context.Context) ([]core.StoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.StoredEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.StoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.StoredEntry{}, &core.NotFoundError{ID: id}
}

func (s *Store) InsertEntry(_ context.Context, e core.Entry) (core.StoredEntry, error) {
	if err := e.Validate(); err != nil {
		return core.StoredEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return core.StoredEntry{}, &core.DuplicateIDError{ID: e.ID}
		}
	}
	now := s.now()
	stored := core.StoredEntry{Entry: e, CreatedAt: now, UpdatedAt: now}
	s.entries = append(s.entries, stored)
	return stored, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{ID: id}
}

func (s *Store) CountEntries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Goal, len(s.goals))
	copy(out, s.goals)
	return out, nil
}

func (s *Store) RecordEvent(_ context.Context, e events.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return false, nil
	}
	s.events[e.ID] = e
	return true, nil
}

func (s *Store) ListEvents(_ context.Context, limit int) ([]events.Event, error) {
	s.mu.RLock()
	out := make([]events.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
