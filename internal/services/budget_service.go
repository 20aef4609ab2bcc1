package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/storage"
)

// BudgetService owns the period budget ledger and its interaction session.
// Every operation holds one lock, so requests from concurrent handlers are
// applied one at a time. Changes are persisted before they become visible
// and announced as events afterwards.
type BudgetService struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	session   ledger.Session
	ids       ledger.IDGenerator
	store     storage.EntryStore
	publisher events.Publisher
	formatter core.CurrencyFormatter
	logger    *log.Logger
}

type BudgetOption func(*BudgetService)

func WithIDGenerator(g ledger.IDGenerator) BudgetOption {
	return func(s *BudgetService) { s.ids = g }
}

func WithFormatter(f core.CurrencyFormatter) BudgetOption {
	return func(s *BudgetService) { s.formatter = f }
}

func WithPublisher(p events.Publisher) BudgetOption {
	return func(s *BudgetService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(l *log.Logger) BudgetOption {
	return func(s *BudgetService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentBudget)
		}
	}
}

func NewBudgetService(store storage.EntryStore, opts ...BudgetOption) *BudgetService {
	s := &BudgetService{
		store:     store,
		publisher: events.Nop{},
		formatter: core.DefaultFormatter,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(s.ids)
	return s
}

// Load replaces the in-memory ledger with the stored entries.
func (s *BudgetService) Load(ctx context.Context) error {
	stored, err := s.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	l := ledger.New(s.ids)
	for _, e := range stored {
		if err := l.Insert(e.Entry); err != nil {
			return fmt.Errorf("load entry %q: %w", e.ID, err)
		}
	}

	s.mu.Lock()
	s.ledger = l
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Budget loaded", log.FieldCount, len(stored), log.FieldOperation, log.OpLoad)
	return nil
}

// List returns the entries in insertion order.
func (s *BudgetService) List() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.List()
}

// Get looks up one entry.
func (s *BudgetService) Get(id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ledger.FindByID(id)
	if !ok {
		return core.Entry{}, &core.NotFoundError{ID: id}
	}
	return e, nil
}

// Summary totals the current ledger.
func (s *BudgetService) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.ledger.List())
}

// Add validates and stores a new expense without going through the session.
func (s *BudgetService) Add(ctx context.Context, c core.Candidate) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mutator(ctx)
	e, err := m.Add(c)
	s.flush(ctx, m)
	return e, err
}

// Remove deletes an entry without going through the session.
func (s *BudgetService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mutator(ctx)
	err := m.Remove(id)
	s.flush(ctx, m)
	return err
}

// View projects the ledger and session for rendering.
func (s *BudgetService) View() ledger.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *BudgetService) StartAdd() ledger.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.StartAdd()
	return s.view()
}

func (s *BudgetService) UpdateDraft(d ledger.Draft) (ledger.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.session.UpdateDraft(d)
	return s.view(), err
}

// Submit adds the draft. On a validation error the view still shows the
// composing row with the messages.
func (s *BudgetService) Submit(ctx context.Context, d ledger.Draft) (ledger.View, core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mutator(ctx)
	e, err := s.session.Submit(m, d)
	s.flush(ctx, m)
	return s.view(), e, err
}

func (s *BudgetService) Cancel() ledger.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Cancel()
	return s.view()
}

func (s *BudgetService) RequestDelete(id string) (ledger.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.session.RequestDelete(s.ledger, id)
	return s.view(), err
}

func (s *BudgetService) ConfirmDelete(ctx context.Context) (ledger.View, core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mutator(ctx)
	e, err := s.session.ConfirmDelete(m)
	s.flush(ctx, m)
	return s.view(), e, err
}

func (s *BudgetService) HandleKey(k ledger.Key) (ledger.View, ledger.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action := s.session.HandleKey(s.ledger.List(), k)
	if action != ledger.ActionNone {
		s.logger.Debug("Key handled", log.FieldKey, k.Name, "action", action, log.FieldMode, s.session.Mode().String())
	}
	return s.view(), action
}

func (s *BudgetService) view() ledger.View {
	return ledger.Project(s.ledger.List(), &s.session, s.formatter)
}

func (s *BudgetService) mutator(ctx context.Context) *persistingMutator {
	return &persistingMutator{ctx: ctx, ledger: s.ledger, store: s.store, logger: s.logger}
}

// flush publishes what m changed. A failed publish is logged only: the
// change is already stored.
func (s *BudgetService) flush(ctx context.Context, m *persistingMutator) {
	for _, e := range m.pending {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish ledger event",
				log.NewFields().WithEvent(e.ID, string(e.Kind)).WithError(err).ToSlice()...)
		}
	}
}

// persistingMutator applies ledger changes to the store as well. The ledger
// is only left changed when the store accepted the change.
type persistingMutator struct {
	ctx     context.Context
	ledger  *ledger.Ledger
	store   storage.EntryStore
	logger  *log.Logger
	pending []events.Event
}

func (m *persistingMutator) FindByID(id string) (core.Entry, bool) {
	return m.ledger.FindByID(id)
}

func (m *persistingMutator) Add(c core.Candidate) (core.Entry, error) {
	e, err := m.ledger.Add(c)
	if err != nil {
		return core.Entry{}, err
	}
	if _, err := m.store.InsertEntry(m.ctx, e); err != nil {
		if rerr := m.ledger.Remove(e.ID); rerr != nil {
			m.logger.ErrorContext(m.ctx, "Failed to roll back entry", log.FieldEntryID, e.ID, log.FieldError, rerr)
		}
		return core.Entry{}, fmt.Errorf("store entry: %w", err)
	}
	m.logger.InfoContext(m.ctx, "Entry added",
		log.NewFields().WithEntry(e.ID, e.Name, string(e.Type), e.Amount.StringFixed(core.AmountPlaces)).WithOperation(log.OpCreate).ToSlice()...)
	m.pending = append(m.pending, events.New(events.EntryAdded, e))
	return e, nil
}

func (m *persistingMutator) Remove(id string) error {
	e, ok := m.ledger.FindByID(id)
	if !ok {
		return &core.NotFoundError{ID: id}
	}
	if err := m.store.DeleteEntry(m.ctx, id); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete stored entry: %w", err)
		}
		m.logger.WarnContext(m.ctx, "Entry was already gone from the store", log.FieldEntryID, id)
	}
	if err := m.ledger.Remove(id); err != nil {
		return err
	}
	m.logger.InfoContext(m.ctx, "Entry removed", log.FieldEntryID, id, log.FieldOperation, log.OpDelete)
	m.pending = append(m.pending, events.New(events.EntryRemoved, e))
	return nil
}
