package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/ledger"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Kind
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// failingStore rejects writes while fail is set.
type failingStore struct {
	storage.EntryStore
	fail bool
}

func (s *failingStore) InsertEntry(ctx context.Context, e core.Entry) (core.StoredEntry, error) {
	if s.fail {
		return core.StoredEntry{}, errors.New("disk full")
	}
	return s.EntryStore.InsertEntry(ctx, e)
}

func (s *failingStore) DeleteEntry(ctx context.Context, id string) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.EntryStore.DeleteEntry(ctx, id)
}

func newService(t *testing.T) (*BudgetService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store, err := memory.NewSeeded(memory.DefaultSeed())
	require.NoError(t, err)
	pub := &recordingPublisher{}
	svc := NewBudgetService(store, WithPublisher(pub))
	require.NoError(t, svc.Load(context.Background()))
	return svc, store, pub
}

func TestBudgetService_LoadsStoredEntries(t *testing.T) {
	svc, _, _ := newService(t)
	list := svc.List()
	require.Len(t, list, 2)
	require.Equal(t, "vyplata", list[0].ID)

	sum := svc.Summary()
	require.True(t, decimal.NewFromInt(23000).Equal(sum.Balance))
}

func TestBudgetService_ComposeAndSubmit(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	v := svc.StartAdd()
	require.True(t, v.Composing())
	require.Equal(t, ledger.DefaultDraftAmount, v.Draft.Amount)

	v, e, err := svc.Submit(ctx, ledger.Draft{Name: "Jídlo", Amount: "3500,005"})
	require.NoError(t, err)
	require.Equal(t, "jidlo", e.ID)
	require.Equal(t, ledger.Idle, v.Mode)
	require.Len(t, v.Rows, 3)
	require.Equal(t, "jidlo", v.Focus)

	stored, err := store.GetEntry(ctx, "jidlo")
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("3500.01").Equal(stored.Amount))
	require.Equal(t, []events.Kind{events.EntryAdded}, pub.kinds())
}

func TestBudgetService_InvalidSubmitKeepsDraft(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()
	svc.StartAdd()

	v, _, err := svc.Submit(ctx, ledger.Draft{Name: "", Amount: "-1"})
	require.ErrorIs(t, err, core.ErrValidation)
	require.True(t, v.Composing())
	require.Equal(t, core.MsgNameTooShort, v.Errors[core.FieldName])
	require.Equal(t, core.MsgAmountNegative, v.Errors[core.FieldAmount])

	n, err := store.CountEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Empty(t, pub.kinds())
}

func TestBudgetService_StoreFailureRollsBack(t *testing.T) {
	seeded, err := memory.NewSeeded(memory.DefaultSeed())
	require.NoError(t, err)
	store := &failingStore{EntryStore: seeded, fail: true}
	pub := &recordingPublisher{}
	svc := NewBudgetService(store, WithPublisher(pub))
	require.NoError(t, svc.Load(context.Background()))

	svc.StartAdd()
	v, _, err := svc.Submit(context.Background(), ledger.Draft{Name: "Kino", Amount: "250"})
	require.Error(t, err)
	require.True(t, v.Composing())
	require.Len(t, svc.List(), 2)

	_, err = svc.Get("kino")
	require.ErrorIs(t, err, core.ErrNotFound)

	err = svc.Remove(context.Background(), "najem")
	require.Error(t, err)
	require.Len(t, svc.List(), 2)
	require.Empty(t, pub.kinds())

	store.fail = false
	_, _, err = svc.Submit(context.Background(), ledger.Draft{Name: "Kino", Amount: "250"})
	require.NoError(t, err)
	require.Len(t, svc.List(), 3)
}

func TestBudgetService_DeleteFlow(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	_, err := svc.RequestDelete("missing")
	require.ErrorIs(t, err, core.ErrNotFound)

	v, err := svc.RequestDelete("najem")
	require.NoError(t, err)
	require.Equal(t, ledger.ConfirmingDelete, v.Mode)
	require.Equal(t, "Nájem", v.Confirm.Name)

	v, e, err := svc.ConfirmDelete(ctx)
	require.NoError(t, err)
	require.Equal(t, "najem", e.ID)
	require.Equal(t, ledger.Idle, v.Mode)
	require.Len(t, v.Rows, 1)

	_, err = store.GetEntry(ctx, "najem")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, []events.Kind{events.EntryRemoved}, pub.kinds())
}

func TestBudgetService_ConfirmDeleteAfterConcurrentRemoval(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RequestDelete("najem")
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "najem"))

	v, _, err := svc.ConfirmDelete(ctx)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, ledger.Idle, v.Mode)
}

func TestBudgetService_RemoveToleratesMissingStoredRow(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, store.DeleteEntry(ctx, "najem"))

	require.NoError(t, svc.Remove(ctx, "najem"))
	require.Len(t, svc.List(), 1)
	require.ErrorIs(t, svc.Remove(ctx, "najem"), core.ErrNotFound)
}

func TestBudgetService_PublishFailureIsNotReturned(t *testing.T) {
	svc, _, pub := newService(t)
	pub.err = errors.New("broker down")

	e, err := svc.Add(context.Background(), core.Candidate{Name: "Kino", Amount: 250})
	require.NoError(t, err)
	require.Equal(t, "kino", e.ID)
}

func TestBudgetService_HandleKey(t *testing.T) {
	svc, _, _ := newService(t)

	v, action := svc.HandleKey(ledger.Key{Name: "j"})
	require.Equal(t, ledger.ActionFocus, action)
	require.Equal(t, "vyplata", v.Focus)

	v, action = svc.HandleKey(ledger.Key{Name: "d"})
	require.Equal(t, ledger.ActionRequestDelete, action)
	require.Equal(t, "vyplata", v.Confirm.ID)

	v, action = svc.HandleKey(ledger.Key{Name: "Escape"})
	require.Equal(t, ledger.ActionCancel, action)
	require.Equal(t, ledger.Idle, v.Mode)
	require.Len(t, v.Rows, 2)
}

func TestBudgetService_ConcurrentAdds(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Jídlo"
			if i%2 == 1 {
				name = fmt.Sprintf("Položka %d", i)
			}
			_, err := svc.Add(ctx, core.Candidate{Name: name, Amount: 100})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list := svc.List()
	require.Len(t, list, 22)
	seen := map[string]bool{}
	for _, e := range list {
		require.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
	n, err := store.CountEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 22, n)
	require.Len(t, pub.kinds(), 20)
}

func TestBudgetService_UUIDScheme(t *testing.T) {
	store, err := memory.NewSeeded(memory.DefaultSeed())
	require.NoError(t, err)
	svc := NewBudgetService(store, WithIDGenerator(ledger.UUIDGenerator{}))
	require.NoError(t, svc.Load(context.Background()))

	e, err := svc.Add(context.Background(), core.Candidate{Name: "Jídlo", Amount: 1})
	require.NoError(t, err)
	require.Len(t, e.ID, 36)
}
