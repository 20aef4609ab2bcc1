package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

func seeded(t *testing.T) *Ledger {
	t.Helper()
	l := New(nil)
	require.NoError(t, l.Insert(core.Entry{ID: "vyplata", Name: "Výplata", Amount: decimal.NewFromInt(40000), Type: core.Income}))
	require.NoError(t, l.Insert(core.Entry{ID: "najem", Name: "Nájem", Amount: decimal.NewFromInt(17000), Type: core.Expense}))
	return l
}

func TestLedgerAddRoundsAndAppends(t *testing.T) {
	l := seeded(t)

	e, err := l.Add(core.Candidate{Name: "Jídlo", Amount: 3500.005})
	require.NoError(t, err)
	require.Equal(t, "jidlo", e.ID)
	require.Equal(t, "Jídlo", e.Name)
	require.Equal(t, core.Expense, e.Type)
	require.True(t, decimal.RequireFromString("3500.01").Equal(e.Amount), "got %s", e.Amount)

	list := l.List()
	require.Len(t, list, 3)
	require.Equal(t, []string{"vyplata", "najem", "jidlo"}, ids(list))
}

func TestLedgerAddRejectsInvalid(t *testing.T) {
	l := seeded(t)

	_, err := l.Add(core.Candidate{Name: "", Amount: -1})
	require.ErrorIs(t, err, core.ErrValidation)

	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, map[string]string{
		core.FieldName:   core.MsgNameTooShort,
		core.FieldAmount: core.MsgAmountNegative,
	}, ve.Fields())
	require.Equal(t, 2, l.Len())
}

func TestLedgerAddTrimsName(t *testing.T) {
	l := New(nil)
	e, err := l.Add(core.Candidate{Name: "  Kino  ", Amount: 250})
	require.NoError(t, err)
	require.Equal(t, "Kino", e.Name)
	require.Equal(t, "kino", e.ID)
}

func TestLedgerIDCollisionGetsSuffix(t *testing.T) {
	l := New(nil)
	first, err := l.Add(core.Candidate{Name: "Jídlo", Amount: 1})
	require.NoError(t, err)
	second, err := l.Add(core.Candidate{Name: "jidlo", Amount: 2})
	require.NoError(t, err)
	third, err := l.Add(core.Candidate{Name: "JÍDLO", Amount: 3})
	require.NoError(t, err)

	require.Equal(t, "jidlo", first.ID)
	require.Equal(t, "jidlo-2", second.ID)
	require.Equal(t, "jidlo-3", third.ID)
}

func TestLedgerManySameNamesStayUnique(t *testing.T) {
	l := seeded(t)
	for i := 1; i <= 20; i++ {
		e, err := l.Add(core.Candidate{Name: "Jídlo", Amount: float64(i)})
		require.NoError(t, err, "add %d", i)
		if i == 1 {
			require.Equal(t, "jidlo", e.ID)
		}
	}
	list := l.List()
	require.Len(t, list, 22)
	require.Equal(t, "jidlo-20", list[21].ID)
	require.Len(t, uniqueIDs(list), 22)
}

func TestLedgerNonLatinNamesShareFallback(t *testing.T) {
	l := New(nil)
	names := []string{"Масло", "Хлеб", "Молоко", "Сыр", "Чай", "Кофе", "Сахар", "Мука",
		"Рис", "Соль", "Яйца", "Мясо", "Рыба", "Сок", "Вода", "Пиво", "Вино", "€", "🍕", "☕"}
	for _, name := range names {
		e, err := l.Add(core.Candidate{Name: name, Amount: 10})
		require.NoError(t, err, name)
		require.Equal(t, name, e.Name)
	}
	list := l.List()
	require.Len(t, list, len(names))
	require.Equal(t, "polozka", list[0].ID)
	require.Equal(t, "polozka-20", list[19].ID)
	require.Len(t, uniqueIDs(list), len(names))
}

func uniqueIDs(entries []core.Entry) map[string]struct{} {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.ID] = struct{}{}
	}
	return seen
}

type constGenerator string

func (g constGenerator) NextID(string, int) string { return string(g) }

func TestLedgerAddGivesUpOnExhaustedGenerator(t *testing.T) {
	l := New(constGenerator("x"))
	_, err := l.Add(core.Candidate{Name: "a", Amount: 1})
	require.NoError(t, err)

	_, err = l.Add(core.Candidate{Name: "b", Amount: 1})
	require.ErrorIs(t, err, core.ErrDuplicateID)
	require.Equal(t, 1, l.Len())
}

func TestLedgerInsert(t *testing.T) {
	l := seeded(t)

	err := l.Insert(core.Entry{ID: "najem", Name: "Nájem", Amount: decimal.NewFromInt(1), Type: core.Expense})
	require.ErrorIs(t, err, core.ErrDuplicateID)

	err = l.Insert(core.Entry{ID: "bad", Name: "Bad", Amount: decimal.NewFromInt(1), Type: "loan"})
	require.ErrorIs(t, err, core.ErrValidation)
	require.Equal(t, 2, l.Len())
}

func TestLedgerRemove(t *testing.T) {
	l := seeded(t)
	_, err := l.Add(core.Candidate{Name: "Jídlo", Amount: 3500})
	require.NoError(t, err)

	require.NoError(t, l.Remove("najem"))
	require.Equal(t, []string{"vyplata", "jidlo"}, ids(l.List()))

	e, ok := l.FindByID("jidlo")
	require.True(t, ok)
	require.Equal(t, "Jídlo", e.Name)

	err = l.Remove("najem")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, 2, l.Len())
}

func TestLedgerListIsACopy(t *testing.T) {
	l := seeded(t)
	first := l.List()
	first[0].Name = "changed"

	require.Equal(t, l.List(), l.List())
	require.Equal(t, "Výplata", l.List()[0].Name)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Jídlo":          "jidlo",
		"Jídlo a pití":   "jidlo-a-piti",
		"  Nájem!!  ":    "najem",
		"Spoření 2024":   "sporeni-2024",
		"???":            "",
		"Žluťoučký kůň":  "zlutoucky-kun",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestSlugGeneratorFallback(t *testing.T) {
	require.Equal(t, "polozka", SlugGenerator{}.NextID("???", 0))
	require.Equal(t, "polozka-2", SlugGenerator{}.NextID("???", 1))
	require.Equal(t, "item", SlugGenerator{Fallback: "item"}.NextID("", 0))
}

func TestNewIDGenerator(t *testing.T) {
	require.IsType(t, UUIDGenerator{}, NewIDGenerator("UUID"))
	require.IsType(t, SlugGenerator{}, NewIDGenerator("slug"))
	require.IsType(t, SlugGenerator{}, NewIDGenerator(""))

	a := UUIDGenerator{}.NextID("x", 0)
	b := UUIDGenerator{}.NextID("x", 0)
	require.NotEqual(t, a, b)
}

func ids(entries []core.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
