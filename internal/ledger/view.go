package ledger

import "budget/internal/core"

// Row is one rendered ledger line.
type Row struct {
	ID            string
	Name          string
	Amount        string
	Type          core.EntryType
	Focused       bool
	PendingDelete bool
}

// Totals are the formatted summary figures.
type Totals struct {
	Income  string
	Expense string
	Balance string
	Deficit bool
}

// View is everything the presentation layer needs to draw the budget table.
type View struct {
	Mode    Mode
	Rows    []Row
	Empty   bool
	CanAdd  bool
	Draft   *Draft
	Errors  map[string]string
	Confirm *Row
	Totals  Totals
	Focus   string
}

// Composing is a template helper.
func (v View) Composing() bool { return v.Mode == Composing }

// Project derives a View from a ledger snapshot and the session. It is pure:
// the same inputs always give the same view.
func Project(entries []core.Entry, s *Session, f core.CurrencyFormatter) View {
	v := View{
		Mode:   s.Mode(),
		Rows:   make([]Row, 0, len(entries)),
		CanAdd: s.Mode() == Idle,
	}

	focus := s.Focus()
	if focusIndex(entries, focus) < 0 {
		focus = ""
	}
	v.Focus = focus

	for _, e := range entries {
		r := Row{
			ID:            e.ID,
			Name:          e.Name,
			Amount:        f.Format(e.Amount),
			Type:          e.Type,
			Focused:       e.ID == focus,
			PendingDelete: s.Mode() == ConfirmingDelete && e.ID == s.Target(),
		}
		v.Rows = append(v.Rows, r)
		if r.PendingDelete {
			c := r
			v.Confirm = &c
		}
	}
	v.Empty = len(v.Rows) == 0 && s.Mode() != Composing

	if s.Mode() == Composing {
		d := s.Draft()
		v.Draft = &d
		if vs := s.Violations(); len(vs) > 0 {
			v.Errors = (&core.ValidationError{Violations: vs}).Fields()
		}
	}

	sum := core.Summarize(entries)
	v.Totals = Totals{
		Income:  f.Format(sum.Income),
		Expense: f.Format(sum.Expense),
		Balance: f.Format(sum.Balance),
		Deficit: sum.Balance.IsNegative(),
	}
	return v
}
