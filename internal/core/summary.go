package core

import "github.com/shopspring/decimal"

// Summary aggregates a period budget.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
	Count   int
}

// Summarize totals income and expense entries. Balance is income minus expense.
func Summarize(entries []Entry) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range entries {
		switch e.Type {
		case Income:
			s.Income = s.Income.Add(e.Amount)
		case Expense:
			s.Expense = s.Expense.Add(e.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	s.Count = len(entries)
	return s
}

// GoalsTotal sums the target amounts of goals.
func GoalsTotal(goals []Goal) decimal.Decimal {
	total := decimal.Zero
	for _, g := range goals {
		total = total.Add(g.Amount)
	}
	return total
}
