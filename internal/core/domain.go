package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

type (
	EntryType string

	// Entry is one income or expense line of the period budget.
	Entry struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
		Type   EntryType       `json:"type"`
	}

	// StoredEntry is an Entry as persisted, with bookkeeping timestamps.
	StoredEntry struct {
		Entry
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// Goal is a long-term savings target.
	Goal struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	}

	// Candidate holds unvalidated values for a new entry.
	Candidate struct {
		Name   string
		Amount float64
	}
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	}
	return false
}

// ParseEntryType maps a user supplied string onto an EntryType.
func ParseEntryType(s string) (EntryType, bool) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Validate checks an already built entry, e.g. one loaded from storage.
func (e Entry) Validate() error {
	var vs []Violation
	if e.ID == "" {
		vs = append(vs, Violation{Field: FieldID, Message: "Chybí identifikátor."})
	}
	vs = append(vs, checkName(e.Name)...)
	switch {
	case e.Amount.IsNegative():
		vs = append(vs, Violation{Field: FieldAmount, Message: MsgAmountNegative})
	case e.Amount.GreaterThan(MaxAmount):
		vs = append(vs, Violation{Field: FieldAmount, Message: MsgAmountTooLarge})
	}
	if !e.Type.Valid() {
		vs = append(vs, Violation{Field: FieldType, Message: "Neplatný typ položky."})
	}
	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

// Cents returns the amount in hundredths, the unit used by storage. Amounts
// up to MaxAmount always fit.
func (e Entry) Cents() int64 {
	return e.Amount.Shift(2).IntPart()
}

// FromCents converts a stored cent value back into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
