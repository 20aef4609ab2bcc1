package ledger

import (
	"errors"
	"fmt"

	"budget/internal/core"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current session mode.
var ErrInvalidTransition = errors.New("invalid session transition")

// DefaultDraftAmount pre-fills the amount field of a new entry row.
const DefaultDraftAmount = "100"

// Mode is the state of the edit session.
type Mode int

const (
	Idle Mode = iota
	Composing
	ConfirmingDelete
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Composing:
		return "composing"
	case ConfirmingDelete:
		return "confirming_delete"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Mutator is the part of a ledger the session drives. *Ledger implements it;
// services wrap it to add persistence.
type Mutator interface {
	Add(c core.Candidate) (core.Entry, error)
	Remove(id string) error
	FindByID(id string) (core.Entry, bool)
}

// Draft holds the raw values typed into the new entry row.
type Draft struct {
	Name   string
	Amount string
}

// Candidate parses the draft. Unparsable amounts become NaN so validation
// reports them next to any name problem.
func (d Draft) Candidate() core.Candidate {
	return core.Candidate{Name: d.Name, Amount: core.ParseAmount(d.Amount)}
}

// Session tracks whether a new entry is being composed or a delete awaits
// confirmation, plus which row has keyboard focus. The zero value is Idle.
type Session struct {
	mode       Mode
	draft      Draft
	violations []core.Violation
	target     string
	focus      string
}

// Mode returns the current state of the session.
func (s *Session) Mode() Mode { return s.mode }

// Draft returns the unsaved form input.
func (s *Session) Draft() Draft { return s.draft }

// Target returns the id of the entry pending removal, or "".
func (s *Session) Target() string { return s.target }

// Focus returns the id of the row holding keyboard focus, or "".
func (s *Session) Focus() string { return s.focus }

// Violations returns a copy of the failures from the last rejected submit.
func (s *Session) Violations() []core.Violation { return append([]core.Violation(nil), s.violations...) }

// StartAdd opens the new entry row. It is a no-op while composing, keeping
// the pending values, and reports whether the mode changed.
func (s *Session) StartAdd() bool {
	if s.mode != Idle {
		return false
	}
	s.mode = Composing
	s.draft = Draft{Amount: DefaultDraftAmount}
	s.violations = nil
	return true
}

// UpdateDraft stores pending values without validating them.
func (s *Session) UpdateDraft(d Draft) error {
	if s.mode != Composing {
		return fmt.Errorf("update draft in %s: %w", s.mode, ErrInvalidTransition)
	}
	s.draft = d
	return nil
}

// Submit tries to add the draft. A validation failure keeps the session
// composing with the submitted values and their violations.
func (s *Session) Submit(m Mutator, d Draft) (core.Entry, error) {
	if s.mode != Composing {
		return core.Entry{}, fmt.Errorf("submit in %s: %w", s.mode, ErrInvalidTransition)
	}
	s.draft = d
	e, err := m.Add(d.Candidate())
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			s.violations = append([]core.Violation(nil), ve.Violations...)
		}
		return core.Entry{}, err
	}
	s.reset()
	s.focus = e.ID
	return e, nil
}

// Cancel leaves Composing or ConfirmingDelete without touching the ledger.
// It reports whether anything was cancelled.
func (s *Session) Cancel() bool {
	if s.mode == Idle {
		return false
	}
	s.reset()
	return true
}

// RequestDelete asks for confirmation before removing id.
func (s *Session) RequestDelete(m Mutator, id string) error {
	if s.mode != Idle {
		return fmt.Errorf("request delete in %s: %w", s.mode, ErrInvalidTransition)
	}
	if _, ok := m.FindByID(id); !ok {
		return &core.NotFoundError{ID: id}
	}
	s.mode = ConfirmingDelete
	s.target = id
	s.focus = id
	return nil
}

// ConfirmDelete removes the pending target. The session returns to Idle even
// when the target has vanished in the meantime; that case yields a
// NotFoundError for the caller to surface.
func (s *Session) ConfirmDelete(m Mutator) (core.Entry, error) {
	if s.mode != ConfirmingDelete {
		return core.Entry{}, fmt.Errorf("confirm delete in %s: %w", s.mode, ErrInvalidTransition)
	}
	id := s.target
	s.reset()
	if s.focus == id {
		s.focus = ""
	}
	e, ok := m.FindByID(id)
	if !ok {
		return core.Entry{}, &core.NotFoundError{ID: id}
	}
	if err := m.Remove(id); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

// SetFocus moves keyboard focus to the row with id.
func (s *Session) SetFocus(id string) { s.focus = id }

func (s *Session) reset() {
	s.mode = Idle
	s.draft = Draft{}
	s.violations = nil
	s.target = ""
}
