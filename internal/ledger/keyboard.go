package ledger

import "budget/internal/core"

// Key is a key press as reported by the browser.
type Key struct {
	Name  string `json:"key"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
}

// Modified reports whether a modifier accompanies the key. Such keys belong
// to the browser or OS and are never handled here.
func (k Key) Modified() bool {
	return k.Shift || k.Alt || k.Ctrl || k.Meta
}

// Action is what a key press did.
type Action string

const (
	ActionNone          Action = ""
	ActionFocus         Action = "focus"
	ActionStartAdd      Action = "start_add"
	ActionCancel        Action = "cancel"
	ActionRequestDelete Action = "request_delete"
)

// HandleKey applies a key press to the session. entries is the current ledger
// snapshot and is only read, to move focus and to validate delete targets.
func (s *Session) HandleKey(entries []core.Entry, k Key) Action {
	if k.Modified() {
		return ActionNone
	}

	if s.mode != Idle {
		if k.Name == "Escape" && s.Cancel() {
			return ActionCancel
		}
		return ActionNone
	}

	switch k.Name {
	case "a":
		if s.StartAdd() {
			return ActionStartAdd
		}
	case "ArrowDown", "j":
		if s.moveFocus(entries, 1) {
			return ActionFocus
		}
	case "ArrowUp", "k":
		if s.moveFocus(entries, -1) {
			return ActionFocus
		}
	case "Delete", "d":
		idx := focusIndex(entries, s.focus)
		if idx < 0 {
			return ActionNone
		}
		s.mode = ConfirmingDelete
		s.target = entries[idx].ID
		return ActionRequestDelete
	}
	return ActionNone
}

// moveFocus shifts focus by step rows. Without a focused row the first row
// gets focus. Focus stops at the table edges.
func (s *Session) moveFocus(entries []core.Entry, step int) bool {
	if len(entries) == 0 {
		return false
	}
	idx := focusIndex(entries, s.focus)
	if idx < 0 {
		s.focus = entries[0].ID
		return true
	}
	next := idx + step
	if next < 0 || next >= len(entries) {
		return false
	}
	s.focus = entries[next].ID
	return true
}

func focusIndex(entries []core.Entry, id string) int {
	if id == "" {
		return -1
	}
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
