package http

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

// The /ui/budget partials all answer with the re-rendered budget table. The
// client swaps 404, 409 and 422 responses as well, so the table always
// reflects the server state.

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	s.respondTable(w, r, s.budget.View(), NewHTMXResponse())
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	s.respondTable(w, r, s.budget.StartAdd(), NewHTMXResponse())
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	d, err := parseDraft(w, r)
	if err != nil {
		s.respondBadRequest(w, r, err)
		return
	}
	view, err := s.budget.UpdateDraft(d)
	if err != nil {
		s.respondTableError(w, r, view, err)
		return
	}
	s.respondTable(w, r, view, NewHTMXResponse())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	d, err := parseDraft(w, r)
	if err != nil {
		s.respondBadRequest(w, r, err)
		return
	}
	view, e, err := s.budget.Submit(r.Context(), d)
	if err != nil {
		s.respondTableError(w, r, view, err)
		return
	}
	s.respondTable(w, r, view, NewHTMXResponse().
		TriggerBudgetChanged(s.budget.Summary()).
		TriggerSuccessNotification("Položka „"+e.Name+"“ přidána"))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.respondTable(w, r, s.budget.Cancel(), NewHTMXResponse())
}

func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	view, err := s.budget.RequestDelete(chi.URLParam(r, "id"))
	if err != nil {
		s.respondTableError(w, r, view, err)
		return
	}
	s.respondTable(w, r, view, NewHTMXResponse())
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	view, e, err := s.budget.ConfirmDelete(r.Context())
	if err != nil {
		s.respondTableError(w, r, view, err)
		return
	}
	s.respondTable(w, r, view, NewHTMXResponse().
		TriggerBudgetChanged(s.budget.Summary()).
		TriggerSuccessNotification("Položka „"+e.Name+"“ odstraněna"))
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	k, err := parseKey(w, r)
	if err != nil {
		s.respondBadRequest(w, r, err)
		return
	}
	view, action := s.budget.HandleKey(k)
	if action == ledger.ActionNone {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondTable(w, r, view, NewHTMXResponse().TriggerKeyAction(action))
}

func (s *Server) respondTable(w http.ResponseWriter, r *http.Request, view ledger.View, b *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "budget_table", view); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", "budget_table")
		NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Tabulku se nepodařilo vykreslit").
			Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}

// respondTableError renders the table with the status and notification that
// fit err.
func (s *Server) respondTableError(w http.ResponseWriter, r *http.Request, view ledger.View, err error) {
	status, _ := statusFor(err)
	b := NewHTMXResponse().Status(status)

	var nf *core.NotFoundError
	switch {
	case errors.Is(err, core.ErrValidation):
		b.TriggerErrorNotification("Položku nelze uložit, opravte zvýrazněná pole")
	case errors.As(err, &nf):
		b.TriggerWarningNotification("Položka „" + nf.ID + "“ už neexistuje")
	case errors.Is(err, core.ErrDuplicateID):
		b.TriggerErrorNotification("Položka se stejným názvem už existuje")
	case errors.Is(err, ledger.ErrInvalidTransition):
		b.TriggerWarningNotification("Akci teď nelze provést")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Budget operation failed", log.FieldError, err)
		b.TriggerErrorNotification("Chyba při ukládání")
	}
	s.respondTable(w, r, view, b)
}

func (s *Server) respondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Bad request", log.FieldError, err)
	NewHTMXResponse().
		Status(http.StatusBadRequest).
		TriggerErrorNotification("Neplatný požadavek").
		Write(w)
}
