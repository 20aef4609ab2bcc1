package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/log"
)

type entriesResponse struct {
	Entries []core.Entry `json:"entries"`
}

type goalsResponse struct {
	Goals []core.Goal     `json:"goals"`
	Total decimal.Decimal `json:"total"`
}

type summaryResponse struct {
	Income    decimal.Decimal   `json:"income"`
	Expense   decimal.Decimal   `json:"expense"`
	Balance   decimal.Decimal   `json:"balance"`
	Count     int               `json:"count"`
	Formatted map[string]string `json:"formatted"`
}

func (s *Server) apiListEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, entriesResponse{Entries: s.budget.List()})
}

func (s *Server) apiGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.budget.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (s *Server) apiCreateEntry(w http.ResponseWriter, r *http.Request) {
	c, err := decodeEntryRequest(w, r)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	e, err := s.budget.Add(r.Context(), c)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/entries/"+e.ID)
	writeJSON(w, r, http.StatusCreated, e)
}

func (s *Server) apiDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, goalsResponse{Goals: goals, Total: core.GoalsTotal(goals)})
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.budget.Summary()
	writeJSON(w, r, http.StatusOK, summaryResponse{
		Income:  sum.Income,
		Expense: sum.Expense,
		Balance: sum.Balance,
		Count:   sum.Count,
		Formatted: map[string]string{
			"income":  s.formatter.Format(sum.Income),
			"expense": s.formatter.Format(sum.Expense),
			"balance": s.formatter.Format(sum.Balance),
		},
	})
}

// apiListEvents exposes the audit trail written by the worker.
func (s *Server) apiListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeAPIError(w, r, http.StatusBadRequest, codeBadRequest, "limit must be between 1 and 500", nil)
			return
		}
		limit = n
	}
	evs, err := s.store.ListEvents(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Events listed", log.FieldCount, len(evs))
	writeJSON(w, r, http.StatusOK, map[string]any{"events": evs})
}
