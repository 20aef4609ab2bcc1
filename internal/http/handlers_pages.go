package http

import (
	"context"
	"net/http"
	"time"

	"github.com/hako/durafmt"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

// dbPageLimit caps the raw listing on /db.
const dbPageLimit = 100

type goalRow struct {
	Name   string
	Amount string
}

type indexData struct {
	View       ledger.View
	Goals      []goalRow
	GoalsTotal string
	GoalsError bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{View: s.budget.View()}

	goals, err := s.goals.List(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Goals list error", log.FieldError, err)
		data.GoalsError = true
	}
	for _, g := range goals {
		data.Goals = append(data.Goals, goalRow{Name: g.Name, Amount: s.formatter.Format(g.Amount)})
	}
	data.GoalsTotal = s.formatter.Format(core.GoalsTotal(goals))

	s.renderPage(w, r, "index.html", data)
}

type dbRow struct {
	ID        string
	Name      string
	Amount    string
	Type      core.EntryType
	CreatedAt string
	UpdatedAt string
}

// handleDB lists stored rows as they are in the database.
func (s *Server) handleDB(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.ListEntries(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "List stored entries", log.FieldError, err)
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	total := len(stored)
	if len(stored) > dbPageLimit {
		stored = stored[:dbPageLimit]
	}
	rows := make([]dbRow, 0, len(stored))
	for _, e := range stored {
		rows = append(rows, dbRow{
			ID:        e.ID,
			Name:      e.Name,
			Amount:    e.Amount.StringFixed(core.AmountPlaces),
			Type:      e.Type,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
			UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
		})
	}
	s.renderPage(w, r, "db.html", struct {
		Rows    []dbRow
		Total   int
		Backend string
	}{Rows: rows, Total: total, Backend: s.backend})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readiness struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Uptime  string `json:"uptime"`
	Entries int    `json:"entries"`
	Error   string `json:"error,omitempty"`
}

// handleReady checks the store and reports uptime and entry count.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out := readiness{
		Status:  "ready",
		Backend: s.backend,
		Uptime:  durafmt.Parse(time.Since(s.started).Round(time.Second)).LimitFirstN(2).String(),
	}
	if err := s.store.Ping(ctx); err != nil {
		out.Status = "unavailable"
		out.Error = err.Error()
		writeJSON(w, r, http.StatusServiceUnavailable, out)
		return
	}
	n, err := s.store.CountEntries(ctx)
	if err != nil {
		out.Status = "unavailable"
		out.Error = err.Error()
		writeJSON(w, r, http.StatusServiceUnavailable, out)
		return
	}
	out.Entries = n
	writeJSON(w, r, http.StatusOK, out)
}
