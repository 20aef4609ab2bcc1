package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage/memory"
)

type testEnv struct {
	srv    *Server
	store  *memory.Store
	budget *services.BudgetService
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	store, err := memory.NewSeeded(memory.DefaultSeed())
	require.NoError(t, err)

	budget := services.NewBudgetService(store)
	require.NoError(t, budget.Load(context.Background()))

	srv, err := NewServer(":0", Deps{
		Budget:             budget,
		Goals:              services.NewGoalService(store, 0, nil),
		Store:              store,
		Backend:            "memory",
		RateLimitPerMinute: rateLimit,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, budget: budget}
}

func (e *testEnv) do(t *testing.T, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) form(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	return e.do(t, http.MethodPost, target, values.Encode(), "application/x-www-form-urlencoded")
}

func (e *testEnv) json(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	return e.do(t, method, target, body, "application/json")
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func triggers(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := rec.Header().Get("HX-Trigger")
	require.NotEmpty(t, raw)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	r := decodeBody[readiness](t, rec)
	require.Equal(t, "ready", r.Status)
	require.Equal(t, "memory", r.Backend)
	require.Equal(t, 2, r.Entries)
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Výplata")
	require.Contains(t, body, "Nájem")
	require.Contains(t, body, "Rezerva")
	require.Contains(t, body, "23\u00a0000,00\u00a0Kč")
	require.Contains(t, body, "145\u00a0000,00\u00a0Kč")
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestDBPage(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/db", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "vyplata")
	require.Contains(t, rec.Body.String(), "40000.00")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/static/app.js", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/ui/budget/keys")
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age=3600")
}

func TestAPI_EntryLifecycle(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.json(t, http.MethodPost, "/api/entries", `{"name":"Jídlo","amount":"1 200,50"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/api/entries/jidlo", rec.Header().Get("Location"))
	created := decodeBody[core.Entry](t, rec)
	require.Equal(t, "jidlo", created.ID)
	require.Equal(t, core.Expense, created.Type)
	require.True(t, decimal.RequireFromString("1200.5").Equal(created.Amount))

	rec = env.json(t, http.MethodGet, "/api/entries/jidlo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.json(t, http.MethodGet, "/api/entries", "")
	list := decodeBody[entriesResponse](t, rec)
	require.Len(t, list.Entries, 3)
	require.Equal(t, "jidlo", list.Entries[2].ID)

	stored, err := env.store.CountEntries(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stored)

	rec = env.json(t, http.MethodDelete, "/api/entries/jidlo", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.json(t, http.MethodDelete, "/api/entries/jidlo", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	apiErr := decodeBody[apiErrorBody](t, rec)
	require.Equal(t, codeNotFound, apiErr.Error.Code)
}

func TestAPI_NumericAmountAndCollisions(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.json(t, http.MethodPost, "/api/entries", `{"name":"Nájem","amount":500}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "najem-2", decodeBody[core.Entry](t, rec).ID)
}

func TestAPI_ValidationError(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.json(t, http.MethodPost, "/api/entries", `{"name":"","amount":-5}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[apiErrorBody](t, rec)
	require.Equal(t, codeUnprocessable, body.Error.Code)
	require.Equal(t, core.MsgNameTooShort, body.Error.FieldErrors["name"])
	require.Equal(t, core.MsgAmountNegative, body.Error.FieldErrors["amount"])

	rec = env.json(t, http.MethodPost, "/api/entries", `{"name":"Kino"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, core.MsgAmountNotANum, decodeBody[apiErrorBody](t, rec).Error.FieldErrors["amount"])

	require.Len(t, env.budget.List(), 2)
}

func TestAPI_BadRequests(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.json(t, http.MethodPost, "/api/entries", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeBadRequest, decodeBody[apiErrorBody](t, rec).Error.Code)

	rec = env.json(t, http.MethodPost, "/api/entries", `{"name":"x","amount":1,"type":"income"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.json(t, http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeNotFound, decodeBody[apiErrorBody](t, rec).Error.Code)

	rec = env.json(t, http.MethodGet, "/api/events?limit=0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GoalsAndSummary(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.json(t, http.MethodGet, "/api/goals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	goals := decodeBody[goalsResponse](t, rec)
	require.Len(t, goals.Goals, 3)
	require.True(t, decimal.NewFromInt(145000).Equal(goals.Total))

	rec = env.json(t, http.MethodGet, "/api/summary", "")
	sum := decodeBody[summaryResponse](t, rec)
	require.True(t, decimal.NewFromInt(23000).Equal(sum.Balance))
	require.Equal(t, 2, sum.Count)
	require.Equal(t, "23\u00a0000,00\u00a0Kč", sum.Formatted["balance"])
}

func TestAPI_Events(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.json(t, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestUI_ComposeAndSubmit(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.form(t, "/ui/budget/compose", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `id="draft-form"`)
	require.Contains(t, rec.Body.String(), `value="100"`)

	rec = env.form(t, "/ui/budget/draft", url.Values{"name": {"Ki"}, "amount": {"250"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.form(t, "/ui/budget/entries", url.Values{"name": {"Kino"}, "amount": {"250"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `id="draft-form"`)
	require.Contains(t, rec.Body.String(), "Kino")
	require.Contains(t, rec.Body.String(), "is-focused")

	tr := triggers(t, rec)
	require.Contains(t, tr, "budget:changed")
	require.Contains(t, tr, "show-notification")
	require.Len(t, env.budget.List(), 3)
}

func TestUI_SubmitValidation(t *testing.T) {
	env := newTestEnv(t, 0)
	env.form(t, "/ui/budget/compose", nil)

	rec := env.form(t, "/ui/budget/entries", url.Values{"name": {" "}, "amount": {"abc"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `id="draft-form"`)
	require.Contains(t, body, `aria-invalid="true"`)
	require.Contains(t, body, `value="abc"`)
	require.Contains(t, triggers(t, rec), "show-notification")
	require.Len(t, env.budget.List(), 2)
}

func TestUI_SubmitWhileIdleConflicts(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.form(t, "/ui/budget/entries", url.Values{"name": {"Kino"}, "amount": {"250"}})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), `id="budget-table"`)
	require.Len(t, env.budget.List(), 2)
}

func TestUI_CancelKeepsLedger(t *testing.T) {
	env := newTestEnv(t, 0)
	env.form(t, "/ui/budget/compose", nil)

	rec := env.form(t, "/ui/budget/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `id="draft-form"`)
	require.Len(t, env.budget.List(), 2)
}

func TestUI_DeleteFlow(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.form(t, "/ui/budget/entries/najem/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `role="alertdialog"`)
	require.Contains(t, rec.Body.String(), "Nájem")

	rec = env.form(t, "/ui/budget/delete/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Nájem")
	require.Contains(t, triggers(t, rec), "budget:changed")

	require.True(t, decimal.NewFromInt(40000).Equal(env.budget.Summary().Balance))
	_, err := env.store.GetEntry(context.Background(), "najem")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestUI_DeleteUnknownEntry(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.form(t, "/ui/budget/entries/nic/delete", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `id="budget-table"`)
	require.NotContains(t, rec.Body.String(), `role="alertdialog"`)
}

func TestUI_ConfirmAfterConcurrentRemoval(t *testing.T) {
	env := newTestEnv(t, 0)
	env.form(t, "/ui/budget/entries/najem/delete", nil)

	require.NoError(t, env.budget.Remove(context.Background(), "najem"))

	rec := env.form(t, "/ui/budget/delete/confirm", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotContains(t, rec.Body.String(), `role="alertdialog"`)
	require.Contains(t, triggers(t, rec), "show-notification")
}

func TestUI_Keys(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.form(t, "/ui/budget/keys", url.Values{"key": {"j"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"action":"focus"}`, string(triggers(t, rec)["budget:key"]))
	require.Contains(t, rec.Body.String(), `data-focus="vyplata"`)

	rec = env.form(t, "/ui/budget/keys", url.Values{"key": {"j"}, "ctrlKey": {"true"}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.form(t, "/ui/budget/keys", url.Values{"key": {"x"}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.form(t, "/ui/budget/keys", url.Values{"key": {"d"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `role="alertdialog"`)

	rec = env.json(t, http.MethodPost, "/ui/budget/keys", `{"key":"Escape"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `role="alertdialog"`)

	rec = env.json(t, http.MethodPost, "/ui/budget/keys", `{"key":"a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `id="draft-form"`)

	rec = env.form(t, "/ui/budget/keys", url.Values{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHXTriggerIsASCII(t *testing.T) {
	env := newTestEnv(t, 0)
	env.form(t, "/ui/budget/compose", nil)

	rec := env.form(t, "/ui/budget/entries", url.Values{"name": {"Čočka"}, "amount": {"80"}})
	require.Equal(t, http.StatusOK, rec.Code)

	raw := rec.Header().Get("HX-Trigger")
	for i := 0; i < len(raw); i++ {
		require.Less(t, raw[i], byte(0x80), "non-ASCII byte in %q", raw)
	}
	var m map[string]struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Equal(t, "Položka „Čočka“ přidána", m["show-notification"].Message)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		rec := env.json(t, http.MethodPost, "/api/entries", `{"name":"x","amount":1}`)
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}
	rec := env.json(t, http.MethodPost, "/api/entries", `{"name":"x","amount":1}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, codeTooManyRequests, decodeBody[apiErrorBody](t, rec).Error.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// reads are not limited
	rec = env.json(t, http.MethodGet, "/api/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
