package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"fatal", LevelFatal},
		{"ERROR", slog.LevelError},
		{"warn", slog.LevelWarn},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" trace ", LevelTrace},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLoggerJSONLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelTrace, Format: "json", Output: &buf, Component: ComponentBudget})

	l.Trace("tracing", FieldEntryID, "jidlo")
	l.Fatal("going down")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "TRACE", rec["level"])
	require.Equal(t, ComponentBudget, rec[FieldComponent])
	require.Equal(t, "jidlo", rec[FieldEntryID])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	require.Equal(t, "FATAL", rec["level"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestComponentMatches(t *testing.T) {
	require.True(t, ComponentMatches("http", ""))
	require.True(t, ComponentMatches("http", "*"))
	require.True(t, ComponentMatches("http", "http"))
	require.True(t, ComponentMatches("http", "http:*"))
	require.True(t, ComponentMatches("storage", "http, storage"))
	require.True(t, ComponentMatches("rate_limit", "rate*"))
	require.False(t, ComponentMatches("storage", "http"))
}

func TestLoggerComponentFilter(t *testing.T) {
	var buf bytes.Buffer
	root := New(Config{Level: slog.LevelInfo, Output: &buf, Filter: "http"})

	root.WithComponent(ComponentHTTP).Info("from http")
	root.WithComponent(ComponentStorage).Info("from storage")
	root.Info("from app")
	root.Info("explicit", FieldComponent, ComponentHTTP)

	out := buf.String()
	require.Contains(t, out, "from http")
	require.Contains(t, out, "explicit")
	require.NotContains(t, out, "from storage")
	require.NotContains(t, out, "from app")
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("X-Api-Key", "k")
	h.Set("Accept", "text/html")

	got := RedactHeaders(h)
	require.Equal(t, Redacted, got["authorization"])
	require.Equal(t, Redacted, got["x-api-key"])
	require.Equal(t, "text/html", got["accept"])
}

func TestMiddlewareStoresRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentHTTP})

	var seen *Logger
	h := middleware.RequestID(Middleware(l)(RequestLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		seen.Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))))

	req := httptest.NewRequest(http.MethodGet, "/api/entries?x=1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	require.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inside, done map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inside))
	require.NotEmpty(t, inside[FieldRequestID])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &done))
	require.Equal(t, "WARN", done["level"])
	require.Equal(t, float64(http.StatusTeapot), done[FieldStatusCode])
	require.Equal(t, "/api/entries", done[FieldPath])
	require.NotContains(t, lines[1], "secret")
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.NotNil(t, l)
	require.Equal(t, "unknown", l.Component())
}
