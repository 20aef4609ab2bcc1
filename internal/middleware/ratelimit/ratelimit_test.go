package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute int) *Limiter {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	return rl
}

func TestAllow_BurstThenThrottle(t *testing.T) {
	rl := newTestLimiter(t, 3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	require.False(t, rl.Allow("1.2.3.4"))

	// other clients have their own bucket
	require.True(t, rl.Allow("5.6.7.8"))

	// one token comes back after 20s at 3/min
	rl.now = func() time.Time { return base.Add(21 * time.Second) }
	require.True(t, rl.Allow("1.2.3.4"))
	require.False(t, rl.Allow("1.2.3.4"))
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := newTestLimiter(t, 10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.Allow("a")
	rl.now = func() time.Time { return base.Add(9 * time.Minute) }
	rl.Allow("b")
	require.Equal(t, 2, rl.ActiveClients())

	rl.now = func() time.Time { return base.Add(15 * time.Minute) }
	require.Equal(t, 1, rl.cleanupStaleEntries())
	require.Equal(t, 1, rl.ActiveClients())
}

func TestMiddleware_OnlyLimitsListedMethods(t *testing.T) {
	rl := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		return rec
	}

	require.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	rec := do(http.MethodPost)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "61", rec.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
	}
}

func TestMiddleware_CustomOnLimit(t *testing.T) {
	rl := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}
