// Package http serves the budget pages, the htmx partials that drive the
// budget table, and a JSON API over the same services.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/services"
	"budget/internal/storage"
	appweb "budget/web"
)

// Deps are the services the server exposes.
type Deps struct {
	Budget    *services.BudgetService
	Goals     *services.GoalService
	Store     storage.Store
	Formatter core.CurrencyFormatter
	Logger    *log.Logger
	// Backend names the data backend in readiness output.
	Backend string
	// RateLimitPerMinute throttles mutating requests per client. Zero uses
	// the limiter default.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	budget    *services.BudgetService
	goals     *services.GoalService
	store     storage.Store
	formatter core.CurrencyFormatter
	logger    *log.Logger
	backend   string
	started   time.Time

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	formatter := deps.Formatter
	if formatter.Symbol == "" {
		formatter = core.DefaultFormatter
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates: t,
		budget:    deps.Budget,
		goals:     deps.Goals,
		store:     deps.Store,
		formatter: formatter,
		logger:    logger.WithComponent(log.ComponentHTTP),
		backend:   deps.Backend,
		started:   time.Now(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:  security.NewDetector(logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssets(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/", s.handleIndex)
	r.Get("/db", s.handleDB)

	throttle := s.limiter.Middleware(s.detector.ClientIP, s.onRateLimit, http.MethodPost, http.MethodDelete)

	r.Route("/ui/budget", func(r chi.Router) {
		r.Use(throttle)
		r.Get("/", s.handleTable)
		r.Post("/compose", s.handleCompose)
		r.Post("/draft", s.handleDraft)
		r.Post("/entries", s.handleSubmit)
		r.Post("/cancel", s.handleCancel)
		r.Post("/entries/{id}/delete", s.handleRequestDelete)
		r.Post("/delete/confirm", s.handleConfirmDelete)
		r.Post("/keys", s.handleKey)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(throttle)
		r.Get("/entries", s.apiListEntries)
		r.Post("/entries", s.apiCreateEntry)
		r.Get("/entries/{id}", s.apiGetEntry)
		r.Delete("/entries/{id}", s.apiDeleteEntry)
		r.Get("/goals", s.apiListGoals)
		r.Get("/summary", s.apiSummary)
		r.Get("/events", s.apiListEvents)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r) {
			writeAPIError(w, r, http.StatusNotFound, codeNotFound, "route not found", nil)
			return
		}
		http.NotFound(w, r)
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldRequestID, middleware.GetReqID(r.Context()),
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	if isAPI(r) {
		writeAPIError(w, r, http.StatusTooManyRequests, codeTooManyRequests, "rate limit exceeded", nil)
		return
	}
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerErrorNotification("Příliš mnoho požadavků, zkuste to za chvíli.").
		Write(w)
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
