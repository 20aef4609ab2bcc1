package log

import (
	"context"
	"log/slog"
	"path"
	"strings"
)

// filterHandler drops records whose component does not match any pattern.
// Records without a component are dropped too.
type filterHandler struct {
	next      slog.Handler
	patterns  []string
	component string
}

func newFilterHandler(next slog.Handler, filter string) *filterHandler {
	var patterns []string
	for _, p := range strings.Split(filter, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &filterHandler{next: next, patterns: patterns}
}

// ComponentMatches reports whether name passes filter. A name also matches
// when the pattern expects a trailing colon, so "http:*" admits "http".
func ComponentMatches(name, filter string) bool {
	if filter == "" || filter == "*" {
		return true
	}
	for _, p := range strings.Split(filter, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
		if ok, _ := path.Match(p, name+":"); ok {
			return true
		}
	}
	return false
}

func (h *filterHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *filterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == FieldComponent {
			component = a.Value.String()
			return false
		}
		return true
	})
	if component == "" || !h.matches(component) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *filterHandler) matches(name string) bool {
	return ComponentMatches(name, strings.Join(h.patterns, ","))
}

func (h *filterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == FieldComponent {
			component = a.Value.String()
		}
	}
	return &filterHandler{next: h.next.WithAttrs(attrs), patterns: h.patterns, component: component}
}

func (h *filterHandler) WithGroup(name string) slog.Handler {
	return &filterHandler{next: h.next.WithGroup(name), patterns: h.patterns, component: h.component}
}
