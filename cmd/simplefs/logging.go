package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

const (
	handlerTerminal = "terminal"
	handlerUI       = "ui"
)

// SlogManager is a [slog.Handler] fanning records out to a set of named
// handlers, which can be swapped while the program runs. The terminal
// handler is replaced by one writing into the inspector while it is shown.
type SlogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
	attrs    []slog.Attr
	groups   []string
}

// NewSlogManager returns a pointer to a new [SlogManager] without handlers.
func NewSlogManager() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler),
	}
}

func newTintHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
}

func (m *SlogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (m *SlogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *SlogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	}, slices.Concat(m.attrs, attrs), m.groups)
}

func (m *SlogManager) WithGroup(name string) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	}, m.attrs, slices.Concat(m.groups, []string{name}))
}

func (m *SlogManager) derive(fn func(slog.Handler) slog.Handler, attrs []slog.Attr, groups []string) *SlogManager {
	m.RLock()
	defer m.RUnlock()

	derived := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    slices.Clone(attrs),
		groups:   slices.Clone(groups),
	}

	for name, h := range m.handlers {
		derived.handlers[name] = fn(h)
	}

	return derived
}

// AddHandler registers a handler under a name, replacing any handler of the
// same name. Attributes and groups already applied to the manager are
// applied to the handler as well.
func (m *SlogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	h := handler
	if len(m.attrs) > 0 {
		h = h.WithAttrs(m.attrs)
	}

	for _, group := range m.groups {
		h = h.WithGroup(group)
	}

	m.handlers[name] = h
}

func (m *SlogManager) RemoveHandler(name string) {
	m.Lock()
	defer m.Unlock()

	delete(m.handlers, name)
}

func (m *SlogManager) HasHandler(name string) bool {
	m.RLock()
	defer m.RUnlock()

	_, ok := m.handlers[name]

	return ok
}
