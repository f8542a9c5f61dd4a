package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		},
	})
}

func TestSlogManager_FanOut(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer

	m := NewSlogManager()
	m.AddHandler("a", newTextHandler(&a, slog.LevelDebug))
	m.AddHandler("b", newTextHandler(&b, slog.LevelWarn))

	logger := slog.New(m)
	logger.Debug("debug only")
	logger.Warn("both", "slot", 3)

	assert.Contains(t, a.String(), "debug only")
	assert.Contains(t, a.String(), "both slot=3")
	assert.NotContains(t, b.String(), "debug only")
	assert.Contains(t, b.String(), "both slot=3")
}

func TestSlogManager_Enabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	m := NewSlogManager()
	assert.False(t, m.Enabled(context.Background(), slog.LevelError))

	m.AddHandler("a", newTextHandler(&buf, slog.LevelInfo))
	assert.False(t, m.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, m.Enabled(context.Background(), slog.LevelInfo))
}

func TestSlogManager_SwapHandlers(t *testing.T) {
	t.Parallel()

	var terminal, inspector bytes.Buffer

	m := NewSlogManager()
	m.AddHandler(handlerTerminal, newTextHandler(&terminal, slog.LevelInfo))

	logger := slog.New(m).With("device", "/tmp/image")

	m.AddHandler(handlerUI, newTextHandler(&inspector, slog.LevelInfo))
	m.RemoveHandler(handlerTerminal)
	require.False(t, m.HasHandler(handlerTerminal))
	require.True(t, m.HasHandler(handlerUI))

	slog.New(m).Info("while inspecting")
	assert.Contains(t, inspector.String(), "while inspecting")
	assert.Empty(t, terminal.String())

	// Derived loggers keep the handlers they were derived with.
	logger.Info("derived")
	assert.Contains(t, terminal.String(), "derived device=/tmp/image")
}

func TestSlogManager_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var early, late bytes.Buffer

	m := NewSlogManager()
	m.AddHandler("early", newTextHandler(&early, slog.LevelInfo))

	derived, ok := m.WithAttrs([]slog.Attr{slog.Int("slot", 1)}).(*SlogManager)
	require.True(t, ok)

	derived.AddHandler("late", newTextHandler(&late, slog.LevelInfo))

	grouped := slog.New(derived.WithGroup("op"))
	grouped.Info("created", "name", "a")

	assert.Contains(t, early.String(), "slot=1 op.name=a")
	assert.Contains(t, late.String(), "slot=1 op.name=a")

	// The parent manager is left untouched.
	slog.New(m).Info("plain")
	assert.Contains(t, early.String(), "msg=plain\n")
	assert.Empty(t, m.attrs)
	assert.Empty(t, m.groups)
}
