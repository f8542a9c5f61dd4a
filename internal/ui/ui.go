// Package ui implements the table inspector, a terminal user interface built
// on [tea] that follows a mounted file table while it is in use.
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
)

type tableProvider interface {
	Capacity() int
	Stats() (filetable.Stats, error)
	Stat(h filetable.Handle) (schema.Entry, error)
	Walk(fn filetable.WalkFunc) error
}

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	table   tableProvider
	program *tea.Program

	LogWriter *TeaLogWriter

	Initialized atomic.Bool
	Failed      atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler] inspecting
// the given table. A ctrl+c keypress calls cancel.
func NewHandler(ctx context.Context, cancel context.CancelFunc, table tableProvider) *Handler {
	handler := &Handler{
		table: table,
	}

	model := NewTeaModel(handler, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch runs the user interface until it is quit.
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}
