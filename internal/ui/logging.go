package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

const logQueueSize = 1000

// LogMsg is one rendered log line, typed for identification as [tea.Msg]
// within a [tea.Program].
type LogMsg string

// Slot returns the slot a log line is about, taken from its "slot" attribute.
// Terminal styling around the attribute is ignored.
func (msg LogMsg) Slot() (int, bool) {
	for _, field := range strings.Fields(ansi.Strip(string(msg))) {
		value, ok := strings.CutPrefix(field, "slot=")
		if !ok {
			continue
		}

		idx, err := strconv.Atoi(value)
		if err != nil || idx < 0 {
			return 0, false
		}

		return idx, true
	}

	return 0, false
}

type teaProgramProvider interface {
	Send(msg tea.Msg)
}

// TeaLogWriter is an [io.Writer] for a [slog.Handler] that forwards every
// written line to a [tea.Program] as [LogMsg]. Writes never block the
// logging goroutine: lines arriving while the queue is full are counted and
// reported as a single line once the queue drains.
type TeaLogWriter struct {
	program  teaProgramProvider
	lines    chan LogMsg
	dropped  atomic.Uint64
	done     chan struct{}
	stopOnce sync.Once
}

// NewTeaLogWriter returns a pointer to a new [TeaLogWriter] and starts its
// forwarding goroutine, which runs until [TeaLogWriter.Stop].
func NewTeaLogWriter(program teaProgramProvider) *TeaLogWriter {
	wr := &TeaLogWriter{
		program: program,
		lines:   make(chan LogMsg, logQueueSize),
		done:    make(chan struct{}),
	}

	go wr.forward()

	return wr
}

// Stop ends forwarding. Queued and later lines are discarded. Stopping more
// than once is a no-op.
func (wr *TeaLogWriter) Stop() {
	wr.stopOnce.Do(func() {
		close(wr.done)
	})
}

func (wr *TeaLogWriter) forward() {
	for {
		select {
		case <-wr.done:
			return
		case msg := <-wr.lines:
			if n := wr.dropped.Swap(0); n > 0 {
				wr.program.Send(LogMsg(fmt.Sprintf("(%d log lines dropped)\n", n)))
			}
			wr.program.Send(msg)
		}
	}
}

// Write queues one log line.
func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	select {
	case <-wr.done:
		return len(p), nil
	default:
	}

	select {
	case wr.lines <- LogMsg(p):
	default:
		wr.dropped.Add(1)
	}

	return len(p), nil
}
