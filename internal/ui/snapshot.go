package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
)

const slotMapColumns = 8

// TableSnapshotMsg is a [tea.Msg] carrying the state of the inspected table.
type TableSnapshotMsg struct {
	t     time.Time
	stats filetable.Stats
	slots []schema.Kind
	free  []bool
	tree  []string
	err   error
}

// takeSnapshot reads the state of a table. Failures are carried inside the
// message, so the interface keeps showing the last good state.
func takeSnapshot(table tableProvider, t time.Time) TableSnapshotMsg {
	msg := TableSnapshotMsg{t: t}

	stats, err := table.Stats()
	if err != nil {
		msg.err = err

		return msg
	}
	msg.stats = stats

	n := table.Capacity()
	msg.slots = make([]schema.Kind, n)
	msg.free = make([]bool, n)

	for idx := range n {
		e, err := table.Stat(filetable.Handle(idx))
		if errors.Is(err, filetable.ErrNotFound) {
			msg.free[idx] = true

			continue
		}
		if err != nil {
			msg.err = err

			return msg
		}
		msg.slots[idx] = e.Kind()
	}

	err = table.Walk(func(path string, h filetable.Handle, e schema.Entry) error {
		depth := strings.Count(path, "/") - 1
		if path == "/" {
			msg.tree = append(msg.tree, fmt.Sprintf("/  [%d]", h))

			return nil
		}

		line := strings.Repeat("  ", depth) + e.Name
		if e.IsDir() {
			line += "/"
		} else {
			line += "  " + humanize.Bytes(uint64(len(e.Content())))
		}
		msg.tree = append(msg.tree, fmt.Sprintf("%s  [%d]", line, h))

		return nil
	})
	if err != nil {
		msg.err = err
	}

	return msg
}

// slotMap renders one cell per slot: "d" for directories, "f" for regular
// files, "?" for anything else in use and "." for free slots. The slot last
// named in the log is shown in upper case, or as "x" if it is free now.
func slotMap(slots []schema.Kind, free []bool, active int) string {
	var s strings.Builder

	for idx, kind := range slots {
		cell := byte('?')
		switch {
		case free[idx]:
			cell = '.'
		case kind == schema.KindDirectory:
			cell = 'd'
		case kind == schema.KindRegular:
			cell = 'f'
		}

		if idx == active {
			cell = activeCell(cell)
		}
		s.WriteByte(cell)

		if (idx+1)%slotMapColumns == 0 && idx+1 < len(slots) {
			s.WriteByte('\n')
		} else if idx+1 < len(slots) {
			s.WriteByte(' ')
		}
	}

	return s.String()
}

func activeCell(cell byte) byte {
	switch cell {
	case '.':
		return 'x'
	case 'd', 'f':
		return cell - 'a' + 'A'
	}

	return cell
}
