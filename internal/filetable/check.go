package filetable

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gality369/simplefs/internal/schema"
)

type siblingKey struct {
	parent uint8
	name   string
}

// Check verifies every structural invariant of the table and returns all
// violations found, joined. Each violation wraps [ErrCorrupt], or
// [ErrNotFormatted] for a missing root.
func (t *Table) Check() error {
	t.RLock()
	entries, err := t.snapshot()
	t.RUnlock()

	if err != nil {
		return err
	}

	problems := checkEntries(entries)
	for _, p := range problems {
		slog.Warn("Consistency problem in file table.", "err", p)
	}

	return errors.Join(problems...)
}

func checkEntries(entries []schema.Entry) []error {
	var problems []error

	corrupt := func(idx int, format string, args ...any) {
		problems = append(problems, fmt.Errorf("%w: slot %d: %s", ErrCorrupt, idx, fmt.Sprintf(format, args...)))
	}

	if !entries[schema.RootIndex].IsRoot() {
		problems = append(problems, fmt.Errorf("%w: slot 0 is not a root directory", ErrNotFormatted))

		return problems
	}

	siblings := make(map[siblingKey]int)

	for idx, e := range entries {
		if !e.Busy {
			continue
		}

		if int(e.Index) != idx {
			corrupt(idx, "records index %d", e.Index)
		}

		kind := e.Kind()
		if kind != schema.KindDirectory && kind != schema.KindRegular {
			corrupt(idx, "has unsupported kind %s (mode %#o)", kind, e.Mode)
		}

		if int(e.Size) > schema.DataCapacity {
			corrupt(idx, "records data length %d beyond capacity %d", e.Size, schema.DataCapacity)
		}

		if idx == schema.RootIndex {
			continue
		}

		if err := ValidateName(e.Name); err != nil {
			corrupt(idx, "%v", err)
		}

		if int(e.Parent) >= len(entries) {
			corrupt(idx, "parent %d out of range", e.Parent)

			continue
		}
		if int(e.Parent) == idx {
			corrupt(idx, "is its own parent")

			continue
		}

		parent := entries[e.Parent]
		if !parent.Busy {
			corrupt(idx, "parent %d is free", e.Parent)
		} else if !parent.IsDir() {
			corrupt(idx, "parent %d is not a directory", e.Parent)
		}

		key := siblingKey{parent: e.Parent, name: e.Name}
		if other, dup := siblings[key]; dup {
			corrupt(idx, "name %q already used by slot %d", e.Name, other)
		} else {
			siblings[key] = idx
		}

		if !reachesRoot(entries, idx) {
			corrupt(idx, "parent chain does not reach the root")
		}
	}

	return problems
}

func reachesRoot(entries []schema.Entry, idx int) bool {
	cur := idx
	for range entries {
		if cur == schema.RootIndex {
			return true
		}

		e := entries[cur]
		if !e.Busy || int(e.Parent) >= len(entries) {
			return false
		}
		cur = int(e.Parent)
	}

	return cur == schema.RootIndex
}
