package filetable

import (
	"errors"
	"fmt"
	"iter"
	"path"

	"github.com/gality369/simplefs/internal/schema"
)

// ErrSkipDir can be returned by a [WalkFunc] to skip the children of the
// directory it was called for.
var ErrSkipDir = errors.New("skip this directory")

// Child is one element of a directory listing.
type Child struct {
	Name   string
	Kind   schema.Kind
	Handle Handle
}

// WalkFunc is called by [Table.Walk] for every entry reachable from the root.
type WalkFunc func(path string, h Handle, e schema.Entry) error

// Children returns a lazy sequence of the children of a directory, in
// ascending slot order. Each step reads one slot under the shared lock, so
// the loop body may call other [Table] methods, mutations included. Ranging
// over the sequence again restarts the scan. An error ends the sequence.
func (t *Table) Children(h Handle) iter.Seq2[Child, error] {
	return func(yield func(Child, error) bool) {
		t.RLock()
		dir, err := t.entryAt(h)
		t.RUnlock()

		if err == nil && !dir.IsDir() {
			err = fmt.Errorf("(filetable) %w: %q", ErrNotADirectory, dir.Name)
		}
		if err != nil {
			yield(Child{}, err)

			return
		}

		for idx := range t.store.Slots() {
			if idx == schema.RootIndex || Handle(idx) == h {
				continue
			}

			t.RLock()
			e, err := t.readOpen(idx)
			t.RUnlock()

			if err != nil {
				yield(Child{}, err)

				return
			}

			if !e.Busy || Handle(e.Parent) != h {
				continue
			}

			if !yield(Child{Name: e.Name, Kind: e.Kind(), Handle: Handle(idx)}, nil) {
				return
			}
		}
	}
}

// ListChildren returns the children of a directory in ascending slot order,
// taken as one consistent snapshot.
func (t *Table) ListChildren(h Handle) ([]Child, error) {
	t.RLock()
	defer t.RUnlock()

	entries, err := t.snapshot()
	if err != nil {
		return nil, err
	}

	if h < 0 || int(h) >= len(entries) {
		return nil, fmt.Errorf("(filetable) %w: %d (capacity %d)", ErrOutOfRange, h, len(entries))
	}
	if !entries[h].Busy {
		return nil, fmt.Errorf("(filetable) %w: slot %d is free", ErrNotFound, h)
	}
	if !entries[h].IsDir() {
		return nil, fmt.Errorf("(filetable) %w: %q", ErrNotADirectory, entries[h].Name)
	}

	return childrenOf(entries, h), nil
}

// Walk calls fn for the root and every entry reachable from it, depth-first
// with siblings in ascending slot order. It works on one consistent snapshot
// taken before the first call, so fn may mutate the table. Returning
// [ErrSkipDir] skips a directory's children; any other error stops the walk
// and is returned.
func (t *Table) Walk(fn WalkFunc) error {
	t.RLock()
	entries, err := t.snapshot()
	t.RUnlock()

	if err != nil {
		return err
	}

	if !entries[Root].IsRoot() {
		return fmt.Errorf("(filetable) %w: slot 0 is not a root directory", ErrNotFormatted)
	}

	visited := make(map[Handle]struct{}, len(entries))

	var walk func(p string, h Handle) error
	walk = func(p string, h Handle) error {
		if _, seen := visited[h]; seen {
			return nil
		}
		visited[h] = struct{}{}

		if err := fn(p, h, entries[h]); err != nil {
			if errors.Is(err, ErrSkipDir) {
				return nil
			}

			return err
		}

		if !entries[h].IsDir() {
			return nil
		}

		for _, c := range childrenOf(entries, h) {
			if err := walk(path.Join(p, c.Name), c.Handle); err != nil {
				return err
			}
		}

		return nil
	}

	return walk("/", Root)
}

// readOpen reads a slot, failing if the table was unmounted. The caller holds
// a lock.
func (t *Table) readOpen(idx int) (schema.Entry, error) {
	if t.closed {
		return schema.Entry{}, ErrClosed
	}

	e, err := t.store.Read(idx)
	if err != nil {
		return schema.Entry{}, fmt.Errorf("(filetable) %w", err)
	}

	return e, nil
}

// snapshot reads all slots. The caller holds a lock.
func (t *Table) snapshot() ([]schema.Entry, error) {
	entries := make([]schema.Entry, t.store.Slots())

	for idx := range entries {
		e, err := t.readOpen(idx)
		if err != nil {
			return nil, err
		}
		entries[idx] = e
	}

	return entries, nil
}

func childrenOf(entries []schema.Entry, h Handle) []Child {
	var children []Child

	for idx, e := range entries {
		if idx == schema.RootIndex || Handle(idx) == h {
			continue
		}
		if e.Busy && Handle(e.Parent) == h {
			children = append(children, Child{Name: e.Name, Kind: e.Kind(), Handle: Handle(idx)})
		}
	}

	return children
}
