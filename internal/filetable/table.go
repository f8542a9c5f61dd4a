// Package filetable implements the file table engine. It interprets the flat
// array of records of a [blockstore.Store] as a tree of directories and
// regular files linked by parent indexes, and provides formatting, path
// resolution, creation, deletion, data access and directory listing on top.
//
// Every mutation is committed through exactly one record write, so a failed
// operation leaves the table unchanged. A [Table] writes through to its
// device on every mutation; unmounting only syncs and closes the device.
package filetable

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gality369/simplefs/internal/schema"
)

type recordStore interface {
	Slots() int
	Read(idx int) (schema.Entry, error)
	Write(idx int, e schema.Entry) error
	CheckCapacity() error
	Sync() error
	Close() error
}

// Handle identifies a table entry by its slot index. It stays valid for as
// long as the entry is not deleted.
type Handle int

// Root is the [Handle] of the root directory.
const Root Handle = schema.RootIndex

// Stats are table-wide counters.
type Stats struct {
	Capacity    int
	Used        int
	Free        int
	Directories int
	Files       int
	DataBytes   int
}

// Table is a mounted file table. Mutating operations hold the exclusive lock,
// all others the shared lock.
type Table struct {
	sync.RWMutex
	store  recordStore
	closed bool
}

// Format resets a device to a table holding only the root directory. Slot 0
// is invalidated first and rewritten last, so an interrupted format never
// leaves a valid root above stale records. It aborts on the first failed
// write.
func Format(store recordStore) error {
	if err := store.CheckCapacity(); err != nil {
		return fmt.Errorf("(filetable) %w", err)
	}

	for idx := range store.Slots() {
		if err := store.Write(idx, schema.Entry{}); err != nil {
			return fmt.Errorf("(filetable) failed to free slot %d: %w", idx, err)
		}
	}

	if err := store.Write(schema.RootIndex, schema.RootEntry()); err != nil {
		return fmt.Errorf("(filetable) failed to write root: %w", err)
	}

	if err := store.Sync(); err != nil {
		return fmt.Errorf("(filetable) %w", err)
	}

	slog.Debug("Formatted file table.", "slots", store.Slots())

	return nil
}

// Mount validates the root directory of a formatted device and returns a
// pointer to a new [Table] over it. The store is owned by the [Table] from
// here on and closed by [Table.Unmount].
func Mount(store recordStore) (*Table, error) {
	if err := store.CheckCapacity(); err != nil {
		return nil, fmt.Errorf("(filetable) %w", err)
	}

	root, err := store.Read(schema.RootIndex)
	if err != nil {
		return nil, fmt.Errorf("(filetable) failed to read root: %w", err)
	}

	if !root.IsRoot() {
		return nil, fmt.Errorf("(filetable) %w: slot 0 is not a root directory", ErrNotFormatted)
	}

	slog.Debug("Mounted file table.", "slots", store.Slots())

	return &Table{store: store}, nil
}

// Unmount syncs and closes the device. No table state is written, as every
// mutation was already written through. Unmounting twice is a no-op.
func (t *Table) Unmount() error {
	t.Lock()
	defer t.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if err := t.store.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := t.store.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("(filetable) failed to unmount: %w", err)
	}

	slog.Debug("Unmounted file table.")

	return nil
}

// Format resets a mounted table to the single-root state, discarding all
// other entries. Existing handles other than [Root] become invalid.
func (t *Table) Format() error {
	t.Lock()
	defer t.Unlock()

	if t.closed {
		return ErrClosed
	}

	return Format(t.store)
}

// Capacity returns the total number of slots, the root included.
func (t *Table) Capacity() int {
	return t.store.Slots()
}

// Stats returns table-wide counters.
func (t *Table) Stats() (Stats, error) {
	t.RLock()
	defer t.RUnlock()

	if t.closed {
		return Stats{}, ErrClosed
	}

	stats := Stats{Capacity: t.store.Slots()}

	for idx := range t.store.Slots() {
		e, err := t.store.Read(idx)
		if err != nil {
			return Stats{}, fmt.Errorf("(filetable) %w", err)
		}
		if !e.Busy {
			continue
		}

		stats.Used++
		switch e.Kind() {
		case schema.KindDirectory:
			stats.Directories++
		case schema.KindRegular:
			stats.Files++
			stats.DataBytes += len(e.Content())
		case schema.KindSymlink, schema.KindUnknown:
		}
	}

	stats.Free = stats.Capacity - stats.Used

	return stats, nil
}

// entryAt returns the busy entry at a slot. The caller holds a lock.
func (t *Table) entryAt(h Handle) (schema.Entry, error) {
	if t.closed {
		return schema.Entry{}, ErrClosed
	}

	e, err := t.store.Read(int(h))
	if err != nil {
		return schema.Entry{}, fmt.Errorf("(filetable) %w", err)
	}

	if !e.Busy {
		return schema.Entry{}, fmt.Errorf("(filetable) %w: slot %d is free", ErrNotFound, h)
	}

	return e, nil
}

// findChild scans for a busy child of a directory by name. The root is never
// its own child. The caller holds a lock.
func (t *Table) findChild(parent Handle, name string) (Handle, schema.Entry, bool, error) {
	for idx := range t.store.Slots() {
		if idx == schema.RootIndex || Handle(idx) == parent {
			continue
		}

		e, err := t.store.Read(idx)
		if err != nil {
			return 0, schema.Entry{}, false, fmt.Errorf("(filetable) %w", err)
		}

		if e.Busy && Handle(e.Parent) == parent && e.Name == name {
			return Handle(idx), e, true, nil
		}
	}

	return 0, schema.Entry{}, false, nil
}

// hasChildren returns whether any busy slot names a directory as parent. The
// caller holds a lock.
func (t *Table) hasChildren(dir Handle) (bool, error) {
	for idx := range t.store.Slots() {
		if idx == schema.RootIndex || Handle(idx) == dir {
			continue
		}

		e, err := t.store.Read(idx)
		if err != nil {
			return false, fmt.Errorf("(filetable) %w", err)
		}

		if e.Busy && Handle(e.Parent) == dir {
			return true, nil
		}
	}

	return false, nil
}

// freeSlot returns the lowest free slot. The caller holds the exclusive lock.
func (t *Table) freeSlot() (Handle, error) {
	for idx := range t.store.Slots() {
		if idx == schema.RootIndex {
			continue
		}

		e, err := t.store.Read(idx)
		if err != nil {
			return 0, fmt.Errorf("(filetable) %w", err)
		}

		if !e.Busy {
			return Handle(idx), nil
		}
	}

	return 0, fmt.Errorf("(filetable) %w: all %d slots in use", ErrTableFull, t.store.Slots())
}
