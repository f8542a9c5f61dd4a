package filetable

import (
	"fmt"
	"log/slog"

	"github.com/gality369/simplefs/internal/schema"
)

// Create claims the lowest free slot for a new, empty entry of the given
// [schema.Kind] inside a parent directory and returns its [Handle].
func (t *Table) Create(parent Handle, name string, kind schema.Kind) (Handle, error) {
	if kind != schema.KindDirectory && kind != schema.KindRegular {
		return 0, fmt.Errorf("(filetable) %w: %s", ErrUnsupportedKind, kind)
	}

	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("(filetable) %w", err)
	}

	t.Lock()
	defer t.Unlock()

	dir, err := t.entryAt(parent)
	if err != nil {
		return 0, err
	}

	return t.create(parent, dir, name, kind)
}

// CreatePath is [Table.Create] for the slash-separated path of the new
// entry, whose parent directory must already exist.
func (t *Table) CreatePath(path string, kind schema.Kind) (Handle, error) {
	dirComponents, name, err := splitLast(path)
	if err != nil {
		return 0, err
	}

	if kind != schema.KindDirectory && kind != schema.KindRegular {
		return 0, fmt.Errorf("(filetable) %w: %s", ErrUnsupportedKind, kind)
	}

	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("(filetable) %w", err)
	}

	t.Lock()
	defer t.Unlock()

	parent, dir, err := t.resolve(dirComponents)
	if err != nil {
		return 0, err
	}

	return t.create(parent, dir, name, kind)
}

// Delete frees the slot of an entry. Directories must be empty and the root
// cannot be deleted.
func (t *Table) Delete(h Handle) error {
	t.Lock()
	defer t.Unlock()

	e, err := t.entryAt(h)
	if err != nil {
		return err
	}

	return t.delete(h, e)
}

// DeletePath is [Table.Delete] for a slash-separated path.
func (t *Table) DeletePath(path string) error {
	t.Lock()
	defer t.Unlock()

	h, e, err := t.resolve(SplitPath(path))
	if err != nil {
		return err
	}

	return t.delete(h, e)
}

// Read returns a copy of the data of a regular file.
func (t *Table) Read(h Handle) ([]byte, error) {
	t.RLock()
	defer t.RUnlock()

	e, err := t.entryAt(h)
	if err != nil {
		return nil, err
	}

	return readable(e)
}

// ReadPath is [Table.Read] for a slash-separated path.
func (t *Table) ReadPath(path string) ([]byte, error) {
	t.RLock()
	defer t.RUnlock()

	_, e, err := t.resolve(SplitPath(path))
	if err != nil {
		return nil, err
	}

	return readable(e)
}

// Write replaces the whole data of a regular file. Data beyond the record
// capacity is rejected and the prior data is left untouched.
func (t *Table) Write(h Handle, data []byte) error {
	t.Lock()
	defer t.Unlock()

	e, err := t.entryAt(h)
	if err != nil {
		return err
	}

	return t.write(h, e, data)
}

// WritePath is [Table.Write] for a slash-separated path.
func (t *Table) WritePath(path string, data []byte) error {
	t.Lock()
	defer t.Unlock()

	h, e, err := t.resolve(SplitPath(path))
	if err != nil {
		return err
	}

	return t.write(h, e, data)
}

func (t *Table) create(parent Handle, dir schema.Entry, name string, kind schema.Kind) (Handle, error) {
	if !dir.IsDir() {
		return 0, fmt.Errorf("(filetable) %w: %q", ErrNotADirectory, dir.Name)
	}

	_, _, exists, err := t.findChild(parent, name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("(filetable) %w: %q in %q", ErrAlreadyExists, name, dir.Name)
	}

	h, err := t.freeSlot()
	if err != nil {
		return 0, err
	}

	e := schema.NewEntry(uint8(h), uint8(parent), name, kind) //nolint:gosec
	if err := t.store.Write(int(h), e); err != nil {
		return 0, fmt.Errorf("(filetable) failed to commit %q: %w", name, err)
	}

	slog.Debug("Created entry.", "name", name, "kind", kind, "slot", int(h), "parent", int(parent))

	return h, nil
}

func (t *Table) delete(h Handle, e schema.Entry) error {
	if h == Root {
		return fmt.Errorf("(filetable) %w", ErrIsRoot)
	}

	if e.IsDir() {
		busy, err := t.hasChildren(h)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("(filetable) %w: %q", ErrDirectoryNotEmpty, e.Name)
		}
	}

	if err := t.store.Write(int(h), schema.Entry{}); err != nil {
		return fmt.Errorf("(filetable) failed to free %q: %w", e.Name, err)
	}

	slog.Debug("Deleted entry.", "name", e.Name, "slot", int(h))

	return nil
}

func (t *Table) write(h Handle, e schema.Entry, data []byte) error {
	if err := writable(e); err != nil {
		return err
	}

	if len(data) > schema.DataCapacity {
		return fmt.Errorf("(filetable) %w: %d > %d bytes", ErrTooLarge, len(data), schema.DataCapacity)
	}

	if err := e.SetContent(data); err != nil {
		return fmt.Errorf("(filetable) %w: %w", ErrTooLarge, err)
	}

	if err := t.store.Write(int(h), e); err != nil {
		return fmt.Errorf("(filetable) failed to commit %q: %w", e.Name, err)
	}

	return nil
}

func readable(e schema.Entry) ([]byte, error) {
	if err := writable(e); err != nil {
		return nil, err
	}

	return e.Content(), nil
}

func writable(e schema.Entry) error {
	switch e.Kind() {
	case schema.KindRegular:
		return nil
	case schema.KindDirectory:
		return fmt.Errorf("(filetable) %w: %q", ErrIsADirectory, e.Name)
	case schema.KindSymlink, schema.KindUnknown:
	}

	return fmt.Errorf("(filetable) %w: %q is %s", ErrUnsupportedKind, e.Name, e.Kind())
}

// splitLast splits a path into its parent components and final name.
func splitLast(path string) ([]string, string, error) {
	components := SplitPath(path)
	if len(components) == 0 {
		return nil, "", fmt.Errorf("(filetable) %w", ErrIsRoot)
	}

	return components[:len(components)-1], components[len(components)-1], nil
}
