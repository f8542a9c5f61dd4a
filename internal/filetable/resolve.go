package filetable

import (
	"fmt"
	"strings"

	"github.com/gality369/simplefs/internal/schema"
)

// SplitPath splits a slash-separated path into its name components. Empty
// and "." components are dropped, so "/", "" and "." all denote the root.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	components := make([]string, 0, len(parts))

	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		components = append(components, p)
	}

	return components
}

// ValidateName returns an error if a name cannot be stored in a record.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if len(name) > schema.NameCapacity {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrNameTooLong, name, schema.NameCapacity)
	}

	return nil
}

// Resolve walks name components from the root and returns the [Handle] and a
// copy of the entry they lead to. No components resolve to the root. A ".."
// component ascends to the parent directory, where the root is its own
// parent.
func (t *Table) Resolve(components []string) (Handle, schema.Entry, error) {
	t.RLock()
	defer t.RUnlock()

	return t.resolve(components)
}

// ResolvePath is [Table.Resolve] for a slash-separated path.
func (t *Table) ResolvePath(path string) (Handle, schema.Entry, error) {
	return t.Resolve(SplitPath(path))
}

// Lookup returns the child of a directory with the given name.
func (t *Table) Lookup(parent Handle, name string) (Handle, schema.Entry, error) {
	t.RLock()
	defer t.RUnlock()

	dir, err := t.entryAt(parent)
	if err != nil {
		return 0, schema.Entry{}, err
	}

	return t.step(parent, dir, name)
}

// Stat returns a copy of the entry of a [Handle].
func (t *Table) Stat(h Handle) (schema.Entry, error) {
	t.RLock()
	defer t.RUnlock()

	return t.entryAt(h)
}

// Parent returns the containing directory of a [Handle]. The parent of the
// root is the root.
func (t *Table) Parent(h Handle) (Handle, error) {
	t.RLock()
	defer t.RUnlock()

	e, err := t.entryAt(h)
	if err != nil {
		return 0, err
	}

	if h == Root {
		return Root, nil
	}

	return Handle(e.Parent), nil
}

// Path returns the absolute slash-separated path of a [Handle] by following
// parent links up to the root.
func (t *Table) Path(h Handle) (string, error) {
	t.RLock()
	defer t.RUnlock()

	var names []string

	cur := h
	for range t.store.Slots() {
		if cur == Root {
			if _, err := t.entryAt(Root); err != nil {
				return "", err
			}

			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}

			return "/" + strings.Join(names, "/"), nil
		}

		e, err := t.entryAt(cur)
		if err != nil {
			return "", err
		}

		names = append(names, e.Name)
		cur = Handle(e.Parent)
	}

	return "", fmt.Errorf("(filetable) %w: parent chain of slot %d does not reach the root", ErrCorrupt, h)
}

// resolve is [Table.Resolve] with a lock held by the caller.
func (t *Table) resolve(components []string) (Handle, schema.Entry, error) {
	cur := Root

	e, err := t.entryAt(cur)
	if err != nil {
		return 0, schema.Entry{}, err
	}

	for _, name := range components {
		cur, e, err = t.step(cur, e, name)
		if err != nil {
			return 0, schema.Entry{}, err
		}
	}

	return cur, e, nil
}

// step descends from a directory entry into one name component. The caller
// holds a lock.
func (t *Table) step(cur Handle, e schema.Entry, name string) (Handle, schema.Entry, error) {
	if !e.IsDir() {
		return 0, schema.Entry{}, fmt.Errorf("(filetable) %w: %q", ErrNotADirectory, e.Name)
	}

	switch name {
	case ".", "":
		return cur, e, nil
	case "..":
		if cur == Root {
			return cur, e, nil
		}
		parent := Handle(e.Parent)
		pe, err := t.entryAt(parent)
		if err != nil {
			return 0, schema.Entry{}, err
		}

		return parent, pe, nil
	}

	child, ce, found, err := t.findChild(cur, name)
	if err != nil {
		return 0, schema.Entry{}, err
	}
	if !found {
		return 0, schema.Entry{}, fmt.Errorf("(filetable) %w: %q in %q", ErrNotFound, name, e.Name)
	}

	return child, ce, nil
}
