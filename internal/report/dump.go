package report

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
)

// Dump is the TOML document describing the whole tree of a file table.
// Entries are ordered so that every directory precedes its children.
type Dump struct {
	Capacity int         `toml:"capacity"`
	Entries  []DumpEntry `toml:"entry"`
}

// DumpEntry is one busy slot of a [Dump]. Data holds the content of a
// regular file as hexadecimal digits.
type DumpEntry struct {
	Slot   int    `toml:"slot"`
	Parent int    `toml:"parent"`
	Path   string `toml:"path"`
	Kind   string `toml:"kind"`
	Mode   string `toml:"mode"`
	Size   int    `toml:"size"`
	Data   string `toml:"data,omitempty"`
}

type tableWalker interface {
	Capacity() int
	Walk(fn filetable.WalkFunc) error
}

type tableRestorer interface {
	Format() error
	CreatePath(path string, kind schema.Kind) (filetable.Handle, error)
	WritePath(path string, data []byte) error
}

// NewDump collects a [Dump] of every entry reachable from the root.
func NewDump(table tableWalker) (Dump, error) {
	d := Dump{Capacity: table.Capacity()}

	err := table.Walk(func(path string, h filetable.Handle, e schema.Entry) error {
		entry := DumpEntry{
			Slot:   int(h),
			Parent: int(e.Parent),
			Path:   path,
			Kind:   e.Kind().String(),
			Mode:   fmt.Sprintf("%04o", e.Perms()),
			Size:   len(e.Content()),
		}
		if e.IsRegular() && entry.Size > 0 {
			entry.Data = hex.EncodeToString(e.Content())
		}
		d.Entries = append(d.Entries, entry)

		return nil
	})
	if err != nil {
		return d, fmt.Errorf("(report) failed to walk table: %w", err)
	}

	return d, nil
}

// WriteDump encodes a [Dump] of a table as TOML.
func WriteDump(table tableWalker, w io.Writer) error {
	d, err := NewDump(table)
	if err != nil {
		return err
	}

	if err := toml.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("(report) failed to encode dump: %w", err)
	}

	return nil
}

// ReadDump decodes a TOML [Dump]. Keys it does not know are rejected.
func ReadDump(r io.Reader) (Dump, error) {
	var d Dump

	md, err := toml.NewDecoder(r).Decode(&d)
	if err != nil {
		return d, fmt.Errorf("(report) %w: %w", ErrInvalidDump, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return d, fmt.Errorf("(report) %w: unknown key %q", ErrInvalidDump, undecoded[0].String())
	}

	return d, nil
}

// Restore formats a table and recreates the entries of a [Dump] in order.
// Entries are recreated by path, so they may land in other slots than they
// were dumped from, and they get default permissions. The dump is validated
// before the table is touched.
func Restore(table tableRestorer, d Dump) error {
	steps, err := planRestore(d)
	if err != nil {
		return err
	}

	if err := table.Format(); err != nil {
		return fmt.Errorf("(report) failed to format table: %w", err)
	}

	for _, s := range steps {
		if _, err := table.CreatePath(s.path, s.kind); err != nil {
			return fmt.Errorf("(report) failed to restore %s: %w", s.path, err)
		}

		if len(s.data) > 0 {
			if err := table.WritePath(s.path, s.data); err != nil {
				return fmt.Errorf("(report) failed to restore %s: %w", s.path, err)
			}
		}
	}

	return nil
}

type restoreStep struct {
	path string
	kind schema.Kind
	data []byte
}

// planRestore checks that every entry of a [Dump] can be recreated on a
// freshly formatted table: valid names, parents dumped earlier as
// directories, no duplicates and no more entries than free slots.
func planRestore(d Dump) ([]restoreStep, error) {
	steps := make([]restoreStep, 0, len(d.Entries))
	kinds := map[string]schema.Kind{"/": schema.KindDirectory}

	for _, entry := range d.Entries {
		components := filetable.SplitPath(entry.Path)
		if len(components) == 0 {
			continue
		}

		fail := func(err error) ([]restoreStep, error) {
			return nil, fmt.Errorf("(report) %w: %s: %w", ErrInvalidDump, entry.Path, err)
		}

		name := components[len(components)-1]
		if err := filetable.ValidateName(name); err != nil {
			return fail(err)
		}

		p := "/" + strings.Join(components, "/")
		parent := "/" + strings.Join(components[:len(components)-1], "/")

		if _, exists := kinds[p]; exists {
			return fail(filetable.ErrAlreadyExists)
		}
		parentKind, exists := kinds[parent]
		if !exists {
			return fail(fmt.Errorf("parent %s: %w", parent, filetable.ErrNotFound))
		}
		if parentKind != schema.KindDirectory {
			return fail(fmt.Errorf("parent %s: %w", parent, filetable.ErrNotADirectory))
		}

		kind, err := parseKind(entry.Kind)
		if err != nil {
			return fail(err)
		}

		data, err := hex.DecodeString(entry.Data)
		if err != nil {
			return fail(err)
		}
		if len(data) > schema.DataCapacity {
			return fail(filetable.ErrTooLarge)
		}
		if len(data) > 0 && kind != schema.KindRegular {
			return fail(fmt.Errorf("data on a %s", kind))
		}

		kinds[p] = kind
		steps = append(steps, restoreStep{p, kind, data})
	}

	if free := schema.SlotCount - 1; len(steps) > free {
		return nil, fmt.Errorf("(report) %w: %d entries: %w (%d free slots)", ErrInvalidDump, len(steps), filetable.ErrTableFull, free)
	}

	return steps, nil
}

func parseKind(s string) (schema.Kind, error) {
	for _, kind := range []schema.Kind{schema.KindDirectory, schema.KindRegular} {
		if kind.String() == s {
			return kind, nil
		}
	}

	return schema.KindUnknown, fmt.Errorf("%w: %q", filetable.ErrUnsupportedKind, s)
}
