package schema

import (
	"golang.org/x/sys/unix"
)

const (
	// SlotCount is the number of records in a file table. It is baked into
	// every formatted image and never changes after formatting.
	SlotCount = 32

	// NameCapacity is the number of bytes reserved for an [Entry] name.
	NameCapacity = 8

	// DataCapacity is the number of bytes reserved for a regular file's data.
	DataCapacity = 32

	// RecordSize is the size of one encoded [Entry] on disk.
	RecordSize = 52

	// ImageSize is the minimum size of a device holding a full table.
	ImageSize = SlotCount * RecordSize

	// RootIndex is the slot of the root directory. The root is its own parent.
	RootIndex = 0

	// RootName is the name recorded for the root directory.
	RootName = "/"

	// DefaultDirPerms are the permission bits given to new directories.
	DefaultDirPerms = 0o755

	// DefaultFilePerms are the permission bits given to new regular files.
	DefaultFilePerms = 0o644

	// PermMask selects the permission bits of a mode.
	PermMask = 0o7777
)

// Kind is the type of a file table [Entry], derived from its mode.
type Kind uint8

const (
	// KindUnknown is any mode whose type bits are not understood.
	KindUnknown Kind = iota

	// KindDirectory is a directory, whose children point to it as parent.
	KindDirectory

	// KindRegular is a regular file holding its content in the record.
	KindRegular

	// KindSymlink is reserved by the format but never created.
	KindSymlink
)

// String returns a short human-readable name of a [Kind].
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindRegular:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindUnknown:
	}

	return "unknown"
}

// TypeBits returns the file type bits of a mode for a [Kind].
func (k Kind) TypeBits() uint32 {
	switch k {
	case KindDirectory:
		return unix.S_IFDIR
	case KindRegular:
		return unix.S_IFREG
	case KindSymlink:
		return unix.S_IFLNK
	case KindUnknown:
	}

	return 0
}

// KindOf returns the [Kind] encoded in the type bits of a mode.
func KindOf(mode uint32) Kind {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return KindDirectory
	case unix.S_IFREG:
		return KindRegular
	case unix.S_IFLNK:
		return KindSymlink
	}

	return KindUnknown
}

// Entry is one slot of the file table. A free slot has Busy set to false,
// in which case all other fields carry no meaning.
type Entry struct {
	Name   string
	Busy   bool
	Mode   uint32
	Index  uint8
	Parent uint8
	Size   uint8
	Data   [DataCapacity]byte
}

// NewEntry returns a busy [Entry] of the given [Kind] with default
// permissions and no data.
func NewEntry(idx, parent uint8, name string, kind Kind) Entry {
	perms := uint32(DefaultFilePerms)
	if kind == KindDirectory {
		perms = DefaultDirPerms
	}

	return Entry{
		Name:   name,
		Busy:   true,
		Mode:   kind.TypeBits() | perms,
		Index:  idx,
		Parent: parent,
	}
}

// RootEntry returns the [Entry] written to slot [RootIndex] on format.
func RootEntry() Entry {
	return NewEntry(RootIndex, RootIndex, RootName, KindDirectory)
}

// Kind returns the [Kind] of an [Entry].
func (e Entry) Kind() Kind {
	return KindOf(e.Mode)
}

// Perms returns the permission bits of an [Entry].
func (e Entry) Perms() uint32 {
	return e.Mode & PermMask
}

// IsDir returns whether an [Entry] is a directory.
func (e Entry) IsDir() bool {
	return e.Kind() == KindDirectory
}

// IsRegular returns whether an [Entry] is a regular file.
func (e Entry) IsRegular() bool {
	return e.Kind() == KindRegular
}

// IsRoot returns whether an [Entry] has the shape of the root directory.
func (e Entry) IsRoot() bool {
	return e.Busy && e.IsDir() && e.Index == RootIndex && e.Parent == RootIndex
}

// Content returns a copy of the logical data of an [Entry].
func (e Entry) Content() []byte {
	n := min(int(e.Size), DataCapacity)
	out := make([]byte, n)
	copy(out, e.Data[:n])

	return out
}

// SetContent replaces the data of an [Entry]. The remainder of the data
// buffer is zeroed.
func (e *Entry) SetContent(data []byte) error {
	if len(data) > DataCapacity {
		return ErrDataCapacity
	}

	e.Data = [DataCapacity]byte{}
	copy(e.Data[:], data)
	e.Size = uint8(len(data)) //nolint:gosec

	return nil
}
