package filetable

import (
	"errors"

	"github.com/gality369/simplefs/internal/blockstore"
)

var (
	// ErrIO is an error that occurs when the underlying device fails.
	ErrIO = blockstore.ErrIO

	// ErrOutOfRange is an error that occurs when a [Handle] lies beyond the
	// capacity of the table.
	ErrOutOfRange = blockstore.ErrOutOfRange

	// ErrDeviceTooSmall is an error that occurs when a device cannot hold a
	// full table.
	ErrDeviceTooSmall = blockstore.ErrDeviceTooSmall

	// ErrNotFound is an error that occurs when a path component or a
	// [Handle] does not refer to a busy slot.
	ErrNotFound = errors.New("no such file or directory")

	// ErrNotADirectory is an error that occurs when a directory is required,
	// but the entry is not one.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory is an error that occurs when file data of a directory
	// is attempted to be read or written.
	ErrIsADirectory = errors.New("is a directory")

	// ErrAlreadyExists is an error that occurs when a sibling with the same
	// name already exists.
	ErrAlreadyExists = errors.New("file exists")

	// ErrNameTooLong is an error that occurs when a name does not fit into a
	// record.
	ErrNameTooLong = errors.New("file name too long")

	// ErrInvalidName is an error that occurs when a name is empty, reserved
	// or contains a separator or NUL byte.
	ErrInvalidName = errors.New("invalid file name")

	// ErrTooLarge is an error that occurs when data exceeds the capacity of
	// a record.
	ErrTooLarge = errors.New("file too large")

	// ErrTableFull is an error that occurs when no free slot is left.
	ErrTableFull = errors.New("file table full")

	// ErrDirectoryNotEmpty is an error that occurs when a directory with
	// children is attempted to be deleted.
	ErrDirectoryNotEmpty = errors.New("directory not empty")

	// ErrIsRoot is an error that occurs when the root directory is attempted
	// to be deleted or created.
	ErrIsRoot = errors.New("operation not permitted on root directory")

	// ErrUnsupportedKind is an error that occurs when an entry kind other
	// than directory or regular file is used.
	ErrUnsupportedKind = errors.New("unsupported entry kind")

	// ErrNotFormatted is an error that occurs when slot 0 of a device does
	// not hold a valid root directory.
	ErrNotFormatted = errors.New("device holds no formatted file table")

	// ErrCorrupt is an error that occurs when a table violates one of its
	// structural invariants.
	ErrCorrupt = errors.New("file table corrupt")

	// ErrClosed is an error that occurs when an unmounted [Table] is used.
	ErrClosed = errors.New("file table is not mounted")
)
