package frontend

import (
	"errors"
	"log/slog"
	"syscall"

	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
)

var errnoTable = []struct {
	err   error
	errno syscall.Errno
}{
	{filetable.ErrNotFound, syscall.ENOENT},
	{filetable.ErrOutOfRange, syscall.ENOENT},
	{filetable.ErrNotADirectory, syscall.ENOTDIR},
	{filetable.ErrIsADirectory, syscall.EISDIR},
	{filetable.ErrAlreadyExists, syscall.EEXIST},
	{filetable.ErrNameTooLong, syscall.ENAMETOOLONG},
	{filetable.ErrInvalidName, syscall.EINVAL},
	{filetable.ErrTooLarge, syscall.EFBIG},
	{filetable.ErrTableFull, syscall.ENOSPC},
	{filetable.ErrDirectoryNotEmpty, syscall.ENOTEMPTY},
	{filetable.ErrIsRoot, syscall.EBUSY},
	{filetable.ErrUnsupportedKind, syscall.EINVAL},
}

// toErrno maps an error of the file table to the errno reported to the
// kernel. Anything not listed, device failures included, becomes EIO.
func toErrno(op string, err error) syscall.Errno {
	if err == nil {
		return 0
	}

	for _, m := range errnoTable {
		if errors.Is(err, m.err) {
			return m.errno
		}
	}

	slog.Warn("Filesystem operation failed.", "op", op, "err", err)

	return syscall.EIO
}

// splice returns cur with data written at offset off, zero-filling any gap.
// Results beyond the record capacity yield EFBIG.
func splice(cur, data []byte, off int64) ([]byte, syscall.Errno) {
	if off < 0 {
		return nil, syscall.EINVAL
	}

	end := off + int64(len(data))
	if end > schema.DataCapacity {
		return nil, syscall.EFBIG
	}

	out := make([]byte, max(int64(len(cur)), end))
	copy(out, cur)
	copy(out[off:], data)

	return out, 0
}

// resize returns cur cut or zero-extended to size bytes.
func resize(cur []byte, size uint64) ([]byte, syscall.Errno) {
	if size > schema.DataCapacity {
		return nil, syscall.EFBIG
	}

	out := make([]byte, size)
	copy(out, cur)

	return out, 0
}
