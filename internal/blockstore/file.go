package blockstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

type osProvider interface {
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
}

type unixProvider interface {
	Pread(fd int, p []byte, offset int64) (int, error)
	Pwrite(fd int, p []byte, offset int64) (int, error)
	Fsync(fd int) error
	Flock(fd int, how int) error
	Fstat(fd int, stat *unix.Stat_t) error
}

// FileOptions configure how a [FileDevice] is opened.
type FileOptions struct {
	// Create creates a missing image file and grows it to MinSize.
	Create bool

	// MinSize is the size a created or shorter regular image file is grown
	// to. It is ignored for block devices.
	MinSize int64

	// ReadOnly opens the device without write access.
	ReadOnly bool

	// Exclusive takes a non-blocking exclusive advisory lock on the device
	// for as long as it is open.
	Exclusive bool
}

// FileDevice is a [Device] backed by a block device or a regular image file.
// All transfers are positional, so concurrent readers and writers never share
// a file offset.
type FileDevice struct {
	file    *os.File
	fd      int
	path    string
	locked  bool
	closed  atomic.Bool
	unixOps unixProvider
}

// OpenFile opens the block device or image file at path as a [FileDevice].
func OpenFile(path string, opts FileOptions, osOps osProvider, unixOps unixProvider) (*FileDevice, error) {
	flag := os.O_RDWR
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}
	if opts.Create && !opts.ReadOnly {
		flag |= os.O_CREATE
	}

	file, err := osOps.OpenFile(path, flag, 0o644) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("(blockstore) failed to open device: %w", err)
	}

	dev := &FileDevice{
		file:    file,
		fd:      int(file.Fd()), //nolint:gosec
		path:    path,
		unixOps: unixOps,
	}

	if opts.Exclusive {
		if err := unixOps.Flock(dev.fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, fmt.Errorf("(blockstore) %w: %s", ErrDeviceLocked, path)
			}

			return nil, fmt.Errorf("(blockstore) failed to lock device: %w", err)
		}
		dev.locked = true
	}

	if opts.Create && !opts.ReadOnly && opts.MinSize > 0 {
		if err := dev.grow(opts.MinSize); err != nil {
			dev.Close()

			return nil, err
		}
	}

	return dev, nil
}

// Path returns the path a [FileDevice] was opened from.
func (d *FileDevice) Path() string {
	return d.path
}

// ReadAt reads len(p) bytes at offset off, retrying partial transfers.
func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}

	total := 0
	for total < len(p) {
		n, err := d.unixOps.Pread(d.fd, p[total:], off+int64(total))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}

			return total, fmt.Errorf("pread: %w", err)
		}
		if n == 0 {
			return total, io.EOF
		}
		total += n
	}

	return total, nil
}

// WriteAt writes len(p) bytes at offset off, retrying partial transfers.
func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}

	total := 0
	for total < len(p) {
		n, err := d.unixOps.Pwrite(d.fd, p[total:], off+int64(total))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}

			return total, fmt.Errorf("pwrite: %w", err)
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
		total += n
	}

	return total, nil
}

// Size returns the size of the device in bytes. Block devices report no size
// through stat, so their end is located by seeking.
func (d *FileDevice) Size() (int64, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}

	var st unix.Stat_t
	if err := d.unixOps.Fstat(d.fd, &st); err != nil {
		return 0, fmt.Errorf("fstat: %w", err)
	}

	if st.Mode&unix.S_IFMT != unix.S_IFBLK {
		return st.Size, nil
	}

	end, err := d.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}

	return end, nil
}

// Sync flushes written records to stable storage.
func (d *FileDevice) Sync() error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}

	if err := d.unixOps.Fsync(d.fd); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}

	return nil
}

// Close releases the lock of a [FileDevice] and closes it. Closing more than
// once is a no-op.
func (d *FileDevice) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	if d.locked {
		_ = d.unixOps.Flock(d.fd, unix.LOCK_UN)
	}

	if err := d.file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

func (d *FileDevice) grow(size int64) error {
	var st unix.Stat_t
	if err := d.unixOps.Fstat(d.fd, &st); err != nil {
		return fmt.Errorf("(blockstore) failed to stat device: %w", err)
	}

	if st.Mode&unix.S_IFMT != unix.S_IFREG || st.Size >= size {
		return nil
	}

	if err := d.file.Truncate(size); err != nil {
		return fmt.Errorf("(blockstore) failed to grow image: %w", err)
	}

	return nil
}
