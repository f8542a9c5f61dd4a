package blockstore

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MappedDevice is a [Device] whose contents are mapped into memory. Records
// are copied in and out of the mapping under a lock and reach the backing
// file on [MappedDevice.Sync] or [MappedDevice.Close].
type MappedDevice struct {
	sync.RWMutex
	file     *FileDevice
	data     mmap.MMap
	readOnly bool
	closed   bool
}

// MapFile opens the block device or image file at path like [OpenFile] and
// maps all of it into memory.
func MapFile(path string, opts FileOptions, osOps osProvider, unixOps unixProvider) (*MappedDevice, error) {
	file, err := OpenFile(path, opts, osOps, unixOps)
	if err != nil {
		return nil, err
	}

	size, err := file.Size()
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("(blockstore) failed to size device: %w", err)
	}
	if size <= 0 {
		file.Close()

		return nil, fmt.Errorf("(blockstore) %w: cannot map an empty device", ErrDeviceTooSmall)
	}

	prot := mmap.RDWR
	if opts.ReadOnly {
		prot = mmap.RDONLY
	}

	data, err := mmap.MapRegion(file.file, int(size), prot, 0, 0)
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("(blockstore) failed to map device: %w", err)
	}

	return &MappedDevice{
		file:     file,
		data:     data,
		readOnly: opts.ReadOnly,
	}, nil
}

// ReadAt copies mapped contents at offset off into p.
func (d *MappedDevice) ReadAt(p []byte, off int64) (int, error) {
	d.RLock()
	defer d.RUnlock()

	if d.closed {
		return 0, ErrDeviceClosed
	}
	if off < 0 || off >= int64(len(d.data)) {
		return 0, io.EOF
	}

	n := copy(p, d.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt copies p into the mapping at offset off. Writes reaching past the
// end of the device are rejected without modifying it.
func (d *MappedDevice) WriteAt(p []byte, off int64) (int, error) {
	d.Lock()
	defer d.Unlock()

	if d.closed {
		return 0, ErrDeviceClosed
	}
	if d.readOnly {
		return 0, ErrDeviceReadOnly
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, io.ErrShortWrite
	}

	return copy(d.data[off:], p), nil
}

// Size returns the size of the mapping.
func (d *MappedDevice) Size() (int64, error) {
	d.RLock()
	defer d.RUnlock()

	if d.closed {
		return 0, ErrDeviceClosed
	}

	return int64(len(d.data)), nil
}

// Sync writes dirty pages back and flushes the device.
func (d *MappedDevice) Sync() error {
	d.Lock()
	defer d.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}

	return d.flush()
}

// Close flushes and removes the mapping and closes the device. Closing more
// than once is a no-op.
func (d *MappedDevice) Close() error {
	d.Lock()
	defer d.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error

	if !d.readOnly {
		errs = append(errs, d.flush())
	}
	if err := d.data.Unmap(); err != nil {
		errs = append(errs, fmt.Errorf("munmap: %w", err))
	}
	errs = append(errs, d.file.Close())

	return errors.Join(errs...)
}

func (d *MappedDevice) flush() error {
	if d.readOnly {
		return nil
	}

	if err := d.data.Flush(); err != nil {
		return fmt.Errorf("msync: %w", err)
	}

	return d.file.Sync()
}
