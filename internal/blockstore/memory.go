package blockstore

import (
	"io"
	"sync"
)

// MemoryDevice is a fixed-size [Device] held in memory. Each transfer is
// performed under a lock, so records are never observed half-written.
type MemoryDevice struct {
	sync.RWMutex
	buf    []byte
	closed bool
}

// NewMemoryDevice returns a pointer to a new zeroed [MemoryDevice].
func NewMemoryDevice(size int) *MemoryDevice {
	return &MemoryDevice{
		buf: make([]byte, size),
	}
}

// ReadAt copies device contents at offset off into p.
func (d *MemoryDevice) ReadAt(p []byte, off int64) (int, error) {
	d.RLock()
	defer d.RUnlock()

	if d.closed {
		return 0, ErrDeviceClosed
	}
	if off < 0 || off >= int64(len(d.buf)) {
		return 0, io.EOF
	}

	n := copy(p, d.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt copies p into the device at offset off. Writes reaching past the
// end of the device are rejected without modifying it.
func (d *MemoryDevice) WriteAt(p []byte, off int64) (int, error) {
	d.Lock()
	defer d.Unlock()

	if d.closed {
		return 0, ErrDeviceClosed
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.buf)) {
		return 0, io.ErrShortWrite
	}

	return copy(d.buf[off:], p), nil
}

// Size returns the fixed size of the device.
func (d *MemoryDevice) Size() (int64, error) {
	d.RLock()
	defer d.RUnlock()

	return int64(len(d.buf)), nil
}

// Sync is a no-op for memory.
func (d *MemoryDevice) Sync() error {
	d.RLock()
	defer d.RUnlock()

	if d.closed {
		return ErrDeviceClosed
	}

	return nil
}

// Close marks the device closed. The contents remain readable by [Bytes].
func (d *MemoryDevice) Close() error {
	d.Lock()
	defer d.Unlock()

	d.closed = true

	return nil
}

// Bytes returns a copy of the device contents.
func (d *MemoryDevice) Bytes() []byte {
	d.RLock()
	defer d.RUnlock()

	out := make([]byte, len(d.buf))
	copy(out, d.buf)

	return out
}
