// Package blockstore implements the leaf storage layer of the file table. It
// maps slot indexes to fixed-size records at fixed offsets of a [Device],
// reading and writing every record in a single positional transfer.
package blockstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gality369/simplefs/internal/schema"
	"github.com/zeebo/blake3"
)

// Device is a byte-addressable backing store, such as a block device or an
// image file.
type Device interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
	Close() error
}

// Store is the principal implementation of the record layer. It holds no
// state besides its [Device] and is safe for concurrent use as long as the
// [Device] is.
type Store struct {
	dev    Device
	slots  int
	verify bool
}

// Option configures a [Store] upon creation.
type Option func(*Store)

// WithVerify enables reading back and hashing every written record. The read
// goes through the same [Device], so over a [MappedDevice] it only sees the
// mapping and proves nothing about the backing file.
func WithVerify(enabled bool) Option {
	return func(s *Store) {
		s.verify = enabled
	}
}

// NewStore returns a pointer to a new [Store] of the given slot count.
func NewStore(dev Device, slots int, opts ...Option) *Store {
	s := &Store{
		dev:   dev,
		slots: slots,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Slots returns the number of records held by a [Store].
func (s *Store) Slots() int {
	return s.slots
}

// Offset returns the device offset of a slot.
func (s *Store) Offset(idx int) int64 {
	return int64(idx) * schema.RecordSize
}

// CheckCapacity returns an error if the [Device] is smaller than all slots.
func (s *Store) CheckCapacity() error {
	size, err := s.dev.Size()
	if err != nil {
		return fmt.Errorf("(blockstore) %w: failed to size device: %w", ErrIO, err)
	}

	if need := s.Offset(s.slots); size < need {
		return fmt.Errorf("(blockstore) %w: %w (%d < %d bytes)", ErrIO, ErrDeviceTooSmall, size, need)
	}

	return nil
}

// Read returns the [schema.Entry] stored at a slot.
func (s *Store) Read(idx int) (schema.Entry, error) {
	var e schema.Entry

	buf, err := s.readRecord(idx)
	if err != nil {
		return e, err
	}

	if err := e.UnmarshalBinary(buf); err != nil {
		return e, fmt.Errorf("(blockstore) failed to decode slot %d: %w", idx, err)
	}

	return e, nil
}

// Write overwrites the full record at a slot with a [schema.Entry].
func (s *Store) Write(idx int, e schema.Entry) error {
	if err := s.checkRange(idx); err != nil {
		return err
	}

	buf, err := e.MarshalBinary()
	if err != nil {
		return fmt.Errorf("(blockstore) failed to encode slot %d: %w", idx, err)
	}

	n, err := s.dev.WriteAt(buf, s.Offset(idx))
	if err != nil {
		return fmt.Errorf("(blockstore) %w: write slot %d: %w", ErrIO, idx, err)
	}
	if n != len(buf) {
		return fmt.Errorf("(blockstore) %w: write slot %d: %w (%d/%d bytes)", ErrIO, idx, ErrShortIO, n, len(buf))
	}

	if s.verify {
		if err := s.verifyRecord(idx, buf); err != nil {
			return err
		}
	}

	return nil
}

// Sync flushes the [Device] to stable storage.
func (s *Store) Sync() error {
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("(blockstore) %w: sync: %w", ErrIO, err)
	}

	return nil
}

// Close closes the [Device].
func (s *Store) Close() error {
	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("(blockstore) %w: close: %w", ErrIO, err)
	}

	return nil
}

func (s *Store) checkRange(idx int) error {
	if idx < 0 || idx >= s.slots {
		return fmt.Errorf("(blockstore) %w: %d (capacity %d)", ErrOutOfRange, idx, s.slots)
	}

	return nil
}

func (s *Store) readRecord(idx int) ([]byte, error) {
	if err := s.checkRange(idx); err != nil {
		return nil, err
	}

	buf := make([]byte, schema.RecordSize)

	n, err := s.dev.ReadAt(buf, s.Offset(idx))
	if n == len(buf) {
		// A ReaderAt may report io.EOF alongside a full read at the end.
		return buf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("(blockstore) %w: read slot %d: %w", ErrIO, idx, err)
	}

	return nil, fmt.Errorf("(blockstore) %w: read slot %d: %w (%d/%d bytes)", ErrIO, idx, ErrShortIO, n, len(buf))
}

func (s *Store) verifyRecord(idx int, written []byte) error {
	persisted, err := s.readRecord(idx)
	if err != nil {
		return fmt.Errorf("(blockstore) failed to read back slot %d: %w", idx, err)
	}

	wantHasher := blake3.New()
	gotHasher := blake3.New()

	if _, err := wantHasher.Write(written); err != nil {
		return fmt.Errorf("(blockstore) failed to hash slot %d: %w", idx, err)
	}
	if _, err := gotHasher.Write(persisted); err != nil {
		return fmt.Errorf("(blockstore) failed to hash slot %d: %w", idx, err)
	}

	want := wantHasher.Sum(nil)
	got := gotHasher.Sum(nil)

	if !bytes.Equal(want, got) {
		return fmt.Errorf("(blockstore) %w: %w: slot %d: %x (written) != %x (persisted)", ErrIO, ErrVerifyMismatch, idx, want, got)
	}

	return nil
}
