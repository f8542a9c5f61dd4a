package blockstore

import "errors"

var (
	// ErrIO is an error that occurs when the backing [Device] fails a read,
	// a write or a sync. The underlying cause is wrapped alongside it.
	ErrIO = errors.New("device i/o failure")

	// ErrOutOfRange is an error that occurs when a slot index beyond the
	// capacity of a [Store] is accessed.
	ErrOutOfRange = errors.New("slot index out of range")

	// ErrShortIO is an error that occurs when a [Device] transfers fewer
	// bytes than a full record without reporting a cause.
	ErrShortIO = errors.New("short transfer")

	// ErrVerifyMismatch is an error that occurs when a record read back after
	// a write does not hash to the same digest as the record written.
	ErrVerifyMismatch = errors.New("written record does not verify")

	// ErrDeviceTooSmall is an error that occurs when a [Device] cannot hold
	// all slots of a [Store].
	ErrDeviceTooSmall = errors.New("device too small for file table")

	// ErrDeviceLocked is an error that occurs when another process already
	// holds the exclusive lock of a [FileDevice].
	ErrDeviceLocked = errors.New("device is in use by another process")

	// ErrDeviceReadOnly is an error that occurs when a [Device] opened
	// without write access is written to.
	ErrDeviceReadOnly = errors.New("device is read-only")

	// ErrDeviceClosed is an error that occurs when a closed [Device] is used.
	ErrDeviceClosed = errors.New("device is closed")
)
