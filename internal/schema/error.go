package schema

import "errors"

var (
	// ErrRecordSize is an error that occurs when a byte slice that is not
	// exactly [RecordSize] long is attempted to be decoded as an [Entry].
	ErrRecordSize = errors.New("record has wrong size")

	// ErrNameCapacity is an error that occurs when an [Entry] name does not
	// fit into the [NameCapacity] bytes reserved for it on disk.
	ErrNameCapacity = errors.New("name exceeds record capacity")

	// ErrDataCapacity is an error that occurs when an [Entry] claims a data
	// length beyond the [DataCapacity] bytes reserved for it on disk.
	ErrDataCapacity = errors.New("data length exceeds record capacity")
)
