package schema

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Record field offsets, following the natural layout of the C record with a
// 4-byte mode. The explicit data length occupies what used to be tail padding.
const (
	offName   = 0
	offBusy   = offName + NameCapacity
	offMode   = 12
	offIndex  = offMode + 4
	offParent = offIndex + 1
	offData   = offParent + 1
	offSize   = offData + DataCapacity
)

// MarshalBinary encodes an [Entry] into exactly [RecordSize] bytes. All
// padding bytes are zero, and a free [Entry] is still encoded field by field.
func (e Entry) MarshalBinary() ([]byte, error) {
	if len(e.Name) > NameCapacity {
		return nil, fmt.Errorf("%w: %q", ErrNameCapacity, e.Name)
	}
	if int(e.Size) > DataCapacity {
		return nil, fmt.Errorf("%w: %d", ErrDataCapacity, e.Size)
	}

	buf := make([]byte, RecordSize)

	copy(buf[offName:offName+NameCapacity], e.Name)
	if e.Busy {
		buf[offBusy] = 1
	}
	binary.LittleEndian.PutUint32(buf[offMode:], e.Mode)
	buf[offIndex] = e.Index
	buf[offParent] = e.Parent
	copy(buf[offData:offData+DataCapacity], e.Data[:])
	buf[offSize] = e.Size

	return buf, nil
}

// UnmarshalBinary decodes an [Entry] from exactly [RecordSize] bytes. The
// name ends at the first NUL byte or at [NameCapacity], whichever is first.
func (e *Entry) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: %d != %d", ErrRecordSize, len(data), RecordSize)
	}

	name := data[offName : offName+NameCapacity]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	e.Name = string(name)
	e.Busy = data[offBusy] != 0
	e.Mode = binary.LittleEndian.Uint32(data[offMode:])
	e.Index = data[offIndex]
	e.Parent = data[offParent]
	copy(e.Data[:], data[offData:offData+DataCapacity])
	e.Size = data[offSize]

	return nil
}
