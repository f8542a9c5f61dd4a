package schema

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMarshalBinary_Layout(t *testing.T) {
	t.Parallel()

	e := NewEntry(5, 2, "notes", KindRegular)
	require.NoError(t, e.SetContent([]byte("hello")))

	buf, err := e.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, RecordSize)

	assert.Equal(t, []byte("notes\x00\x00\x00"), buf[0:8])
	assert.Equal(t, byte(1), buf[8])
	assert.Equal(t, []byte{0, 0, 0}, buf[9:12], "padding must be zero")
	assert.Equal(t, uint32(unix.S_IFREG|DefaultFilePerms), binary.LittleEndian.Uint32(buf[12:16]))
	assert.Equal(t, byte(5), buf[16])
	assert.Equal(t, byte(2), buf[17])
	assert.Equal(t, []byte("hello"), buf[18:23])
	assert.Equal(t, byte(5), buf[50])
	assert.Equal(t, byte(0), buf[51])
}

func TestMarshalBinary_FreeEntryIsZero(t *testing.T) {
	t.Parallel()

	buf, err := Entry{}.MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, make([]byte, RecordSize), buf)
}

func TestMarshalBinary_Fail_NameTooLong(t *testing.T) {
	t.Parallel()

	e := NewEntry(1, 0, "ninechars", KindRegular)

	_, err := e.MarshalBinary()
	require.ErrorIs(t, err, ErrNameCapacity)
}

func TestMarshalBinary_Fail_SizeOverflow(t *testing.T) {
	t.Parallel()

	e := NewEntry(1, 0, "a", KindRegular)
	e.Size = DataCapacity + 1

	_, err := e.MarshalBinary()
	require.ErrorIs(t, err, ErrDataCapacity)
}

func TestUnmarshalBinary_RoundTrip(t *testing.T) {
	t.Parallel()

	in := NewEntry(31, 7, "exactly8", KindRegular)
	require.NoError(t, in.SetContent([]byte("0123456789abcdef0123456789abcdef")))

	buf, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Entry
	require.NoError(t, out.UnmarshalBinary(buf))

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalBinary_NameWithoutTerminator(t *testing.T) {
	t.Parallel()

	buf := make([]byte, RecordSize)
	copy(buf, "abcdefgh")
	buf[8] = 1

	var e Entry
	require.NoError(t, e.UnmarshalBinary(buf))

	assert.Equal(t, "abcdefgh", e.Name)
	assert.True(t, e.Busy)
}

func TestUnmarshalBinary_Fail_WrongSize(t *testing.T) {
	t.Parallel()

	var e Entry
	err := e.UnmarshalBinary(make([]byte, RecordSize-1))

	require.ErrorIs(t, err, ErrRecordSize)
}

func TestRootEntry(t *testing.T) {
	t.Parallel()

	root := RootEntry()

	assert.True(t, root.IsRoot())
	assert.Equal(t, RootName, root.Name)
	assert.Equal(t, KindDirectory, root.Kind())
	assert.Equal(t, uint32(DefaultDirPerms), root.Perms())
	assert.Empty(t, root.Content())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		mode uint32
		want Kind
	}{
		{"Directory", unix.S_IFDIR | 0o700, KindDirectory},
		{"Regular", unix.S_IFREG | 0o600, KindRegular},
		{"Symlink", unix.S_IFLNK | 0o777, KindSymlink},
		{"Socket", unix.S_IFSOCK, KindUnknown},
		{"Zero", 0, KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, KindOf(tc.mode))
		})
	}
}

func TestSetContent_Fail_TooLarge(t *testing.T) {
	t.Parallel()

	e := NewEntry(1, 0, "a", KindRegular)
	require.NoError(t, e.SetContent([]byte("keep")))

	err := e.SetContent(make([]byte, DataCapacity+1))

	require.ErrorIs(t, err, ErrDataCapacity)
	assert.Equal(t, []byte("keep"), e.Content())
}
