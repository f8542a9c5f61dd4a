package filetable

import (
	"testing"

	"github.com/gality369/simplefs/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Success_Clean(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	mustCreate(t, table, "/d", schema.KindDirectory)
	mustCreate(t, table, "/d/f", schema.KindRegular)

	require.NoError(t, table.Check())
}

func TestCheck_Fail_Corruption(t *testing.T) {
	t.Parallel()

	dir := func(idx, parent uint8, name string) schema.Entry {
		return schema.NewEntry(idx, parent, name, schema.KindDirectory)
	}
	file := func(idx, parent uint8, name string) schema.Entry {
		return schema.NewEntry(idx, parent, name, schema.KindRegular)
	}

	testCases := []struct {
		name    string
		records map[int]schema.Entry
		want    string
	}{
		{"Fail_IndexMismatch", map[int]schema.Entry{1: file(7, 0, "a")}, "records index 7"},
		{"Fail_ParentFree", map[int]schema.Entry{1: file(1, 5, "a")}, "parent 5 is free"},
		{"Fail_ParentIsFile", map[int]schema.Entry{1: file(1, 0, "a"), 2: file(2, 1, "b")}, "parent 1 is not a directory"},
		{"Fail_ParentOutOfRange", map[int]schema.Entry{1: file(1, 200, "a")}, "parent 200 out of range"},
		{"Fail_SelfParent", map[int]schema.Entry{1: dir(1, 1, "a")}, "is its own parent"},
		{"Fail_DuplicateName", map[int]schema.Entry{1: file(1, 0, "a"), 2: dir(2, 0, "a")}, `name "a" already used by slot 1`},
		{"Fail_Cycle", map[int]schema.Entry{1: dir(1, 2, "x"), 2: dir(2, 1, "y")}, "does not reach the root"},
		{"Fail_EmptyName", map[int]schema.Entry{1: file(1, 0, "")}, "invalid file name"},
		{"Fail_Symlink", map[int]schema.Entry{1: schema.NewEntry(1, 0, "l", schema.KindSymlink)}, "unsupported kind symlink"},
		{"Fail_Oversized", map[int]schema.Entry{1: func() schema.Entry {
			e := file(1, 0, "a")
			e.Size = schema.DataCapacity + 1

			return e
		}()}, "data length 33"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			table, store, _ := newTable(t)

			for idx, e := range tc.records {
				// Oversized records cannot be encoded, so shape them in memory.
				if int(e.Size) > schema.DataCapacity {
					entries := make([]schema.Entry, schema.SlotCount)
					entries[0] = schema.RootEntry()
					entries[idx] = e
					problems := checkEntries(entries)
					require.NotEmpty(t, problems)
					assert.ErrorIs(t, problems[0], ErrCorrupt)
					assert.Contains(t, problems[0].Error(), tc.want)

					return
				}
				require.NoError(t, store.Write(idx, e))
			}

			err := table.Check()
			require.ErrorIs(t, err, ErrCorrupt)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCheck_Fail_NotFormatted(t *testing.T) {
	t.Parallel()

	table, store, _ := newTable(t)

	require.NoError(t, store.Write(0, schema.Entry{}))

	err := table.Check()
	require.ErrorIs(t, err, ErrNotFormatted)
}
