package filetable

import (
	"testing"

	"github.com/gality369/simplefs/internal/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, table *Table, h Handle) []Child {
	t.Helper()

	var out []Child
	for c, err := range table.Children(h) {
		require.NoError(t, err)
		out = append(out, c)
	}

	return out
}

func TestChildren_Success_SlotOrder(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	z := mustCreate(t, table, "/z", schema.KindRegular)
	dir := mustCreate(t, table, "/dir", schema.KindDirectory)
	a := mustCreate(t, table, "/a", schema.KindRegular)
	mustCreate(t, table, "/dir/inner", schema.KindRegular)

	want := []Child{
		{Name: "z", Kind: schema.KindRegular, Handle: z},
		{Name: "dir", Kind: schema.KindDirectory, Handle: dir},
		{Name: "a", Kind: schema.KindRegular, Handle: a},
	}

	if diff := cmp.Diff(want, collect(t, table, Root)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	listed, err := table.ListChildren(Root)
	require.NoError(t, err)
	if diff := cmp.Diff(want, listed); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}

	// Ranging again restarts the scan.
	assert.Equal(t, want, collect(t, table, Root))
}

func TestChildren_Success_EmptyDirectory(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	assert.Empty(t, collect(t, table, Root))

	dir := mustCreate(t, table, "/dir", schema.KindDirectory)
	assert.Empty(t, collect(t, table, dir))
}

func TestChildren_Success_EarlyBreak(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	for _, n := range []string{"/a", "/b", "/c"} {
		mustCreate(t, table, n, schema.KindRegular)
	}

	var names []string
	for c, err := range table.Children(Root) {
		require.NoError(t, err)
		names = append(names, c.Name)
		if len(names) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"a", "b"}, names)
}

func TestChildren_Success_MutateWhileIterating(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	for _, n := range []string{"/a", "/b", "/c"} {
		mustCreate(t, table, n, schema.KindRegular)
	}

	var names []string
	for c, err := range table.Children(Root) {
		require.NoError(t, err)
		names = append(names, c.Name)
		require.NoError(t, table.Delete(c.Handle))
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Empty(t, collect(t, table, Root))
}

func TestChildren_Fail(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	file := mustCreate(t, table, "/file", schema.KindRegular)

	testCases := []struct {
		name    string
		h       Handle
		wantErr error
	}{
		{"Fail_NotADirectory", file, ErrNotADirectory},
		{"Fail_Free", Handle(9), ErrNotFound},
		{"Fail_OutOfRange", Handle(schema.SlotCount), ErrOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			for _, err := range table.Children(tc.h) {
				calls++
				require.ErrorIs(t, err, tc.wantErr)
			}
			assert.Equal(t, 1, calls)

			_, err := table.ListChildren(tc.h)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestWalk(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	mustCreate(t, table, "/b", schema.KindDirectory)
	mustCreate(t, table, "/a", schema.KindRegular)
	mustCreate(t, table, "/b/c", schema.KindDirectory)
	mustCreate(t, table, "/b/c/d", schema.KindRegular)
	mustCreate(t, table, "/b/e", schema.KindRegular)

	var visited []string
	require.NoError(t, table.Walk(func(p string, _ Handle, _ schema.Entry) error {
		visited = append(visited, p)

		return nil
	}))

	assert.Equal(t, []string{"/", "/b", "/b/c", "/b/c/d", "/b/e", "/a"}, visited)

	visited = nil
	require.NoError(t, table.Walk(func(p string, _ Handle, e schema.Entry) error {
		visited = append(visited, p)
		if e.Name == "c" {
			return ErrSkipDir
		}

		return nil
	}))

	assert.Equal(t, []string{"/", "/b", "/b/c", "/b/e", "/a"}, visited)
}

func TestWalk_Fail_Propagates(t *testing.T) {
	t.Parallel()

	table, _, _ := newTable(t)

	mustCreate(t, table, "/a", schema.KindRegular)

	err := table.Walk(func(p string, _ Handle, _ schema.Entry) error {
		if p == "/a" {
			return ErrCorrupt
		}

		return nil
	})

	require.ErrorIs(t, err, ErrCorrupt)
}

func TestWalk_SkipsDetachedCycle(t *testing.T) {
	t.Parallel()

	table, store, _ := newTable(t)

	require.NoError(t, store.Write(1, schema.NewEntry(1, 2, "x", schema.KindDirectory)))
	require.NoError(t, store.Write(2, schema.NewEntry(2, 1, "y", schema.KindDirectory)))

	var visited []string
	require.NoError(t, table.Walk(func(p string, _ Handle, _ schema.Entry) error {
		visited = append(visited, p)

		return nil
	}))

	assert.Equal(t, []string{"/"}, visited)
}
