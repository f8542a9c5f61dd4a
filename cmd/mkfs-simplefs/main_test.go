package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gality369/simplefs/internal/blockstore"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	t.Parallel()

	img := filepath.Join(t.TempDir(), "image")

	var stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"-create", img}, &stderr))

	raw, err := os.ReadFile(img)
	require.NoError(t, err)
	require.Len(t, raw, schema.ImageSize)

	var root schema.Entry
	require.NoError(t, root.UnmarshalBinary(raw[:schema.RecordSize]))
	assert.True(t, root.IsRoot())
	assert.Equal(t, schema.RootName, root.Name)

	assert.Equal(t, make([]byte, schema.ImageSize-schema.RecordSize), raw[schema.RecordSize:], "all other slots are free")
}

func TestRun_Success_StaleImage(t *testing.T) {
	t.Parallel()

	img := filepath.Join(t.TempDir(), "image")

	stale := bytes.Repeat([]byte{0xff}, schema.ImageSize)
	require.NoError(t, os.WriteFile(img, stale, 0o600))

	var stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"-verify", img}, &stderr))

	dev, err := blockstore.OpenFile(img, blockstore.FileOptions{ReadOnly: true}, &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)

	table, err := filetable.Mount(blockstore.NewStore(dev, schema.SlotCount))
	require.NoError(t, err)
	defer table.Unmount()

	require.NoError(t, table.Check())

	stats, err := table.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Used)
}

func TestRun_Fail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	small := filepath.Join(dir, "small")
	require.NoError(t, os.WriteFile(small, make([]byte, schema.ImageSize-1), 0o600))

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{"Fail_NoArguments", nil, exitUsage},
		{"Fail_TwoArguments", []string{"a", "b"}, exitUsage},
		{"Fail_UnknownFlag", []string{"-nope", "a"}, exitUsage},
		{"Fail_Missing", []string{filepath.Join(dir, "missing")}, exitFailure},
		{"Fail_TooSmall", []string{small}, exitFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			assert.Equal(t, tc.want, run(tc.args, &stderr))
			assert.NotZero(t, stderr.Len(), "a diagnostic is printed")
		})
	}
}
