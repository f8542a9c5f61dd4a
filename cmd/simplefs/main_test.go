package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gality369/simplefs/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	code := run(t.Context(), func() {}, args, strings.NewReader(stdin), &stdout, &stderr)

	return code, stdout.String()
}

func newImage(t *testing.T) string {
	t.Helper()

	img := filepath.Join(t.TempDir(), "image")

	code, _ := runCLI(t, "", "-device", img, "format", "-create")
	require.Equal(t, exitOK, code)

	return img
}

func TestRun_Session(t *testing.T) {
	t.Parallel()

	img := newImage(t)

	info, err := os.Stat(img)
	require.NoError(t, err)
	assert.Equal(t, int64(schema.ImageSize), info.Size())

	cli := func(stdin string, args ...string) (int, string) {
		return runCLI(t, stdin, append([]string{"-device", img}, args...)...)
	}

	code, _ := cli("", "mkdir", "/docs")
	require.Equal(t, exitOK, code)

	code, _ = cli("", "touch", "/docs/a")
	require.Equal(t, exitOK, code)

	code, _ = cli("", "touch", "/docs/a")
	require.Equal(t, exitOK, code, "touching an existing file succeeds")

	code, _ = cli("", "touch", "/docs")
	require.Equal(t, exitFailure, code, "touching a directory fails")

	code, _ = cli("", "write", "/docs/a", "hello", "world")
	require.Equal(t, exitOK, code)

	code, out := cli("", "cat", "/docs/a")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "hello world", out)

	code, _ = cli("from stdin", "write", "/docs/a")
	require.Equal(t, exitOK, code)

	code, _ = cli(strings.Repeat("x", schema.DataCapacity+1), "write", "/docs/a")
	require.Equal(t, exitFailure, code)

	code, out = cli("", "cat", "/docs/a")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "from stdin", out)

	code, _ = cli("", "write", "-create", "/notes", "hi")
	require.Equal(t, exitOK, code)

	code, out = cli("", "ls")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "notes")
	assert.Contains(t, out, "rwxr-xr-x")

	code, out = cli("", "ls", "/docs")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "10 B")

	code, out = cli("", "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\ndocs/\n  a\nnotes\n", out)

	code, out = cli("", "stat", "/docs/a")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "/docs/a")
	assert.Contains(t, out, "file")
	assert.Contains(t, out, "10 of 32 bytes")

	code, out = cli("", "df")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "4 used, 28 free, 32 total")

	code, out = cli("", "check")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "clean\n", out)

	code, _ = cli("", "rm", "/docs")
	require.Equal(t, exitFailure, code, "non-empty directories cannot be removed")

	code, _ = cli("", "rm", "/docs/a")
	require.Equal(t, exitOK, code)

	code, _ = cli("", "rm", "/docs")
	require.Equal(t, exitOK, code)

	code, _ = cli("", "rm", "/")
	require.Equal(t, exitFailure, code)

	code, out = cli("", "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\nnotes\n", out)
}

func TestRun_Format_Resets(t *testing.T) {
	t.Parallel()

	img := newImage(t)

	code, _ := runCLI(t, "", "-device", img, "mkdir", "/d")
	require.Equal(t, exitOK, code)

	code, _ = runCLI(t, "", "-device", img, "-verify", "format")
	require.Equal(t, exitOK, code)

	code, out := runCLI(t, "", "-device", img, "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\n", out)
}

func TestRun_Config(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "image")
	env := filepath.Join(dir, "simplefs.env")
	require.NoError(t, os.WriteFile(env, []byte("SIMPLEFS_DEVICE="+img+"\nSIMPLEFS_VERIFY_WRITES=yes\n"), 0o600))

	code, _ := runCLI(t, "", "-config", env, "format", "-create")
	require.Equal(t, exitOK, code)

	code, out := runCLI(t, "", "-config", env, "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\n", out)

	code, _ = runCLI(t, "", "-config", filepath.Join(dir, "missing.env"), "tree")
	assert.Equal(t, exitFailure, code)
}

func TestRun_Mmap(t *testing.T) {
	t.Parallel()

	img := newImage(t)

	code, _ := runCLI(t, "", "-device", img, "-mmap", "-verify", "write", "-create", "/m", "mapped")
	require.Equal(t, exitUsage, code, "read-back verification cannot see through a mapping")

	code, _ = runCLI(t, "", "-device", img, "-mmap", "write", "-create", "/m", "mapped")
	require.Equal(t, exitOK, code)

	code, out := runCLI(t, "", "-device", img, "cat", "/m")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "mapped", out)

	code, out = runCLI(t, "", "-device", img, "-mmap", "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\nm\n", out)
}

func TestRun_DumpRestoreReport(t *testing.T) {
	t.Parallel()

	img := newImage(t)

	cli := func(stdin string, args ...string) (int, string) {
		return runCLI(t, stdin, append([]string{"-device", img}, args...)...)
	}

	code, _ := cli("", "mkdir", "/docs")
	require.Equal(t, exitOK, code)
	code, _ = cli("", "write", "-create", "/docs/a", "hi")
	require.Equal(t, exitOK, code)

	code, dump := cli("", "dump")
	require.Equal(t, exitOK, code)
	assert.Contains(t, dump, `path = "/docs/a"`)

	code, _ = cli("", "format")
	require.Equal(t, exitOK, code)

	code, _ = cli(dump, "restore", "-")
	require.Equal(t, exitOK, code)

	code, out := cli("", "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\ndocs/\n  a\n", out)

	code, out = cli("", "cat", "/docs/a")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "hi", out)

	code, _ = cli("bogus = 1\n", "restore", "-")
	require.Equal(t, exitFailure, code)

	png := filepath.Join(t.TempDir(), "slots.png")
	code, _ = cli("", "report", png)
	require.Equal(t, exitOK, code)

	raw, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}

func TestRun_Write_TooLarge_CreatesNothing(t *testing.T) {
	t.Parallel()

	img := newImage(t)
	payload := strings.Repeat("x", schema.DataCapacity+1)

	code, _ := runCLI(t, "", "-device", img, "write", "-create", "/big", payload)
	require.Equal(t, exitFailure, code)

	code, _ = runCLI(t, payload, "-device", img, "write", "-create", "/big")
	require.Equal(t, exitFailure, code)

	code, out := runCLI(t, "", "-device", img, "tree")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/\n", out)
}

func TestRun_Check_Corrupt(t *testing.T) {
	t.Parallel()

	img := newImage(t)

	raw, err := schema.NewEntry(1, 5, "orphan", schema.KindRegular).MarshalBinary()
	require.NoError(t, err)

	f, err := os.OpenFile(img, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt(raw, schema.RecordSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	code, out := runCLI(t, "", "-device", img, "check")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "parent 5 is free")
}

func TestRun_Fail(t *testing.T) {
	t.Parallel()

	img := newImage(t)
	missing := filepath.Join(t.TempDir(), "missing")

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{"Fail_NoCommand", []string{"-device", img}, exitUsage},
		{"Fail_UnknownCommand", []string{"-device", img, "frobnicate"}, exitUsage},
		{"Fail_UnknownFlag", []string{"-nope"}, exitUsage},
		{"Fail_MissingArgument", []string{"-device", img, "cat"}, exitUsage},
		{"Fail_ExtraArgument", []string{"-device", img, "tree", "/x"}, exitUsage},
		{"Fail_NoDevice", []string{"tree"}, exitUsage},
		{"Fail_BadLogLevel", []string{"-log-level", "loud", "-device", img, "tree"}, exitUsage},
		{"Fail_MissingDevice", []string{"-device", missing, "tree"}, exitFailure},
		{"Fail_FormatWithoutCreate", []string{"-device", missing, "format"}, exitFailure},
		{"Fail_NotFound", []string{"-device", img, "cat", "/nope"}, exitFailure},
		{"Fail_CatDirectory", []string{"-device", img, "cat", "/"}, exitFailure},
		{"Fail_NameTooLong", []string{"-device", img, "mkdir", "/ninechars"}, exitFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, _ := runCLI(t, "", tc.args...)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	code, out := runCLI(t, "", "-version")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "simplefs"))
}
