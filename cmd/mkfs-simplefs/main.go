// Command mkfs-simplefs formats a block device or image file with an empty
// simplefs file table.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gality369/simplefs/internal/blockstore"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
	"github.com/lmittmann/tint"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

//nolint:gochecknoglobals
var ExitCode = exitOK

func format(path string, create, verify bool) (err error) {
	dev, err := blockstore.OpenFile(path, blockstore.FileOptions{
		Create:    create,
		MinSize:   schema.ImageSize,
		Exclusive: true,
	}, &schema.OS{}, &schema.Unix{})
	if err != nil {
		return err
	}

	store := blockstore.NewStore(dev, schema.SlotCount, blockstore.WithVerify(verify))
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	if err := filetable.Format(store); err != nil {
		return err
	}

	return store.Sync()
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}),
	)
}

func run(args []string, stderr io.Writer) int {
	logger := newLogger(stderr)

	fs := flag.NewFlagSet("mkfs-simplefs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: mkfs-simplefs [-create] [-verify] <device>\n")
		fs.PrintDefaults()
	}

	create := fs.Bool("create", false, "create the image file if it does not exist")
	verify := fs.Bool("verify", false, "read back and verify every written record")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if fs.NArg() != 1 {
		fs.Usage()

		return exitUsage
	}

	if err := format(fs.Arg(0), *create, *verify); err != nil {
		logger.Error("Failed to format device.", "device", fs.Arg(0), "err", err)

		return exitFailure
	}

	logger.Info("Formatted device.", "device", fs.Arg(0), "slots", schema.SlotCount, "bytes", schema.ImageSize)

	return exitOK
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	slog.SetDefault(newLogger(os.Stderr))

	ExitCode = run(os.Args[1:], os.Stderr)
}
