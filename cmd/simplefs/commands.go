package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/gality369/simplefs/internal/blockstore"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
)

type commandFunc func(app *App, ctx context.Context, cancel context.CancelFunc, args []string) error

type command struct {
	name string
	help string
	run  commandFunc
}

//nolint:gochecknoglobals
var commands = []command{
	{"format", "reset the device to an empty file table", (*App).cmdFormat},
	{"ls", "list the children of a directory", (*App).cmdList},
	{"cat", "print the data of a regular file", (*App).cmdCat},
	{"write", "replace the data of a regular file (stdin without data)", (*App).cmdWrite},
	{"mkdir", "create a directory", (*App).cmdMkdir},
	{"touch", "create an empty regular file unless it exists", (*App).cmdTouch},
	{"rm", "delete a regular file or an empty directory", (*App).cmdRemove},
	{"tree", "print the whole tree", (*App).cmdTree},
	{"stat", "print the record of an entry", (*App).cmdStat},
	{"df", "print slot and data usage", (*App).cmdDf},
	{"check", "verify the structure of the file table", (*App).cmdCheck},
	{"dump", "print the tree as a TOML document", (*App).cmdDump},
	{"restore", "format and recreate a tree from a TOML dump (- for stdin)", (*App).cmdRestore},
	{"report", "draw the slot map as a PNG image (- for stdout)", (*App).cmdReport},
	{"mount", "serve the file table over FUSE until interrupted", (*App).cmdMount},
	{"inspect", "show the file table in a terminal user interface", (*App).cmdInspect},
}

// commandArgs holds the argument synopsis of every command.
//
//nolint:gochecknoglobals
var commandArgs = map[string]string{
	"format":  "[-create]",
	"ls":      "[path]",
	"cat":     "<path>",
	"write":   "[-create] <path> [data...]",
	"mkdir":   "<path>",
	"touch":   "<path>",
	"rm":      "<path>",
	"stat":    "<path>",
	"mount":   "[flags] <mountpoint>",
	"restore": "<file>",
	"report":  "<file>",
	"dump":    "",
	"tree":    "",
	"df":      "",
	"check":   "",
	"inspect": "",
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}

	return command{}, false
}

func (app *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.stderr)

	fs.Usage = func() {
		fmt.Fprintf(app.stderr, "usage: simplefs [global flags] %s %s\n", name, commandArgs[name])
		fs.PrintDefaults()
	}

	return fs
}

func (app *App) cmdFormat(_ context.Context, _ context.CancelFunc, args []string) error {
	fs := app.newFlagSet("format")
	create := fs.Bool("create", false, "create the image file if it does not exist")

	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	store, err := app.openStore(blockstore.FileOptions{
		Create:    *create,
		MinSize:   schema.ImageSize,
		Exclusive: true,
	})
	if err != nil {
		return err
	}

	if err := filetable.Format(store); err != nil {
		return errors.Join(fmt.Errorf("(app) %w", err), store.Close())
	}

	if err := errors.Join(store.Sync(), store.Close()); err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	slog.Info("Formatted device.", "device", app.config.Device, "slots", schema.SlotCount)

	return nil
}

func (app *App) cmdList(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("ls"), args, 0, 1)
	if err != nil {
		return err
	}

	path := "/"
	if len(rest) == 1 {
		path = rest[0]
	}

	return app.withTable(true, func(table *filetable.Table) error {
		h, _, err := table.ResolvePath(path)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0) //nolint:mnd
		for c, err := range table.Children(h) {
			if err != nil {
				return err
			}

			e, err := table.Stat(c.Handle)
			if err != nil {
				return err
			}

			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", kindLetter(c.Kind), permString(e.Perms()), sizeString(e), c.Handle, displayName(e))
		}

		return tw.Flush()
	})
}

func (app *App) cmdCat(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("cat"), args, 1, 1)
	if err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		data, err := table.ReadPath(rest[0])
		if err != nil {
			return err
		}

		_, err = app.stdout.Write(data)

		return err
	})
}

func (app *App) cmdWrite(_ context.Context, _ context.CancelFunc, args []string) error {
	fs := app.newFlagSet("write")
	create := fs.Bool("create", false, "create the file if it does not exist")

	rest, err := parseArgs(fs, args, 1, -1)
	if err != nil {
		return err
	}

	var data []byte
	if len(rest) > 1 {
		data = []byte(strings.Join(rest[1:], " "))
	} else {
		// One byte over capacity is enough to be rejected as too large.
		data, err = io.ReadAll(io.LimitReader(app.stdin, schema.DataCapacity+1))
		if err != nil {
			return fmt.Errorf("(app) failed to read data: %w", err)
		}
	}

	if len(data) > schema.DataCapacity {
		return fmt.Errorf("(app) %w: %d bytes exceed %d", filetable.ErrTooLarge, len(data), schema.DataCapacity)
	}

	return app.withTable(false, func(table *filetable.Table) error {
		if *create {
			if err := touch(table, rest[0]); err != nil {
				return err
			}
		}

		return table.WritePath(rest[0], data)
	})
}

func (app *App) cmdMkdir(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("mkdir"), args, 1, 1)
	if err != nil {
		return err
	}

	return app.withTable(false, func(table *filetable.Table) error {
		_, err := table.CreatePath(rest[0], schema.KindDirectory)

		return err
	})
}

func (app *App) cmdTouch(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("touch"), args, 1, 1)
	if err != nil {
		return err
	}

	return app.withTable(false, func(table *filetable.Table) error {
		return touch(table, rest[0])
	})
}

func (app *App) cmdRemove(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("rm"), args, 1, 1)
	if err != nil {
		return err
	}

	return app.withTable(false, func(table *filetable.Table) error {
		return table.DeletePath(rest[0])
	})
}

func (app *App) cmdTree(_ context.Context, _ context.CancelFunc, args []string) error {
	if _, err := parseArgs(app.newFlagSet("tree"), args, 0, 0); err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		return table.Walk(func(path string, _ filetable.Handle, e schema.Entry) error {
			if path == "/" {
				_, err := fmt.Fprintln(app.stdout, "/")

				return err
			}

			indent := strings.Repeat("  ", strings.Count(path, "/")-1)
			_, err := fmt.Fprintf(app.stdout, "%s%s\n", indent, displayName(e))

			return err
		})
	})
}

func (app *App) cmdStat(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("stat"), args, 1, 1)
	if err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		h, e, err := table.ResolvePath(rest[0])
		if err != nil {
			return err
		}

		path, err := table.Path(h)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(app.stdout, 0, 4, 1, ' ', 0) //nolint:mnd
		fmt.Fprintf(tw, "Path:\t%s\n", path)
		fmt.Fprintf(tw, "Name:\t%s\n", e.Name)
		fmt.Fprintf(tw, "Kind:\t%s\n", e.Kind())
		fmt.Fprintf(tw, "Mode:\t%s (%#o)\n", permString(e.Perms()), e.Mode)
		fmt.Fprintf(tw, "Slot:\t%d\n", e.Index)
		fmt.Fprintf(tw, "Parent:\t%d\n", e.Parent)
		if e.IsRegular() {
			fmt.Fprintf(tw, "Size:\t%d of %d bytes\n", e.Size, schema.DataCapacity)
		}

		return tw.Flush()
	})
}

func (app *App) cmdDf(_ context.Context, _ context.CancelFunc, args []string) error {
	if _, err := parseArgs(app.newFlagSet("df"), args, 0, 0); err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		stats, err := table.Stats()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(app.stdout, 0, 4, 1, ' ', 0) //nolint:mnd
		fmt.Fprintf(tw, "Slots:\t%d used, %d free, %d total (%.0f%%)\n",
			stats.Used, stats.Free, stats.Capacity, 100*float64(stats.Used)/float64(stats.Capacity))
		fmt.Fprintf(tw, "Entries:\t%d directories, %d files\n", stats.Directories, stats.Files)
		fmt.Fprintf(tw, "Data:\t%s in files, %s image\n",
			humanize.Bytes(uint64(stats.DataBytes)), //nolint:gosec
			humanize.Bytes(schema.ImageSize))

		return tw.Flush()
	})
}

func (app *App) cmdCheck(_ context.Context, _ context.CancelFunc, args []string) error {
	if _, err := parseArgs(app.newFlagSet("check"), args, 0, 0); err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		err := table.Check()
		if err == nil {
			_, err := fmt.Fprintln(app.stdout, "clean")

			return err
		}

		problems := []error{err}
		if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint
			problems = joined.Unwrap()
		}

		for _, p := range problems {
			fmt.Fprintln(app.stdout, p)
		}

		return fmt.Errorf("%w: %d problem(s)", ErrCheckFailed, len(problems))
	})
}

func (app *App) cmdInspect(ctx context.Context, cancel context.CancelFunc, args []string) error {
	if _, err := parseArgs(app.newFlagSet("inspect"), args, 0, 0); err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		return app.launchUI(ctx, cancel, table)
	})
}

// touch creates an empty regular file unless a regular file of that path
// already exists.
func touch(table *filetable.Table, path string) error {
	_, err := table.CreatePath(path, schema.KindRegular)
	if !errors.Is(err, filetable.ErrAlreadyExists) {
		return err
	}

	_, e, rerr := table.ResolvePath(path)
	if rerr != nil {
		return rerr
	}

	if !e.IsRegular() {
		return err
	}

	return nil
}

func kindLetter(k schema.Kind) string {
	switch k {
	case schema.KindDirectory:
		return "d"
	case schema.KindRegular:
		return "-"
	case schema.KindSymlink:
		return "l"
	case schema.KindUnknown:
	}

	return "?"
}

func permString(perms uint32) string {
	const rwx = "rwxrwxrwx"

	var s strings.Builder
	for i := range len(rwx) {
		if perms&(1<<(8-i)) != 0 {
			s.WriteByte(rwx[i])
		} else {
			s.WriteByte('-')
		}
	}

	return s.String()
}

func sizeString(e schema.Entry) string {
	if e.IsDir() {
		return "-"
	}

	return humanize.Bytes(uint64(e.Size))
}

func displayName(e schema.Entry) string {
	if e.IsDir() && !e.IsRoot() {
		return e.Name + "/"
	}

	return e.Name
}
