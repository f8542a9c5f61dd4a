package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/gality369/simplefs/internal/blockstore"
	"github.com/gality369/simplefs/internal/configuration"
	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
	"github.com/gality369/simplefs/internal/ui"
)

type App struct {
	config  configuration.Config
	logs    *SlogManager
	osOps   *schema.OS
	unixOps *schema.Unix

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewApp(config configuration.Config, logs *SlogManager, stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		config:  config,
		logs:    logs,
		osOps:   &schema.OS{},
		unixOps: &schema.Unix{},
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// openStore opens the configured device as a [blockstore.Store].
func (app *App) openStore(opts blockstore.FileOptions) (*blockstore.Store, error) {
	if app.config.Device == "" {
		return nil, ErrNoDevice
	}

	if app.config.Mmap && app.config.VerifyWrites {
		return nil, fmt.Errorf("%w: %w (drop -verify or -mmap)", ErrUsage, ErrVerifyMapped)
	}

	var (
		dev blockstore.Device
		err error
	)

	if app.config.Mmap {
		dev, err = blockstore.MapFile(app.config.Device, opts, app.osOps, app.unixOps)
	} else {
		dev, err = blockstore.OpenFile(app.config.Device, opts, app.osOps, app.unixOps)
	}
	if err != nil {
		return nil, fmt.Errorf("(app) %w", err)
	}

	return blockstore.NewStore(dev, schema.SlotCount, blockstore.WithVerify(app.config.VerifyWrites)), nil
}

// openTable mounts the file table of the configured device. Writable
// tables hold the exclusive lock of the device until they are unmounted.
func (app *App) openTable(readOnly bool) (*filetable.Table, error) {
	store, err := app.openStore(blockstore.FileOptions{
		ReadOnly:  readOnly,
		Exclusive: !readOnly,
	})
	if err != nil {
		return nil, err
	}

	table, err := filetable.Mount(store)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("(app) %w", err), store.Close())
	}

	slog.Debug("Mounted file table.", "device", app.config.Device, "readOnly", readOnly)

	return table, nil
}

// withTable runs fn on the mounted file table and unmounts it afterwards.
func (app *App) withTable(readOnly bool, fn func(*filetable.Table) error) (err error) {
	table, err := app.openTable(readOnly)
	if err != nil {
		return err
	}

	defer func() {
		if uerr := table.Unmount(); uerr != nil {
			err = errors.Join(err, fmt.Errorf("(app) %w", uerr))
		}
	}()

	return fn(table)
}

// launchUI shows the inspector for a table until it is quit. Logs are
// routed into the inspector meanwhile and back to the terminal afterwards.
func (app *App) launchUI(ctx context.Context, cancel context.CancelFunc, table *filetable.Table) error {
	uiHandler := ui.NewHandler(ctx, cancel, table)

	terminal := newTintHandler(app.stderr, app.config.LogLevel)
	app.logs.AddHandler(handlerUI, newTintHandler(uiHandler.LogWriter, app.config.LogLevel))
	app.logs.RemoveHandler(handlerTerminal)

	defer func() {
		app.logs.RemoveHandler(handlerUI)
		app.logs.AddHandler(handlerTerminal, terminal)
	}()

	if err := uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}

// parseArgs parses the flags of a command and checks the count of the
// remaining arguments.
func parseArgs(fs *flag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) < minArgs || (maxArgs >= 0 && len(rest) > maxArgs) {
		fs.Usage()

		return nil, fmt.Errorf("%w: %s takes %s", ErrUsage, fs.Name(), argCount(minArgs, maxArgs))
	}

	return rest, nil
}

func argCount(minArgs, maxArgs int) string {
	switch {
	case maxArgs == 0:
		return "no arguments"
	case minArgs == maxArgs && minArgs == 1:
		return "exactly one argument"
	case minArgs == maxArgs:
		return fmt.Sprintf("exactly %d arguments", minArgs)
	case maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", minArgs, maxArgs)
	}
}
