package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/report"
)

func (app *App) cmdDump(_ context.Context, _ context.CancelFunc, args []string) error {
	if _, err := parseArgs(app.newFlagSet("dump"), args, 0, 0); err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) error {
		return report.WriteDump(table, app.stdout)
	})
}

func (app *App) cmdRestore(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("restore"), args, 1, 1)
	if err != nil {
		return err
	}

	d, err := app.readDump(rest[0])
	if err != nil {
		return err
	}

	return app.withTable(false, func(table *filetable.Table) error {
		if err := report.Restore(table, d); err != nil {
			return err
		}

		slog.Info("Restored file table.", "device", app.config.Device, "entries", len(d.Entries))

		return nil
	})
}

func (app *App) cmdReport(_ context.Context, _ context.CancelFunc, args []string) error {
	rest, err := parseArgs(app.newFlagSet("report"), args, 1, 1)
	if err != nil {
		return err
	}

	return app.withTable(true, func(table *filetable.Table) (err error) {
		if rest[0] == "-" {
			return report.WriteSlotMap(table, app.stdout)
		}

		f, err := app.osOps.OpenFile(rest[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:mnd
		if err != nil {
			return fmt.Errorf("(app) failed to create report: %w", err)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()

		if err := report.WriteSlotMap(table, f); err != nil {
			return err
		}

		slog.Info("Wrote slot map.", "file", rest[0])

		return nil
	})
}

// readDump decodes a dump from a file, or from stdin for "-".
func (app *App) readDump(name string) (report.Dump, error) {
	if name == "-" {
		return report.ReadDump(app.stdin)
	}

	f, err := app.osOps.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return report.Dump{}, fmt.Errorf("(app) failed to open dump: %w", err)
	}
	defer f.Close()

	return report.ReadDump(f)
}
