package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/frontend"
)

func (app *App) cmdMount(ctx context.Context, cancel context.CancelFunc, args []string) error {
	fs := app.newFlagSet("mount")
	uiEnabled := fs.Bool("ui", false, "show the inspector while mounted")
	debug := fs.Bool("debug", app.config.FuseDebug, "log every FUSE request")
	allowOther := fs.Bool("allow-other", app.config.AllowOther, "allow access by other users")
	fsName := fs.String("fsname", app.config.FSName, "filesystem name shown in the mount table")
	timeout := fs.Duration("timeout", time.Second, "kernel cache timeout for entries and attributes")
	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to file")
	memprofile := fs.String("memprofile", "", "write memory profile to this file")

	rest, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	mountpoint := rest[0]

	cpuProfiler := startProfiler(ctx, app.osOps, profileCPU, *cpuprofile)
	defer cpuProfiler.Stop() //nolint:errcheck

	allocProfiler := startProfiler(ctx, app.osOps, profileAllocs, *memprofile)
	defer allocProfiler.Stop() //nolint:errcheck

	return app.withTable(false, func(table *filetable.Table) error {
		server, err := frontend.Mount(table, mountpoint, frontend.Options{
			FSName:       *fsName,
			Debug:        *debug,
			AllowOther:   *allowOther,
			EntryTimeout: *timeout,
			AttrTimeout:  *timeout,
		})
		if err != nil {
			return err
		}

		slog.Info("Serving file table.", "device", app.config.Device, "mountpoint", mountpoint)

		serveCtx, stopServing := context.WithCancel(ctx)
		defer stopServing()

		go func() {
			<-serveCtx.Done()
			if err := server.Unmount(); err != nil {
				slog.Error("Failed to unmount.", "mountpoint", mountpoint, "err", err)
			}
		}()

		var wg sync.WaitGroup
		if *uiEnabled {
			wg.Add(1)
			go func() {
				defer wg.Done()

				if err := app.launchUI(serveCtx, cancel, table); err != nil && serveCtx.Err() == nil {
					slog.Error("UI failure: falling back to terminal.", "err", err)
				}
			}()
		}

		server.Wait()
		stopServing()
		wg.Wait()

		if ctx.Err() == nil {
			slog.Warn("File table was unmounted externally.", "mountpoint", mountpoint)
		}

		slog.Info("Stopped serving file table.", "mountpoint", mountpoint)

		return nil
	})
}
