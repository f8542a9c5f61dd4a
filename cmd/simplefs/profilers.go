package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
)

type profileKind string

const (
	profileCPU    profileKind = "cpu"
	profileAllocs profileKind = "allocs"
)

type profileFileCreator interface {
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
}

// profiler records one runtime profile of a mount session into a file.
// A cpu profile covers the time from start until stop, an allocs profile is
// taken at stop. An empty path disables it.
//
//nolint:containedctx
type profiler struct {
	kind   profileKind
	path   string
	osOps  profileFileCreator
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func startProfiler(ctx context.Context, osOps profileFileCreator, kind profileKind, path string) *profiler {
	prof := &profiler{
		kind:  kind,
		path:  path,
		osOps: osOps,
		done:  make(chan struct{}),
	}
	prof.ctx, prof.cancel = context.WithCancel(ctx)

	if path == "" {
		close(prof.done)

		return prof
	}

	go prof.run()

	return prof
}

func (prof *profiler) run() {
	defer close(prof.done)

	switch prof.kind {
	case profileCPU:
		prof.err = prof.withFile(func(f *os.File) error {
			if err := pprof.StartCPUProfile(f); err != nil {
				return err
			}
			slog.Debug("Recording profile.", "kind", prof.kind, "path", prof.path)

			<-prof.ctx.Done()
			pprof.StopCPUProfile()

			return nil
		})

	case profileAllocs:
		<-prof.ctx.Done()
		prof.err = prof.withFile(func(f *os.File) error {
			return pprof.Lookup(string(profileAllocs)).WriteTo(f, 0)
		})

	default:
		prof.err = fmt.Errorf("(app) unknown profile kind %q", prof.kind)
	}

	if prof.err != nil {
		slog.Error("Failed to write profile.", "kind", prof.kind, "path", prof.path, "err", prof.err)

		return
	}

	slog.Info("Wrote profile.", "kind", prof.kind, "path", prof.path)
}

func (prof *profiler) withFile(write func(f *os.File) error) (err error) {
	f, err := prof.osOps.OpenFile(prof.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:mnd
	if err != nil {
		return fmt.Errorf("(app) failed to create %s profile: %w", prof.kind, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("(app) failed to record %s profile: %w", prof.kind, err)
	}

	return nil
}

// Stop ends the profile, waits for it to be written and returns any error
// that occurred along the way.
func (prof *profiler) Stop() error {
	prof.cancel()
	<-prof.done

	return prof.err
}
