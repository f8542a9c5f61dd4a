// Command simplefs formats, edits, inspects and mounts simplefs file tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gality369/simplefs/internal/configuration"
)

const (
	stackTraceBufMax = 1 << 24

	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

//nolint:gochecknoglobals
var (
	ExitCode = exitOK
	Version  string
)

func setupLogging(w io.Writer, level slog.Leveler) *SlogManager {
	logs := NewSlogManager()
	logs.AddHandler(handlerTerminal, newTintHandler(w, level))

	slog.SetDefault(slog.New(logs))

	return logs
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintf(w, "usage: simplefs [global flags] <command> [args]\n\nglobal flags:\n")
	global.PrintDefaults()

	fmt.Fprintf(w, "\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.help)
	}
}

// loadConfig reads the configuration file, if any, and applies the global
// flags that were set on top of it.
func loadConfig(global *flag.FlagSet, configFile, device, logLevel string, verify, mapped bool) (configuration.Config, error) {
	var files []string
	if configFile != "" {
		files = append(files, configFile)
	}

	config, err := configuration.NewHandler(&configuration.GodotenvProvider{}).Load(files...)
	if err != nil {
		return config, err
	}

	var lerr error
	global.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			config.Device = device
		case "verify":
			config.VerifyWrites = verify
		case "mmap":
			config.Mmap = mapped
		case "log-level":
			if err := config.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
				lerr = fmt.Errorf("%w: -log-level: %w", ErrUsage, err)
			}
		}
	})

	return config, lerr
}

func run(ctx context.Context, cancel context.CancelFunc, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("simplefs", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { usage(stderr, global) }

	configFile := global.String("config", "", "read settings from this env file")
	device := global.String("device", "", "block device or image file (overrides SIMPLEFS_DEVICE)")
	verify := global.Bool("verify", false, "read back and verify every written record")
	mapped := global.Bool("mmap", false, "access the device through a memory mapping")
	logLevel := global.String("log-level", "", "minimum log level: debug, info, warn or error")
	version := global.Bool("version", false, "print the version and exit")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	if *version {
		fmt.Fprintln(stdout, "simplefs", Version)

		return exitOK
	}

	config, err := loadConfig(global, *configFile, *device, *logLevel, *verify, *mapped)
	logs := setupLogging(stderr, config.LogLevel)

	if err != nil {
		slog.Error("Failed to load configuration.", "err", err)

		if errors.Is(err, ErrUsage) {
			return exitUsage
		}

		return exitFailure
	}

	if global.NArg() == 0 {
		global.Usage()

		return exitUsage
	}

	c, ok := lookupCommand(global.Arg(0))
	if !ok {
		slog.Error("Unknown command.", "command", global.Arg(0))
		global.Usage()

		return exitUsage
	}

	app := NewApp(config, logs, stdin, stdout, stderr)

	if err := c.run(app, ctx, cancel, global.Args()[1:]); err != nil {
		slog.Error("Command failed.", "command", c.name, "err", err)

		if errors.Is(err, ErrUsage) || errors.Is(err, ErrNoDevice) {
			return exitUsage
		}

		return exitFailure
	}

	return exitOK
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandlers(cancel)

	ExitCode = run(ctx, cancel, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
