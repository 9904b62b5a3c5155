package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/handiism/osm-tile-downloader/internal/config"
	"github.com/handiism/osm-tile-downloader/internal/download"
	"github.com/handiism/osm-tile-downloader/internal/logger"
	"github.com/handiism/osm-tile-downloader/internal/progress"
	"github.com/handiism/osm-tile-downloader/internal/slippy"
	"github.com/handiism/osm-tile-downloader/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := pflag.NewFlagSet("osm-tile-dl", pflag.ContinueOnError)
	config.BindFlags(fs)
	var (
		configFlag = fs.String("config", "", "path to a JSON, YAML or TOML config file")
		plainFlag  = fs.Bool("plain", false, "print progress lines instead of the interactive view")
		dryRunFlag = fs.Bool("dry-run", false, "print the tile count per zoom level and exit")
	)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "OSM Tile Downloader - bulk download tiles from a private tile server")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  osm-tile-dl -n <north> -e <east> -s <south> -w <west> -o <dir> -u <url> [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "The URL template must contain {x}, {y} and {z} and point at a local or")
		fmt.Fprintln(os.Stderr, "private host, e.g. http://localhost:8080/{z}/{x}/{y}.png")
		fmt.Fprintln(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	settings, err := config.Load(*configFlag, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		return 1
	}

	cfg, err := settings.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *dryRunFlag {
		printPlan(cfg.Tiles())
		return 0
	}

	interactive := !*plainFlag && term.IsTerminal(int(os.Stdout.Fd()))

	log, deferred, err := newLogger(settings, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []download.Option{
		download.WithLogger(log),
		download.WithClientOptions(settings.ToClientOptions()),
	}

	var ui *tui.Program
	if interactive {
		ui = tui.NewProgram()
		opts = append(opts, download.WithProgress(ui.Send))
	} else {
		opts = append(opts, download.WithProgress(printEvent))
	}

	manager, err := download.NewManager(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if interactive {
		subtitle := fmt.Sprintf("N %.4f  E %.4f  S %.4f  W %.4f | zoom 1-%d | %s",
			settings.North, settings.East, settings.South, settings.West, settings.Zoom, settings.Output)
		err = ui.Run(ctx, manager, subtitle)
		_ = log.Sync()
		_ = deferred.Flush(os.Stderr)
	} else {
		reporter := progress.NewReporter(manager, progress.Options{})
		reporter.Start()
		err = manager.Run(ctx)
		reporter.Stop()
	}

	return exitCode(ctx, err)
}

// exitCode reports how the run ended and returns the process status:
// 130 when cancelled by a signal or from the UI, 1 on any other error.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return 0
	case ctx.Err() != nil, errors.Is(err, tui.ErrCancelled), errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Download cancelled.")
		return 130
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

// newLogger writes to the log file when one is set, otherwise to stderr.
// In interactive mode the screen belongs to the UI, so stderr output is
// restricted to errors and held in the returned buffer until the UI exits.
func newLogger(s *config.Settings, interactive bool) (*zap.Logger, *logger.Buffer, error) {
	if !interactive {
		opts := logger.Options{Level: s.LogLevel, Development: term.IsTerminal(int(os.Stderr.Fd()))}
		if s.LogFile != "" {
			opts = logger.Options{Level: s.LogLevel, OutputPaths: []string{s.LogFile}}
		}
		log, err := logger.New(opts)
		return log, nil, err
	}

	stderrLog, deferred, err := logger.NewBuffered(logger.Options{
		Level:       "error",
		Development: term.IsTerminal(int(os.Stderr.Fd())),
	})
	if err != nil {
		return nil, nil, err
	}
	if s.LogFile == "" {
		return stderrLog, deferred, nil
	}

	fileLog, err := logger.New(logger.Options{Level: s.LogLevel, OutputPaths: []string{s.LogFile}})
	if err != nil {
		return nil, nil, err
	}
	return zap.New(zapcore.NewTee(fileLog.Core(), stderrLog.Core())), deferred, nil
}

// printEvent shows run-level events in plain mode. Per-tile failures reach
// stderr through the logger.
func printEvent(event download.ProgressEvent) {
	switch event.Level {
	case download.LevelInfo, download.LevelSuccess, download.LevelWarning:
		fmt.Println(event.Message)
	}
}

func printPlan(seq slippy.Sequence) {
	fmt.Println("zoom  columns        rows           tiles")
	for _, l := range seq.Levels() {
		fmt.Printf("%4d  %6d-%-6d  %6d-%-6d  %d\n", l.Zoom, l.MinX, l.MaxX, l.MinY, l.MaxY, l.Count())
	}
	fmt.Printf("total %d tiles\n", seq.Count())
}
