package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	ioutils "github.com/handiism/osm-tile-downloader/internal/io"
	"github.com/handiism/osm-tile-downloader/internal/logger"
	"github.com/handiism/osm-tile-downloader/internal/server"
)

func main() {
	var (
		dirFlag      = pflag.StringP("dir", "d", "", "tile tree to serve (<z>/<x>/<y>)")
		addrFlag     = pflag.StringP("addr", "a", "127.0.0.1:8080", "listen address")
		logLevelFlag = pflag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	pflag.Parse()

	if *dirFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: osm-tile-serve --dir <tiles> [--addr 127.0.0.1:8080]")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	exists, isDir, err := ioutils.IsDir(*dirFlag)
	if err != nil || !exists || !isDir {
		fmt.Fprintf(os.Stderr, "Error: %s is not a directory\n", *dirFlag)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Level:       *logLevelFlag,
		Development: term.IsTerminal(int(os.Stderr.Fd())),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(*dirFlag, log).Run(ctx, *addrFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
