package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/handiism/osm-tile-downloader/internal/logger"
	"github.com/handiism/osm-tile-downloader/internal/mbtiles"
)

func main() {
	var (
		dirFlag  = pflag.StringP("dir", "d", "", "tile tree to pack (<z>/<x>/<y>)")
		outFlag  = pflag.StringP("out", "o", "tiles.mbtiles", "MBTiles file to write, replaced if present")
		nameFlag = pflag.String("name", "OSM Tiles", "tileset name stored in the metadata")
		descFlag = pflag.String("description", "", "tileset description stored in the metadata")
	)
	pflag.Parse()

	if *dirFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: osm-tile-pack --dir <tiles> [--out tiles.mbtiles] [--name <name>]")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := mbtiles.Pack(ctx, *dirFlag, *outFlag, mbtiles.Options{
		Name:        *nameFlag,
		Description: *descFlag,
		Logger:      log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Packed %d %s tiles (zoom %d-%d) into %s\n",
		summary.Tiles, summary.Format, summary.MinZoom, summary.MaxZoom, *outFlag)
}
