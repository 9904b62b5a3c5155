package mbtiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	ioutils "github.com/handiism/osm-tile-downloader/internal/io"
	"github.com/handiism/osm-tile-downloader/internal/model"
	"github.com/handiism/osm-tile-downloader/internal/slippy"
)

// ErrNoTiles is returned by Pack when the directory holds no tiles.
var ErrNoTiles = errors.New("no tiles found")

const schema = `
	CREATE TABLE tiles (
		zoom_level INTEGER,
		tile_column INTEGER,
		tile_row INTEGER,
		tile_data BLOB,
		PRIMARY KEY (zoom_level, tile_column, tile_row)
	);
	CREATE TABLE metadata (
		name TEXT,
		value TEXT,
		PRIMARY KEY (name)
	);
`

// Options configures Pack.
type Options struct {
	// Name is stored in the metadata table.
	// Default: "OSM Tiles"
	Name string

	// Description is stored in the metadata table when set.
	Description string

	// Logger receives per-file warnings. Default: discard.
	Logger *zap.Logger
}

// Summary describes what Pack wrote.
type Summary struct {
	Tiles   int
	MinZoom uint8
	MaxZoom uint8
	Format  ioutils.Format

	// Bounds is the extent of the tiles at MaxZoom.
	Bounds s2.Rect
}

// Pack writes every tile below dir into a new MBTiles file at dbPath,
// replacing any existing file. Rows use the TMS scheme, so tile_row is
// flipped relative to the y of the directory tree.
//
// Entries that are not <z>/<x>/<y> with numeric names are ignored, which
// includes temporary files left by an interrupted download.
func Pack(ctx context.Context, dir, dbPath string, opts Options) (Summary, error) {
	if opts.Name == "" {
		opts.Name = "OSM Tiles"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tiles, err := walk(dir)
	if err != nil {
		return Summary{}, err
	}
	if len(tiles) == 0 {
		return Summary{}, fmt.Errorf("%w in %s", ErrNoTiles, dir)
	}

	if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Summary{}, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return Summary{}, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return Summary{}, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return Summary{}, err
	}
	defer stmt.Close()

	format := ioutils.FormatUnknown
	inserted := make([]model.Tile, 0, len(tiles))
	for _, tile := range tiles {
		data, err := os.ReadFile(tile.Path(dir))
		if err != nil {
			log.Warn("skipping unreadable tile", zap.Stringer("tile", tile), zap.Error(err))
			continue
		}

		if format == ioutils.FormatUnknown {
			format, _, _ = ioutils.DetectFormat(data)
		}

		if _, err := stmt.ExecContext(ctx, tile.Z, tile.X, tmsRow(tile), data); err != nil {
			return Summary{}, fmt.Errorf("insert tile %s: %w", tile, err)
		}
		inserted = append(inserted, tile)
	}
	if len(inserted) == 0 {
		return Summary{}, fmt.Errorf("%w readable in %s", ErrNoTiles, dir)
	}

	summary := summarize(inserted)
	summary.Format = format

	if err := writeMetadata(ctx, tx, opts, summary); err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, err
	}

	log.Info("packed tiles",
		zap.String("file", dbPath),
		zap.Int("tiles", summary.Tiles),
		zap.Uint8("min_zoom", summary.MinZoom),
		zap.Uint8("max_zoom", summary.MaxZoom),
		zap.String("format", string(summary.Format)),
	)
	return summary, nil
}

func writeMetadata(ctx context.Context, tx *sql.Tx, opts Options, s Summary) error {
	format := string(s.Format)
	if format == "" {
		format = "png"
	}

	lo, hi := s.Bounds.Lo(), s.Bounds.Hi()
	center := s.Bounds.Center()

	metadata := [][2]string{
		{"name", opts.Name},
		{"type", "baselayer"},
		{"version", "1.1"},
		{"format", format},
		{"minzoom", strconv.Itoa(int(s.MinZoom))},
		{"maxzoom", strconv.Itoa(int(s.MaxZoom))},
		{"bounds", fmt.Sprintf("%f,%f,%f,%f", lo.Lng.Degrees(), lo.Lat.Degrees(), hi.Lng.Degrees(), hi.Lat.Degrees())},
		{"center", fmt.Sprintf("%f,%f,%d", center.Lng.Degrees(), center.Lat.Degrees(), (int(s.MinZoom)+int(s.MaxZoom))/2)},
	}
	if opts.Description != "" {
		metadata = append(metadata, [2]string{"description", opts.Description})
	}

	for _, kv := range metadata {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata (name, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("write metadata %s: %w", kv[0], err)
		}
	}
	return nil
}

// walk lists the tiles of a <z>/<x>/<y> tree.
func walk(dir string) ([]model.Tile, error) {
	zooms, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var tiles []model.Tile
	for _, zEntry := range zooms {
		z, ok := parseIndex(zEntry.Name())
		if !ok || !zEntry.IsDir() || z > 30 {
			continue
		}
		cols, err := os.ReadDir(filepath.Join(dir, zEntry.Name()))
		if err != nil {
			return nil, err
		}
		for _, xEntry := range cols {
			x, ok := parseIndex(xEntry.Name())
			if !ok || !xEntry.IsDir() {
				continue
			}
			rows, err := os.ReadDir(filepath.Join(dir, zEntry.Name(), xEntry.Name()))
			if err != nil {
				return nil, err
			}
			for _, yEntry := range rows {
				y, ok := parseIndex(yEntry.Name())
				if !ok || !yEntry.Type().IsRegular() {
					continue
				}
				tiles = append(tiles, model.Tile{X: x, Y: y, Z: uint8(z)})
			}
		}
	}
	return tiles, nil
}

// summarize computes the zoom range of tiles and the bounds of those at the
// deepest zoom. tiles must not be empty.
func summarize(tiles []model.Tile) Summary {
	s := Summary{
		Tiles:   len(tiles),
		MinZoom: tiles[0].Z,
		MaxZoom: tiles[0].Z,
		Bounds:  s2.EmptyRect(),
	}
	for _, tile := range tiles {
		s.MinZoom = min(s.MinZoom, tile.Z)
		s.MaxZoom = max(s.MaxZoom, tile.Z)
	}
	for _, tile := range tiles {
		if tile.Z == s.MaxZoom {
			s.Bounds = s.Bounds.Union(tileRect(tile))
		}
	}
	return s
}

// parseIndex accepts plain non-negative decimal names only.
func parseIndex(name string) (int, bool) {
	if name == "" || strings.TrimLeft(name, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

func tmsRow(t model.Tile) int {
	return (1 << t.Z) - 1 - t.Y
}

func tileRect(t model.Tile) s2.Rect {
	west, north := slippy.TileCorner(t.Z, t.X, t.Y)
	east, south := slippy.TileCorner(t.Z, t.X+1, t.Y+1)
	return s2.RectFromLatLng(s2.LatLngFromDegrees(north, west)).
		AddPoint(s2.LatLngFromDegrees(south, east))
}
