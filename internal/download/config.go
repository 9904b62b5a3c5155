package download

import (
	"errors"
	"fmt"

	"github.com/handiism/osm-tile-downloader/internal/model"
	"github.com/handiism/osm-tile-downloader/internal/slippy"
)

// MaxZoomLevel is the deepest zoom level a Config may request.
const MaxZoomLevel = slippy.MaxZoom

// ErrInvalidConfig is returned by Config.Validate and NewManager.
var ErrInvalidConfig = errors.New("invalid download config")

// Config describes one download run.
type Config struct {
	// BoundingBox is the area to cover.
	BoundingBox model.BoundingBox

	// FetchRate is the maximum number of tiles in flight at once.
	FetchRate uint8

	// OutputDir is the root of the <z>/<x>/<y> tree.
	OutputDir string

	// URL is the tile URL template with {x}, {y} and {z} placeholders.
	URL string

	// MaxZoom is the deepest zoom level fetched. Levels 1 through MaxZoom
	// are downloaded.
	MaxZoom uint8
}

// Tiles returns the lazy tile sequence for the run.
func (c Config) Tiles() slippy.Sequence {
	return slippy.Enumerate(c.BoundingBox, c.MaxZoom)
}

// Validate checks the fields that would otherwise make a run hang or panic.
func (c Config) Validate() error {
	switch {
	case c.FetchRate == 0:
		return fmt.Errorf("%w: fetch rate must be at least 1", ErrInvalidConfig)
	case c.MaxZoom == 0:
		return fmt.Errorf("%w: max zoom must be at least 1", ErrInvalidConfig)
	case c.MaxZoom > MaxZoomLevel:
		return fmt.Errorf("%w: max zoom %d exceeds %d", ErrInvalidConfig, c.MaxZoom, MaxZoomLevel)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output directory is empty", ErrInvalidConfig)
	case c.URL == "":
		return fmt.Errorf("%w: url template is empty", ErrInvalidConfig)
	}
	return nil
}
