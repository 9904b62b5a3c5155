package download

import (
	"errors"
	"fmt"

	"github.com/handiism/osm-tile-downloader/internal/model"
)

// ErrOutputNotDirectory is returned by Run when the output path exists but is
// not a directory.
var ErrOutputNotDirectory = errors.New("output path is not a directory")

// Op names the step of a tile fetch that failed.
type Op string

const (
	OpMkdir  Op = "mkdir"
	OpStat   Op = "stat"
	OpPolicy Op = "policy"
	OpFetch  Op = "fetch"
	OpWrite  Op = "write"
)

// TileError is a failure isolated to a single tile.
type TileError struct {
	Tile model.Tile
	Op   Op
	URL  string
	Err  error
}

func (e *TileError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("tile %s: %s %s: %v", e.Tile, e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("tile %s: %s: %v", e.Tile, e.Op, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}
