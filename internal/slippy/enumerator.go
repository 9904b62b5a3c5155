package slippy

import (
	"iter"

	"github.com/handiism/osm-tile-downloader/internal/model"
)

// Level is the inclusive tile range covering a bounding box at one zoom
// level. A level with MinX > MaxX or MinY > MaxY is empty.
type Level struct {
	Zoom uint8
	MinX int
	MinY int
	MaxX int
	MaxY int
}

// Count returns the number of tiles in the level, 0 for an empty range.
func (l Level) Count() int {
	if l.MinX > l.MaxX || l.MinY > l.MaxY {
		return 0
	}
	return (l.MaxX - l.MinX + 1) * (l.MaxY - l.MinY + 1)
}

// Sequence is the lazily produced set of tiles covering a bounding box from
// zoom 1 up to and including a maximum zoom.
//
// A Sequence holds only its inputs. Tiles are computed on demand, so it can be
// counted and iterated any number of times with identical results.
type Sequence struct {
	bbox    model.BoundingBox
	maxZoom uint8
}

// MaxZoom is the deepest zoom level Enumerate accepts. At deeper levels the
// tile count of a level no longer fits in an int on 32-bit platforms.
const MaxZoom = 30

// Enumerate returns the tile sequence for bbox over zoom levels 1..maxZoom.
//
// Panics if maxZoom is 0 or greater than MaxZoom.
func Enumerate(bbox model.BoundingBox, maxZoom uint8) Sequence {
	assertf(maxZoom >= 1, "slippy: max zoom must be >= 1, got %d", maxZoom)
	assertf(maxZoom <= MaxZoom, "slippy: max zoom must be <= %d, got %d", MaxZoom, maxZoom)
	return Sequence{bbox: bbox, maxZoom: maxZoom}
}

// MaxZoom returns the highest zoom level in the sequence.
func (s Sequence) MaxZoom() uint8 {
	return s.maxZoom
}

// Level computes the tile range at zoom z.
//
// The top-left tile comes from (west, north) and the bottom-right one from
// (east, south): rows grow southwards while columns grow eastwards.
func (s Sequence) Level(z uint8) Level {
	topX, topY := TileIndices(z, s.bbox.West(), s.bbox.North())
	botX, botY := TileIndices(z, s.bbox.East(), s.bbox.South())

	return Level{Zoom: z, MinX: topX, MinY: topY, MaxX: botX, MaxY: botY}
}

// Levels returns the tile range of every zoom level in order.
func (s Sequence) Levels() []Level {
	levels := make([]Level, 0, s.maxZoom)
	for z := uint8(1); ; z++ {
		levels = append(levels, s.Level(z))
		if z == s.maxZoom {
			break
		}
	}
	return levels
}

// Count returns the total number of tiles without producing them.
func (s Sequence) Count() int {
	total := 0
	for _, l := range s.Levels() {
		total += l.Count()
	}
	return total
}

// All yields every tile, zoom-major, then by column, then by row.
func (s Sequence) All() iter.Seq[model.Tile] {
	return func(yield func(model.Tile) bool) {
		for z := uint8(1); ; z++ {
			l := s.Level(z)
			for x := l.MinX; x <= l.MaxX; x++ {
				for y := l.MinY; y <= l.MaxY; y++ {
					if !yield(model.Tile{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
			if z == s.maxZoom {
				return
			}
		}
	}
}
