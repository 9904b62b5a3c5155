package slippy

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/osm-tile-downloader/internal/model"
)

func aachen(t *testing.T) model.BoundingBox {
	t.Helper()
	bbox, err := model.NewBoundingBoxDegrees(50.811, 6.1649, 50.7492, 6.031)
	require.NoError(t, err)
	return bbox
}

func TestTileIndices(t *testing.T) {
	tests := []struct {
		name  string
		zoom  uint8
		lon   float64
		lat   float64
		wantX int
		wantY int
	}{
		{"aachen z18", 18, 6.0402, 50.7929, 135470, 87999},
		{"aachen west/north z12", 12, 6.031, 50.811, 2116, 1374},
		{"aachen east/south z12", 12, 6.1649, 50.7492, 2118, 1375},
		{"origin z1", 1, 0, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := TileIndices(tt.zoom, model.ToRadians(tt.lon), model.ToRadians(tt.lat))
			assert.Equal(t, tt.wantX, x, "x")
			assert.Equal(t, tt.wantY, y, "y")
		})
	}
}

func TestTileIndices_Preconditions(t *testing.T) {
	assert.Panics(t, func() { TileIndices(0, 0.1, 0.1) })
	assert.Panics(t, func() { TileIndices(1, -0.1, 0.1) })
	assert.Panics(t, func() { TileIndices(1, 0.1, -0.1) })
}

func TestToIndex(t *testing.T) {
	assert.Equal(t, 0, toIndex(math.NaN()))
	assert.Equal(t, 0, toIndex(-3.7))
	assert.Equal(t, 3, toIndex(3.99))
	assert.Equal(t, math.MaxInt, toIndex(math.Inf(1)))
}

func TestEnumerate_ZoomOutOfRangePanics(t *testing.T) {
	assert.NotPanics(t, func() { Enumerate(aachen(t), MaxZoom) })
	assert.Panics(t, func() { Enumerate(aachen(t), MaxZoom+1) })
	assert.Panics(t, func() { Enumerate(aachen(t), 64) })
}

func TestEnumerate_ZeroZoomPanics(t *testing.T) {
	assert.Panics(t, func() { Enumerate(aachen(t), 0) })
}

func TestSequence_CountMatchesIteration(t *testing.T) {
	bbox := aachen(t)

	for _, zoom := range []uint8{1, 5, 10, 12, 14} {
		seq := Enumerate(bbox, zoom)
		tiles := slices.Collect(seq.All())
		assert.Equal(t, seq.Count(), len(tiles), "zoom %d", zoom)
	}
}

func TestSequence_KnownCounts(t *testing.T) {
	bbox := aachen(t)

	assert.Equal(t, 10, Enumerate(bbox, 10).Count())
	assert.Equal(t, 18, Enumerate(bbox, 12).Count())

	levels := Enumerate(bbox, 12).Levels()
	require.Len(t, levels, 12)
	assert.Equal(t, Level{Zoom: 12, MinX: 2116, MinY: 1374, MaxX: 2118, MaxY: 1375}, levels[11])
	assert.Equal(t, 6, levels[11].Count())
}

func TestSequence_Order(t *testing.T) {
	tiles := slices.Collect(Enumerate(aachen(t), 12).All())
	require.Len(t, tiles, 18)

	assert.Equal(t, model.Tile{X: 1, Y: 0, Z: 1}, tiles[0])
	assert.Equal(t, []model.Tile{
		{X: 2116, Y: 1374, Z: 12},
		{X: 2116, Y: 1375, Z: 12},
		{X: 2117, Y: 1374, Z: 12},
		{X: 2117, Y: 1375, Z: 12},
		{X: 2118, Y: 1374, Z: 12},
		{X: 2118, Y: 1375, Z: 12},
	}, tiles[12:])
}

func TestSequence_Restartable(t *testing.T) {
	seq := Enumerate(aachen(t), 13)

	first := slices.Collect(seq.All())
	second := slices.Collect(seq.All())
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestSequence_EarlyStop(t *testing.T) {
	seq := Enumerate(aachen(t), 12)

	var got []model.Tile
	for tile := range seq.All() {
		got = append(got, tile)
		if len(got) == 3 {
			break
		}
	}
	assert.Len(t, got, 3)
}

func TestSequence_Degenerate(t *testing.T) {
	tests := []struct {
		name                     string
		north, east, south, west float64
	}{
		{"west beyond east", 50, 10, 40, 200},
		{"north below south", 0, 10, 80, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bbox, err := model.NewBoundingBoxDegrees(tt.north, tt.east, tt.south, tt.west)
			require.NoError(t, err)

			seq := Enumerate(bbox, 16)
			for _, l := range seq.Levels() {
				assert.Equal(t, 0, l.Count(), "zoom %d", l.Zoom)
			}
			assert.Equal(t, 0, seq.Count())
			assert.Empty(t, slices.Collect(seq.All()))
		})
	}
}

func TestTileCorner(t *testing.T) {
	lon, lat := TileCorner(0, 0, 0)
	assert.InDelta(t, -180, lon, 1e-9)
	assert.InDelta(t, 85.0511, lat, 1e-4)

	lon, lat = TileCorner(1, 1, 1)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	// The corner lies inside the tile it names.
	lon, lat = TileCorner(18, 135470, 87999)
	x, y := TileIndices(18, model.ToRadians(lon+1e-7), model.ToRadians(lat-1e-7))
	assert.Equal(t, 135470, x)
	assert.Equal(t, 87999, y)
}
