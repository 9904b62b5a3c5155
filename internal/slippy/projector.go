package slippy

import (
	"fmt"
	"math"
)

// TileIndices maps a point to the column and row of the slippy-map tile that
// contains it at the given zoom level, using the Web Mercator formula:
//
//	x = trunc(((lon + π) / 2π) * 2^z)
//	y = trunc((1 - ln(tan(lat) + sec(lat)) / π) * 2^(z-1))
//
// lonRad and latRad are in radians, both >= 0. zoom must be >= 1. Violating
// either precondition panics; callers always derive these values from a
// validated bounding box.
func TileIndices(zoom uint8, lonRad, latRad float64) (x, y int) {
	assertf(zoom > 0, "slippy: zoom must be > 0, got %d", zoom)
	assertf(lonRad >= 0, "slippy: longitude must be >= 0, got %v", lonRad)
	assertf(latRad >= 0, "slippy: latitude must be >= 0, got %v", latRad)

	tileX := (lonRad + math.Pi) / (2 * math.Pi) * math.Ldexp(1, int(zoom))

	trig := math.Log(math.Tan(latRad) + 1/math.Cos(latRad))
	tileY := (1 - trig/math.Pi) * math.Ldexp(1, int(zoom)-1)

	return toIndex(tileX), toIndex(tileY)
}

// toIndex truncates toward zero and saturates: NaN and negative values become
// 0, values beyond the int range become math.MaxInt.
func toIndex(f float64) int {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	default:
		return int(f)
	}
}

// TileCorner returns the north-west corner of tile (x, y) at zoom in degrees,
// longitude in [-180, 180] and latitude in about [-85.05, 85.05]. It is the
// inverse of the Web Mercator projection; x+1 and y+1 give the south-east
// corner.
func TileCorner(zoom uint8, x, y int) (lonDeg, latDeg float64) {
	n := math.Ldexp(1, int(zoom))
	lonDeg = float64(x)/n*360 - 180
	latDeg = math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/n))) * 180 / math.Pi
	return lonDeg, latDeg
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
