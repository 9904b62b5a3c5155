package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrBoundingBoxRange is returned when a bounding box coordinate lies outside
// of [0, 2π) radians (or [0°, 360°) when given in degrees).
var ErrBoundingBoxRange = errors.New("bounding box coordinate out of range")

// BoundingBox is a geographic rectangle given by its north, east, south and
// west boundaries in radians, each in [0, 2π).
//
// The zero value is a valid (degenerate) box. No ordering between north and
// south or east and west is enforced; a box with west > east simply yields no
// tiles.
//
// Example:
//
//	aachen, err := NewBoundingBoxDegrees(50.811, 6.1649, 50.7492, 6.031)
type BoundingBox struct {
	north float64
	east  float64
	south float64
	west  float64
}

// NewBoundingBox creates a bounding box from coordinates in radians.
//
// Returns ErrBoundingBoxRange if any coordinate is < 0 or >= 2π.
func NewBoundingBox(north, east, south, west float64) (BoundingBox, error) {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"north", north},
		{"east", east},
		{"south", south},
		{"west", west},
	} {
		if !inRange(c.value) {
			return BoundingBox{}, fmt.Errorf("%w: %s = %v rad, want [0, 2π)", ErrBoundingBoxRange, c.name, c.value)
		}
	}

	return BoundingBox{
		north: north,
		east:  east,
		south: south,
		west:  west,
	}, nil
}

// NewBoundingBoxDegrees creates a bounding box from coordinates in degrees
// (0-360°).
//
// Returns ErrBoundingBoxRange if any coordinate is < 0° or >= 360°.
func NewBoundingBoxDegrees(north, east, south, west float64) (BoundingBox, error) {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"north", north},
		{"east", east},
		{"south", south},
		{"west", west},
	} {
		if !(c.value >= 0 && c.value < 360) {
			return BoundingBox{}, fmt.Errorf("%w: %s = %v°, want [0°, 360°)", ErrBoundingBoxRange, c.name, c.value)
		}
	}

	return NewBoundingBox(ToRadians(north), ToRadians(east), ToRadians(south), ToRadians(west))
}

// MustBoundingBox is like NewBoundingBox but panics on out-of-range input.
// Use it only for coordinates that were validated before.
func MustBoundingBox(north, east, south, west float64) BoundingBox {
	b, err := NewBoundingBox(north, east, south, west)
	if err != nil {
		panic(err)
	}
	return b
}

// North returns the north boundary in radians.
func (b BoundingBox) North() float64 { return b.north }

// East returns the east boundary in radians.
func (b BoundingBox) East() float64 { return b.east }

// South returns the south boundary in radians.
func (b BoundingBox) South() float64 { return b.south }

// West returns the west boundary in radians.
func (b BoundingBox) West() float64 { return b.west }

// String formats the box in degrees as north,east,south,west.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
		ToDegrees(b.north), ToDegrees(b.east), ToDegrees(b.south), ToDegrees(b.west))
}

// ToRadians converts degrees to radians.
//
// π is held in a float64 before dividing so the factor is rounded the same way
// a runtime computation of π/180 would be.
func ToRadians(deg float64) float64 {
	pi := math.Pi
	return deg * (pi / 180)
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	pi := math.Pi
	return rad * (180 / pi)
}

func inRange(rad float64) bool {
	return rad >= 0 && rad < 2*math.Pi
}
