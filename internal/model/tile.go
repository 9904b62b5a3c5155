package model

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Tile identifies a slippy-map tile by column X, row Y and zoom level Z.
//
// Tiles are plain values: two tiles are equal iff all three fields match.
//
// Example:
//
//	t := Tile{X: 135470, Y: 87999, Z: 18}
//	t.Path("/tiles")                                // "/tiles/18/135470/87999"
//	t.URL("http://localhost:8080/{z}/{x}/{y}.png")  // "http://localhost:8080/18/135470/87999.png"
type Tile struct {
	X int
	Y int
	Z uint8
}

// Dir returns the column directory <outputDir>/<z>/<x> holding the tile file.
func (t Tile) Dir(outputDir string) string {
	return filepath.Join(outputDir, strconv.Itoa(int(t.Z)), strconv.Itoa(t.X))
}

// Path returns the on-disk location <outputDir>/<z>/<x>/<y> of the tile.
//
// No extension is appended; the file holds the raw response bytes.
func (t Tile) Path(outputDir string) string {
	return filepath.Join(t.Dir(outputDir), strconv.Itoa(t.Y))
}

// URL renders a URL template by replacing the literal placeholders {x}, {y}
// and {z} with the tile's decimal coordinates.
func (t Tile) URL(template string) string {
	url := template
	url = strings.ReplaceAll(url, "{x}", strconv.Itoa(t.X))
	url = strings.ReplaceAll(url, "{y}", strconv.Itoa(t.Y))
	url = strings.ReplaceAll(url, "{z}", strconv.Itoa(int(t.Z)))
	return url
}

// String returns the tile as z/x/y.
func (t Tile) String() string {
	return strconv.Itoa(int(t.Z)) + "/" + strconv.Itoa(t.X) + "/" + strconv.Itoa(t.Y)
}
