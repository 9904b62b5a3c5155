// Package mbtiles packs a downloaded <z>/<x>/<y> tile tree into a single
// MBTiles (SQLite) file.
//
//	summary, err := mbtiles.Pack(ctx, "tiles", "tiles.mbtiles", mbtiles.Options{Name: "Aachen"})
//
// The metadata table carries name, type, version, format, minzoom, maxzoom,
// bounds and center. Bounds and center are derived from the tiles at the
// deepest zoom level.
package mbtiles
