// Package slippy converts geographic bounding boxes into slippy-map tile
// coordinates.
//
// TileIndices projects one (longitude, latitude) point to its tile column and
// row at a zoom level. Enumerate turns a bounding box and a maximum zoom into
// a Sequence covering zoom levels 1 through the maximum:
//
//	seq := slippy.Enumerate(bbox, 12)
//	fmt.Println(seq.Count()) // known before iterating
//	for tile := range seq.All() {
//	    fmt.Println(tile)
//	}
//
// Tiles are yielded zoom-major, then by column, then by row. A Sequence is a
// pure function of its inputs and may be iterated any number of times.
package slippy
