// Package model defines the core data structures used throughout
// the osm-tile-downloader application.
//
// # BoundingBox
//
// BoundingBox is a geographic rectangle stored in radians. Every boundary must
// lie in [0, 2π); construction rejects anything else:
//
//	bbox, err := model.NewBoundingBoxDegrees(50.811, 6.1649, 50.7492, 6.031)
//	if errors.Is(err, model.ErrBoundingBoxRange) {
//	    // reject input
//	}
//
// # Tile
//
// Tile is an (x, y, z) triple in the slippy-map grid. It knows where it lives
// on disk and how to render itself into a URL template:
//
//	t := model.Tile{X: 1, Y: 2, Z: 3}
//	t.Path("./tiles")                       // tiles/3/1/2
//	t.URL("http://localhost/{z}/{x}/{y}")   // http://localhost/3/1/2
//
// Available placeholders: {x}, {y}, {z}
package model
