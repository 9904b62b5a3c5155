// Package server serves a downloaded tile tree for previewing in a map
// client such as Leaflet or OpenLayers.
//
// Routes:
//
//	GET /tiles/:z/:x/:y   the tile, with a Content-Type sniffed from its bytes
//	GET /healthz          liveness probe
//
// The y segment may carry an extension ("87999.png") so slippy-map clients
// can use their usual URL templates. Missing tiles answer 404 and
// non-numeric coordinates 400, both with a JSON error body.
package server
