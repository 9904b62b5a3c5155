// Package ioutils provides file system and image utilities for tile trees.
//
// This package contains functions for:
//   - Atomic tile writes (temporary file plus rename)
//   - Existence and directory checks
//   - Directory creation
//   - Tile format detection (PNG, JPEG, GIF, WebP)
//
// # File Operations
//
//	// Ensure the column directory exists
//	err := ioutils.EnsureDir("/tiles/18/135470")
//
//	// Write a tile atomically
//	err := ioutils.WriteFile(ctx, "/tiles/18/135470/87999", body)
//
//	// Skip tiles already on disk
//	ok, err := ioutils.Exists("/tiles/18/135470/87999")
//
// # Format Detection
//
// Tiles are stored under their bare y coordinate, without an extension.
// DetectFormat reads the image header instead:
//
//	format, _, _ := ioutils.DetectFormat(body)
//	w.Header().Set("Content-Type", format.ContentType())
package ioutils
