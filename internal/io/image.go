package ioutils

import (
	"bytes"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration

	_ "golang.org/x/image/webp" // WebP decoder registration
)

// Format is a raster tile encoding.
type Format string

// Tile formats recognised by DetectFormat.
const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpg"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatUnknown Format = ""
)

// ContentType returns the MIME type for f, or application/octet-stream.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// DetectFormat sniffs the encoding of a tile body.
//
// Only the image header is decoded. Tiles are stored without an extension,
// so this is how the preview server and the MBTiles exporter learn what a
// tile tree contains.
//
// Example:
//
//	format, w, h := DetectFormat(data) // FormatPNG, 256, 256
func DetectFormat(data []byte) (format Format, width, height int) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return FormatUnknown, 0, 0
	}

	switch name {
	case "png":
		format = FormatPNG
	case "jpeg":
		format = FormatJPEG
	case "gif":
		format = FormatGIF
	case "webp":
		format = FormatWebP
	default:
		format = FormatUnknown
	}
	return format, cfg.Width, cfg.Height
}
