// Package imaging cleans raster scans before recognition: grayscale,
// adaptive binarization and deskew.
package imaging

import (
	"context"
	"image"
)

// Backend is the set of raster operations the preprocessor relies on.
// Implementations must be safe for concurrent use.
type Backend interface {
	Decode(ctx context.Context, data []byte) (image.Image, error)
	Grayscale(img image.Image) (*image.Gray, error)
	AdaptiveThreshold(gray *image.Gray, blockSize int, c float64) (*image.Gray, error)
	ForegroundPoints(bin *image.Gray) []image.Point
	MinAreaAngle(points []image.Point) (float64, error)
	Rotate(img *image.Gray, degrees float64) (*image.Gray, error)
}
