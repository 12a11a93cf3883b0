// Package extractor implements the three ColorExtractor variants:
// Average, MedianCut, and KMeans. Each maps a non-empty multiset of
// pixels to a single representative color; output alpha is always 255.
//
// All three share the Extractor capability interface. The Converter
// calls Extract through that interface once per cell; only its
// QuadTree palette-remap pass switches on the concrete type, to reach
// MedianCutPalette and KMeansPalette.
package extractor

import (
	"fmt"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

// Extractor maps a multiset of pixels to one representative color.
// Implementations must be stateless or use only thread-local/immutable
// state: Extract is invoked concurrently from multiple Converter
// workers and must not perform I/O.
type Extractor interface {
	Extract(pixels []pixelart.Pixel) (pixelart.Pixel, error)
}

func emptyInputError(name string) error {
	return fmt.Errorf("extractor: %s invoked with zero pixels: %w", name, pixelart.ErrEmptyInput)
}

// channelSums accumulates per-channel sums in 64-bit integers, wide
// enough to avoid overflow for N up to image_w*image_h (spec.md §9's
// numerical-precision note).
type channelSums struct {
	r, g, b int64
	n       int64
}

func sumChannels(pixels []pixelart.Pixel) channelSums {
	var s channelSums
	for _, p := range pixels {
		s.r += int64(p.R)
		s.g += int64(p.G)
		s.b += int64(p.B)
	}
	s.n = int64(len(pixels))
	return s
}

func (s channelSums) mean() pixelart.Pixel {
	if s.n == 0 {
		return pixelart.Pixel{A: 255}
	}
	return pixelart.Pixel{
		R: uint8(s.r / s.n),
		G: uint8(s.g / s.n),
		B: uint8(s.b / s.n),
		A: 255,
	}
}

func sqDist(a, b pixelart.Pixel) int64 {
	dr := int64(a.R) - int64(b.R)
	dg := int64(a.G) - int64(b.G)
	db := int64(a.B) - int64(b.B)
	return dr*dr + dg*dg + db*db
}
