package extractor

import (
	"fmt"
	"sort"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

// MedianCut builds a palette of up to TargetColors entries by repeated
// bucket splitting, then returns the palette color that best represents
// the input pixel set.
//
// Bucket splitting is grounded on the reference corpus's
// soniakeys/quant/median quantizer (pick widest-range channel, sort,
// split) but fixes the spec's simpler tie-break: always split the
// bucket with the largest channel range, always cut at the median
// index. soniakeys/quant instead prioritizes by population/volume and
// cuts at the mean; that is a documented, unused alternative (see
// SPEC_FULL.md §9.2).
type MedianCut struct {
	TargetColors uint32
}

var _ Extractor = MedianCut{}

type mcBucket struct {
	pixels []pixelart.Pixel
}

func channelRange(pixels []pixelart.Pixel, ch int) (lo, hi uint8) {
	lo, hi = 255, 0
	for _, p := range pixels {
		var v uint8
		switch ch {
		case 0:
			v = p.R
		case 1:
			v = p.G
		default:
			v = p.B
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return
}

// widestChannel returns the channel index (0=R,1=G,2=B) with the
// largest max-min range, and whether the bucket has any range at all.
func widestChannel(pixels []pixelart.Pixel) (ch int, rng int, splittable bool) {
	best := -1
	bestRange := -1
	for c := 0; c < 3; c++ {
		lo, hi := channelRange(pixels, c)
		r := int(hi) - int(lo)
		if r > bestRange {
			bestRange = r
			best = c
		}
	}
	return best, bestRange, bestRange > 0
}

func channelOf(p pixelart.Pixel, ch int) uint8 {
	switch ch {
	case 0:
		return p.R
	case 1:
		return p.G
	default:
		return p.B
	}
}

// Extract runs the median-cut bucket splitting, then maps pixels to the
// nearest palette entry and returns the palette color with the most
// assigned input pixels (ties broken by smallest R, then G, then B).
func (m MedianCut) Extract(pixels []pixelart.Pixel) (pixelart.Pixel, error) {
	if len(pixels) == 0 {
		return pixelart.Pixel{}, emptyInputError("MedianCut")
	}
	if m.TargetColors < 1 {
		return pixelart.Pixel{}, fmt.Errorf("extractor: MedianCut target_colors must be >= 1: %w", pixelart.ErrInvalidParameter)
	}

	palette := buildMedianCutBuckets(pixels, m.TargetColors)
	return nearestPaletteByTotalDistance(palette, pixels), nil
}

// MedianCutPalette exposes the bucket-splitting palette builder so
// callers that need more than a single representative color (e.g. the
// Converter's QuadTree palette-remapping pass) can reuse the exact same
// algorithm instead of re-deriving it.
func MedianCutPalette(pixels []pixelart.Pixel, targetColors uint32) ([]pixelart.Pixel, error) {
	if len(pixels) == 0 {
		return nil, emptyInputError("MedianCut")
	}
	if targetColors < 1 {
		return nil, fmt.Errorf("extractor: MedianCut target_colors must be >= 1: %w", pixelart.ErrInvalidParameter)
	}
	return buildMedianCutBuckets(pixels, targetColors), nil
}

func buildMedianCutBuckets(pixels []pixelart.Pixel, targetColors uint32) []pixelart.Pixel {
	buckets := []mcBucket{{pixels: append([]pixelart.Pixel(nil), pixels...)}}

	for uint32(len(buckets)) < targetColors {
		splitIdx := -1
		splitCh := -1
		bestRange := -1
		for i, b := range buckets {
			ch, rng, ok := widestChannel(b.pixels)
			if !ok {
				continue
			}
			if rng > bestRange {
				bestRange = rng
				splitIdx = i
				splitCh = ch
			}
		}
		if splitIdx < 0 {
			break // no splittable bucket remains
		}

		b := buckets[splitIdx]
		sort.Slice(b.pixels, func(i, j int) bool {
			return channelOf(b.pixels[i], splitCh) < channelOf(b.pixels[j], splitCh)
		})
		mid := len(b.pixels) / 2
		lower := mcBucket{pixels: b.pixels[:mid]}
		upper := mcBucket{pixels: b.pixels[mid:]}
		buckets[splitIdx] = lower
		buckets = append(buckets, upper)
	}

	palette := make([]pixelart.Pixel, len(buckets))
	for i, b := range buckets {
		palette[i] = sumChannels(b.pixels).mean()
	}
	return palette
}

// nearestPaletteByTotalDistance assigns every pixel to its nearest
// palette entry by squared Euclidean RGB distance (ties within a
// single pixel's assignment broken toward the lower palette index,
// which is stable since palette is produced in bucket order), then
// returns the entry with the most assigned input pixels, ties broken by
// smallest R, then G, then B. The summed distances themselves are not
// computed.
func nearestPaletteByTotalDistance(palette []pixelart.Pixel, pixels []pixelart.Pixel) pixelart.Pixel {
	if len(palette) == 1 {
		return palette[0]
	}
	counts := make([]int, len(palette))
	for _, p := range pixels {
		best := 0
		bestD := sqDist(p, palette[0])
		for i := 1; i < len(palette); i++ {
			d := sqDist(p, palette[i])
			if d < bestD {
				bestD = d
				best = i
			}
		}
		counts[best]++
	}

	winner := -1
	for i := range palette {
		if counts[i] == 0 {
			continue
		}
		if winner < 0 || counts[i] > counts[winner] ||
			(counts[i] == counts[winner] && lessPixel(palette[i], palette[winner])) {
			winner = i
		}
	}
	if winner < 0 {
		return palette[0]
	}
	return palette[winner]
}

func lessPixel(a, b pixelart.Pixel) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.B < b.B
}
