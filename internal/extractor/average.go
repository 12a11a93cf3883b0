package extractor

import "github.com/rklaeser/pixelart/internal/pixelart"

// Average extracts the arithmetic mean color. It holds no state.
type Average struct{}

var _ Extractor = Average{}

// Extract returns floor((sum R_i)/N) per channel, similarly G and B.
// Empty input is a usage error.
func (Average) Extract(pixels []pixelart.Pixel) (pixelart.Pixel, error) {
	if len(pixels) == 0 {
		return pixelart.Pixel{}, emptyInputError("Average")
	}
	return sumChannels(pixels).mean(), nil
}
