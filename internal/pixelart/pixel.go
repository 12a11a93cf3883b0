// Package pixelart holds the data model and error vocabulary shared by
// the grid, quadtree, extractor, and converter packages.
package pixelart

// Pixel is a 4-channel 8-bit RGBA color. Alpha is carried through by
// Image but ignored by every ColorExtractor; extractor output alpha is
// always 255.
type Pixel struct {
	R, G, B, A uint8
}

// Image is a width x height rectangle of Pixels in row-major order,
// origin at top-left, addressed (column, row).
type Image struct {
	Width, Height uint32
	Pix           []Pixel
}

// NewImage allocates a zeroed width x height image.
func NewImage(width, height uint32) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]Pixel, int(width)*int(height)),
	}
}

// At returns the pixel at (x, y). Callers must keep x < Width and y < Height.
func (img *Image) At(x, y uint32) Pixel {
	return img.Pix[int(y)*int(img.Width)+int(x)]
}

// Set writes the pixel at (x, y).
func (img *Image) Set(x, y uint32, p Pixel) {
	img.Pix[int(y)*int(img.Width)+int(x)] = p
}

// FillRect overwrites every pixel in [x0,x1) x [y0,y1) with p. Bounds are
// clamped to the image extent so callers may pass unclamped region
// rectangles (e.g. a QuadTree leaf that overhangs the padded square).
func (img *Image) FillRect(x0, y0, x1, y1 uint32, p Pixel) {
	if x1 > img.Width {
		x1 = img.Width
	}
	if y1 > img.Height {
		y1 = img.Height
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}
	for y := y0; y < y1; y++ {
		row := img.Pix[int(y)*int(img.Width)+int(x0) : int(y)*int(img.Width)+int(x1)]
		for i := range row {
			row[i] = p
		}
	}
}

// Slice returns the pixels within [x0,x1) x [y0,y1), copied into a flat
// slice in row-major order. Used by Grid cell extraction to hand the
// ColorExtractor a contiguous pixel multiset.
func (img *Image) Slice(x0, y0, x1, y1 uint32) []Pixel {
	if x1 > img.Width {
		x1 = img.Width
	}
	if y1 > img.Height {
		y1 = img.Height
	}
	if x0 >= x1 || y0 >= y1 {
		return nil
	}
	out := make([]Pixel, 0, int(x1-x0)*int(y1-y0))
	for y := y0; y < y1; y++ {
		start := int(y)*int(img.Width) + int(x0)
		out = append(out, img.Pix[start:start+int(x1-x0)]...)
	}
	return out
}
