// Package codec converts between this module's flat pixelart.Image and
// on-disk image formats. All image/color conversion lives here so the
// core conversion packages never import the standard image package
// (spec.md §3's "core must not depend on image/color").
package codec

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/deepteams/webp"
	"github.com/dlecorfec/progjpeg"
	"github.com/xfmoulet/qoi"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

// Format identifies an on-disk image codec.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatWebP
	FormatQOI
)

// FormatFromPath infers a Format from a file extension, defaulting to
// PNG when the extension is unrecognized (spec.md §6's "PNG
// recommended" default).
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".webp":
		return FormatWebP
	case ".qoi":
		return FormatQOI
	default:
		return FormatPNG
	}
}

// Decode reads an image from r in the given format and converts it into
// a pixelart.Image.
func Decode(r io.Reader, f Format) (*pixelart.Image, error) {
	var img image.Image
	var err error

	switch f {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatQOI:
		img, err = qoi.Decode(r)
	default:
		img, err = png.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	return fromImage(img), nil
}

// EncodeOptions controls output encoding. Quality applies to JPEG only
// (0-100, as in dlecorfec/progjpeg and the standard jpeg package);
// Progressive requests a progressive JPEG scan sequence via
// dlecorfec/progjpeg instead of the standard library's baseline-only
// encoder.
type EncodeOptions struct {
	Quality     int
	Progressive bool
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img *pixelart.Image, f Format, opts EncodeOptions) error {
	std := toImage(img)

	switch f {
	case FormatJPEG:
		if opts.Progressive {
			q := opts.Quality
			if q <= 0 {
				q = 90
			}
			return progjpeg.Encode(w, std, &progjpeg.Options{Quality: q, Progressive: true})
		}
		q := opts.Quality
		if q <= 0 {
			q = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, std, &jpeg.Options{Quality: q})
	case FormatWebP:
		return webp.Encode(w, std, &webp.EncoderOptions{Lossless: true})
	case FormatQOI:
		return qoi.Encode(w, std)
	default:
		return png.Encode(w, std)
	}
}

func fromImage(src image.Image) *pixelart.Image {
	b := src.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy())
	out := pixelart.NewImage(w, h)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(uint32(x), uint32(y), nrgbaPixel(src.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}

// nrgbaPixel converts a color.Color to an unpremultiplied Pixel.
// color.Color.RGBA() returns alpha-premultiplied 16-bit channels (see
// image/color.Color's doc comment), so r/g/b must be divided back out
// by a before truncating to 8 bits, or a fully transparent pixel with
// a non-zero source color would otherwise come back black, and any
// partially transparent pixel would come back darkened.
func nrgbaPixel(c color.Color) pixelart.Pixel {
	r, g, bl, a := c.RGBA()
	if a == 0 {
		return pixelart.Pixel{}
	}
	return pixelart.Pixel{
		R: uint8((r * 0xffff / a) >> 8),
		G: uint8((g * 0xffff / a) >> 8),
		B: uint8((bl * 0xffff / a) >> 8),
		A: uint8(a >> 8),
	}
}

func toImage(img *pixelart.Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, int(img.Width), int(img.Height)))
	for y := uint32(0); y < img.Height; y++ {
		for x := uint32(0); x < img.Width; x++ {
			p := img.At(x, y)
			i := out.PixOffset(int(x), int(y))
			out.Pix[i+0] = p.R
			out.Pix[i+1] = p.G
			out.Pix[i+2] = p.B
			out.Pix[i+3] = p.A
		}
	}
	return out
}
