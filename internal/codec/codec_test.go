package codec

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"a.png":  FormatPNG,
		"a.PNG":  FormatPNG,
		"a.jpg":  FormatJPEG,
		"a.jpeg": FormatJPEG,
		"a.webp": FormatWebP,
		"a.qoi":  FormatQOI,
		"a.bmp":  FormatPNG,
		"a":      FormatPNG,
	}
	for path, want := range cases {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestPNGRoundTrip(t *testing.T) {
	img := pixelart.NewImage(3, 2)
	img.Set(0, 0, pixelart.Pixel{R: 10, G: 20, B: 30, A: 255})
	img.Set(2, 1, pixelart.Pixel{R: 1, G: 2, B: 3, A: 128})

	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatPNG, EncodeOptions{}); err != nil {
		t.Fatal(err)
	}

	out, err := Decode(&buf, FormatPNG)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != img.Width || out.Height != img.Height {
		t.Fatalf("dims = %dx%d, want %dx%d", out.Width, out.Height, img.Width, img.Height)
	}
	if out.At(0, 0) != img.At(0, 0) {
		t.Fatalf("pixel (0,0) = %+v, want %+v", out.At(0, 0), img.At(0, 0))
	}
	if out.At(2, 1) != img.At(2, 1) {
		t.Fatalf("pixel (2,1) = %+v, want %+v", out.At(2, 1), img.At(2, 1))
	}
}

// TestNRGBAPixelUnpremultiplies checks that a color.Color's
// alpha-premultiplied RGBA() values are correctly unpremultiplied back
// to the original channel values, for partially and fully transparent
// pixels.
func TestNRGBAPixelUnpremultiplies(t *testing.T) {
	cases := []struct {
		in   color.NRGBA
		want pixelart.Pixel
	}{
		{color.NRGBA{R: 1, G: 2, B: 3, A: 128}, pixelart.Pixel{R: 1, G: 2, B: 3, A: 128}},
		{color.NRGBA{R: 255, A: 128}, pixelart.Pixel{R: 255, A: 128}},
		{color.NRGBA{R: 10, G: 20, B: 30, A: 255}, pixelart.Pixel{R: 10, G: 20, B: 30, A: 255}},
		{color.NRGBA{R: 200, G: 100, B: 50, A: 0}, pixelart.Pixel{}},
	}
	for _, c := range cases {
		got := nrgbaPixel(c.in)
		if got != c.want {
			t.Errorf("nrgbaPixel(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestQOIRoundTrip(t *testing.T) {
	img := pixelart.NewImage(4, 4)
	for i := range img.Pix {
		img.Pix[i] = pixelart.Pixel{R: uint8(i), G: uint8(i * 2), B: uint8(i * 3), A: 255}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatQOI, EncodeOptions{}); err != nil {
		t.Fatal(err)
	}
	out, err := Decode(&buf, FormatQOI)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != img.Width || out.Height != img.Height {
		t.Fatalf("dims = %dx%d, want %dx%d", out.Width, out.Height, img.Width, img.Height)
	}
}
