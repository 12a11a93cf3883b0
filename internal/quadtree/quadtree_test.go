package quadtree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

func solidImage(w, h uint32, p pixelart.Pixel) *pixelart.Image {
	img := pixelart.NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = p
	}
	return img
}

// TestScenarioS5 is spec.md scenario S5: a 4x4 solid gray image with
// variance_threshold=0.0 yields a single leaf of size 4 (no split,
// since variance is exactly 0), and the rendered output equals the
// input.
func TestScenarioS5(t *testing.T) {
	gray := pixelart.Pixel{R: 128, G: 128, B: 128, A: 255}
	img := solidImage(4, 4, gray)

	tree, err := Build(img, Params{MaxDepth: 4, VarianceThreshold: 0.0})
	require.NoError(t, err)

	leaves := tree.Leaves()
	require.Len(t, leaves, 1)
	require.EqualValues(t, 4, leaves[0].Size)
	require.Equal(t, gray, leaves[0].Color)

	out := tree.Render(4, 4)
	require.Equal(t, img.Pix, out.Pix)
}

// TestCoverage checks invariant 9: the set of leaf rectangles, clipped
// to the image, tiles the image exactly.
func TestCoverage(t *testing.T) {
	cases := []struct{ w, h uint32 }{
		{5, 5}, {7, 3}, {16, 16}, {1, 1}, {9, 17},
	}
	for _, c := range cases {
		img := pixelart.NewImage(c.w, c.h)
		for y := uint32(0); y < c.h; y++ {
			for x := uint32(0); x < c.w; x++ {
				img.Set(x, y, pixelart.Pixel{R: uint8(x * 7), G: uint8(y * 13), B: uint8((x + y) * 3), A: 255})
			}
		}
		tree, err := Build(img, Params{MaxDepth: 6, VarianceThreshold: 10.0})
		require.NoError(t, err)

		covered := make([][]bool, c.h)
		for i := range covered {
			covered[i] = make([]bool, c.w)
		}
		for _, leaf := range tree.Leaves() {
			x1 := leaf.X + leaf.Size
			y1 := leaf.Y + leaf.Size
			if x1 > c.w {
				x1 = c.w
			}
			if y1 > c.h {
				y1 = c.h
			}
			for y := leaf.Y; y < y1; y++ {
				for x := leaf.X; x < x1; x++ {
					require.Falsef(t, covered[y][x], "pixel (%d,%d) covered twice", x, y)
					covered[y][x] = true
				}
			}
		}
		for y := uint32(0); y < c.h; y++ {
			for x := uint32(0); x < c.w; x++ {
				require.Truef(t, covered[y][x], "pixel (%d,%d) not covered", x, y)
			}
		}
	}
}

// TestVarianceMonotonicity checks invariant 10.
func TestVarianceMonotonicity(t *testing.T) {
	img := pixelart.NewImage(32, 32)
	for y := uint32(0); y < 32; y++ {
		for x := uint32(0); x < 32; x++ {
			img.Set(x, y, pixelart.Pixel{R: uint8(x * 8), G: uint8(y * 8), B: uint8((x ^ y) * 5), A: 255})
		}
	}
	tree, err := Build(img, Params{MaxDepth: 5, VarianceThreshold: 5.0})
	require.NoError(t, err)
	require.True(t, tree.VarianceMonotonic())
}

func TestMaxDepthZero(t *testing.T) {
	img := pixelart.NewImage(4, 4)
	tree, err := Build(img, Params{MaxDepth: 0, VarianceThreshold: 1.0})
	require.NoError(t, err)
	require.Len(t, tree.Leaves(), 1)
}

func TestZeroDimensionIsError(t *testing.T) {
	img := &pixelart.Image{Width: 0, Height: 4}
	_, err := Build(img, Params{MaxDepth: 4})
	require.Error(t, err)
}

func TestNegativeThresholdSplitsZeroVarianceToUnitLeaves(t *testing.T) {
	gray := pixelart.Pixel{R: 1, G: 2, B: 3, A: 255}
	img := solidImage(4, 4, gray)
	tree, err := Build(img, Params{MaxDepth: 4, VarianceThreshold: -1})
	require.NoError(t, err)
	// negative threshold means variance (0) > threshold, so it must
	// split down to 1x1 leaves.
	leaves := tree.Leaves()
	require.Len(t, leaves, 16)
	for _, l := range leaves {
		require.EqualValues(t, 1, l.Size)
		require.Equal(t, gray, l.Color)
	}
}
