// Package quadtree implements the adaptive spatial partition strategy:
// a recursive quad split of the smallest square containing the image,
// stopping at max_depth, a variance threshold, or unit size.
//
// Nodes are stored in a flat arena ([]node indexed by nodeID) rather
// than a heap-allocated pointer graph. This follows the spec's own
// design note preferring an arena for the parallel fill pass (leaf
// iteration becomes a contiguous scan) and the reference corpus's
// noctilu-quadtree package, which models the same "four named children,
// structural identity" shape — though that package memoizes nodes by
// child hash for its hashlife use case, which this tree has no need
// for: a pixel region is visited exactly once during a build.
package quadtree

import (
	"fmt"
	"math"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

// nodeID indexes into Tree.nodes. The zero value is the root.
type nodeID int32

const noChild nodeID = -1

type node struct {
	x, y, size uint32
	mean       pixelart.Pixel
	variance   float64
	// children holds [topLeft, topRight, bottomLeft, bottomRight]; a
	// leaf has noChild in every slot.
	children [4]nodeID
}

func (n *node) isLeaf() bool { return n.children[0] == noChild }

// Tree is a built QuadTree: an arena of nodes plus the parameters used
// to build it.
type Tree struct {
	nodes            []node
	maxDepth         uint32
	varianceThresh   float64
	imageW, imageH   uint32
	paddedSize       uint32
}

// Params configures a Build call.
type Params struct {
	MaxDepth         uint32
	VarianceThreshold float64
}

// Build constructs the tree over the smallest square containing the
// image, per spec.md §4.2.
func Build(img *pixelart.Image, p Params) (*Tree, error) {
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("quadtree: zero image dimension: %w", pixelart.ErrInvalidDimensions)
	}
	s := smallestPowerOfTwoAtLeast(maxU32(img.Width, img.Height))

	t := &Tree{
		nodes:          make([]node, 0, estimateNodeCount(p.MaxDepth)),
		maxDepth:       p.MaxDepth,
		varianceThresh: p.VarianceThreshold,
		imageW:         img.Width,
		imageH:         img.Height,
		paddedSize:     s,
	}
	t.buildNode(img, 0, 0, s, 0)
	return t, nil
}

func estimateNodeCount(maxDepth uint32) int {
	// Rough pre-allocation hint: a full quadtree to maxDepth has
	// (4^(maxDepth+1)-1)/3 nodes; cap the guess to avoid huge
	// allocations for deep trees that will split only locally.
	if maxDepth > 8 {
		maxDepth = 8
	}
	n := 1
	total := 1
	for i := uint32(0); i < maxDepth; i++ {
		n *= 4
		total += n
	}
	return total
}

func smallestPowerOfTwoAtLeast(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	s := uint32(1)
	for s < v {
		s <<= 1
	}
	return s
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// buildNode collects in-image pixels of the node's region, computes
// mean/variance, decides leaf vs. split, and recurses. Returns the
// nodeID of the constructed node.
func (t *Tree) buildNode(img *pixelart.Image, x, y, size uint32, depth uint32) nodeID {
	mean, variance := regionMeanVariance(img, x, y, size)

	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{
		x: x, y: y, size: size,
		mean:     mean,
		variance: variance,
		children: [4]nodeID{noChild, noChild, noChild, noChild},
	})

	if depth >= t.maxDepth || variance <= t.varianceThresh || size <= 1 {
		return id
	}

	half := size / 2
	tl := t.buildNode(img, x, y, half, depth+1)
	tr := t.buildNode(img, x+half, y, half, depth+1)
	bl := t.buildNode(img, x, y+half, half, depth+1)
	br := t.buildNode(img, x+half, y+half, half, depth+1)

	// Re-fetch: buildNode appends to t.nodes and may have reallocated
	// the backing array, invalidating any earlier pointer into it.
	t.nodes[id].children = [4]nodeID{tl, tr, bl, br}
	return id
}

// regionMeanVariance computes the per-channel mean (alpha forced to
// 255) and variance over the in-image pixels of the size x size square
// at (x, y). Pixels outside the image contribute nothing. If no pixels
// are in-image, variance is 0 and mean is transparent black.
func regionMeanVariance(img *pixelart.Image, x, y, size uint32) (pixelart.Pixel, float64) {
	var sumR, sumG, sumB int64
	var n int64

	xEnd := x + size
	yEnd := y + size
	if xEnd > img.Width {
		xEnd = img.Width
	}
	if yEnd > img.Height {
		yEnd = img.Height
	}
	if x >= xEnd || y >= yEnd {
		return pixelart.Pixel{}, 0
	}

	for py := y; py < yEnd; py++ {
		for px := x; px < xEnd; px++ {
			p := img.At(px, py)
			sumR += int64(p.R)
			sumG += int64(p.G)
			sumB += int64(p.B)
			n++
		}
	}
	if n == 0 {
		return pixelart.Pixel{}, 0
	}

	meanR := float64(sumR) / float64(n)
	meanG := float64(sumG) / float64(n)
	meanB := float64(sumB) / float64(n)

	var sqDev float64
	for py := y; py < yEnd; py++ {
		for px := x; px < xEnd; px++ {
			p := img.At(px, py)
			dr := float64(p.R) - meanR
			dg := float64(p.G) - meanG
			db := float64(p.B) - meanB
			sqDev += dr*dr + dg*dg + db*db
		}
	}
	variance := sqDev / float64(n)

	mean := pixelart.Pixel{
		R: uint8(math.Round(meanR)),
		G: uint8(math.Round(meanG)),
		B: uint8(math.Round(meanB)),
		A: 255,
	}
	return mean, variance
}

// NodeCount returns the total number of nodes (leaves + internals).
// The Converter emits progress per leaf and does not call it.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Leaf is one leaf of the tree, as yielded by Leaves.
type Leaf struct {
	X, Y, Size uint32
	Color      pixelart.Pixel
}

// Leaves returns every leaf in depth-first pre-order.
func (t *Tree) Leaves() []Leaf {
	var out []Leaf
	t.collectLeaves(0, &out)
	return out
}

func (t *Tree) collectLeaves(id nodeID, out *[]Leaf) {
	n := &t.nodes[id]
	if n.isLeaf() {
		*out = append(*out, Leaf{X: n.x, Y: n.y, Size: n.size, Color: n.mean})
		return
	}
	for _, c := range n.children {
		t.collectLeaves(c, out)
	}
}

// SetLeafColors rewrites the color of every leaf, in the same
// depth-first pre-order that Leaves returns them in. Used by the
// optional palette-remapping pass.
func (t *Tree) SetLeafColors(colors []pixelart.Pixel) {
	i := 0
	t.setLeafColors(0, colors, &i)
}

func (t *Tree) setLeafColors(id nodeID, colors []pixelart.Pixel, i *int) {
	n := &t.nodes[id]
	if n.isLeaf() {
		n.mean = colors[*i]
		*i++
		return
	}
	for _, c := range n.children {
		t.setLeafColors(c, colors, i)
	}
}

// Render allocates a fresh image_w x image_h buffer and fills each
// leaf's rectangle, clipped to the image, with the leaf's color. Leaves
// partition the padded square, so every output pixel is written exactly
// once.
func (t *Tree) Render(imageW, imageH uint32) *pixelart.Image {
	out := pixelart.NewImage(imageW, imageH)
	for _, leaf := range t.Leaves() {
		out.FillRect(leaf.X, leaf.Y, leaf.X+leaf.Size, leaf.Y+leaf.Size, leaf.Color)
	}
	return out
}

// VarianceMonotonic reports whether every internal node's area-weighted
// mean of child variances is <= the node's own variance (invariant 10).
// Exported for tests; not used by the conversion pipeline.
func (t *Tree) VarianceMonotonic() bool {
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.isLeaf() {
			continue
		}
		var weighted float64
		var totalArea float64
		for _, c := range n.children {
			child := &t.nodes[c]
			area := float64(child.size) * float64(child.size)
			weighted += area * child.variance
			totalArea += area
		}
		if totalArea == 0 {
			continue
		}
		if weighted/totalArea > n.variance+1e-9 {
			return false
		}
	}
	return true
}
