// Package converter orchestrates a pixel-art conversion: it owns the
// chosen partition strategy (Grid or QuadTree) and ColorExtractor, and
// exposes sequential and parallel entry points plus an optional
// progress sink.
//
// The sequential path follows the teacher's a_sequential.go: one
// goroutine, deterministic row-major/pre-order processing. The
// parallel path follows b_tile_parallel.go's coordinator/worker-pool
// shape, simplified because Grid cells and QuadTree leaves here are
// already disjoint, non-overlapping rectangles in the final image (the
// teacher's tiles needed padding and an assembler stage to re-stitch
// after a blur convolution that reads neighboring pixels; a
// ColorExtractor reads only its own cell/leaf, so no padding or
// reassembly is needed — each worker writes directly into its slice of
// the shared output buffer).
package converter

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rklaeser/pixelart/internal/extractor"
	"github.com/rklaeser/pixelart/internal/grid"
	"github.com/rklaeser/pixelart/internal/pixelart"
	"github.com/rklaeser/pixelart/internal/quadtree"
)

// ProgressSink receives cell/leaf completion events during a
// conversion. OnCell may be called from any worker goroutine; it must
// not block for long and must not panic — the Converter swallows
// panics raised by the sink so a misbehaving observer cannot abort a
// conversion (spec.md §4.4 error semantics: "progress-sink exceptions
// are swallowed and do not abort the conversion").
type ProgressSink interface {
	OnCell(a, b uint32)
}

// Strategy selects Grid or QuadTree partitioning for a Converter.
type Strategy interface {
	isStrategy()
}

// GridStrategy partitions the image into a uniform rows x cols grid.
type GridStrategy struct {
	Cols, Rows uint32
}

func (GridStrategy) isStrategy() {}

// QuadTreeStrategy partitions the image adaptively.
type QuadTreeStrategy struct {
	MaxDepth          uint32
	VarianceThreshold float64
	// PaletteSize, if non-zero, runs the optional palette-remapping
	// pass described in spec.md §4.4: the Extractor is run once more
	// over the leaf mean colors (weighted by area) to produce a
	// palette of at most PaletteSize colors, and each leaf's mean is
	// replaced by the nearest palette entry before rendering. This is
	// meaningful only when Extractor is MedianCut or KMeans.
	PaletteSize uint32
}

func (QuadTreeStrategy) isStrategy() {}

// Converter holds a chosen strategy plus a ColorExtractor and exposes
// sequential and parallel conversion entry points.
type Converter struct {
	Strategy  Strategy
	Extractor extractor.Extractor
	Progress  ProgressSink

	mu      sync.Mutex
	running bool
}

// New builds a Converter. Progress may be left nil to disable
// reporting.
func New(strategy Strategy, ex extractor.Extractor, progress ProgressSink) *Converter {
	return &Converter{Strategy: strategy, Extractor: ex, Progress: progress}
}

// SetProgress stores an observer; pass nil to disable reporting.
func (c *Converter) SetProgress(p ProgressSink) {
	c.Progress = p
}

func (c *Converter) emit(a, b uint32) {
	if c.Progress == nil {
		return
	}
	defer func() { _ = recover() }()
	c.Progress.OnCell(a, b)
}

// enterRunning enforces the Idle -> Running state machine: no
// concurrent invocations are permitted on the same Converter instance.
func (c *Converter) enterRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("converter: already running: %w", pixelart.ErrProcessing)
	}
	c.running = true
	return nil
}

func (c *Converter) exitRunning() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// Convert runs the conversion sequentially on the calling goroutine, in
// deterministic order (row-major for Grid, pre-order for QuadTree),
// emitting one progress event per completed cell/leaf.
func (c *Converter) Convert(img *pixelart.Image) (*pixelart.Image, error) {
	if err := c.enterRunning(); err != nil {
		return nil, err
	}
	defer c.exitRunning()

	switch s := c.Strategy.(type) {
	case GridStrategy:
		return c.convertGridSequential(img, s)
	case QuadTreeStrategy:
		return c.convertQuadTreeSequential(img, s)
	default:
		return nil, fmt.Errorf("converter: unknown strategy %T: %w", c.Strategy, pixelart.ErrProcessing)
	}
}

// ConvertParallel runs the conversion across a worker pool with no
// ordering guarantee between cells/leaves; progress events may be
// delivered out of order. Output is byte-identical to Convert for Grid
// strategy and any extractor (spec property 7).
func (c *Converter) ConvertParallel(img *pixelart.Image) (*pixelart.Image, error) {
	if err := c.enterRunning(); err != nil {
		return nil, err
	}
	defer c.exitRunning()

	switch s := c.Strategy.(type) {
	case GridStrategy:
		return c.convertGridParallel(img, s)
	case QuadTreeStrategy:
		return c.convertQuadTreeParallel(img, s)
	default:
		return nil, fmt.Errorf("converter: unknown strategy %T: %w", c.Strategy, pixelart.ErrProcessing)
	}
}

func (c *Converter) buildGrid(img *pixelart.Image, s GridStrategy) (*grid.Grid, error) {
	g, err := grid.New(img.Width, img.Height, s.Cols, s.Rows)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (c *Converter) convertGridSequential(img *pixelart.Image, s GridStrategy) (*pixelart.Image, error) {
	g, err := c.buildGrid(img, s)
	if err != nil {
		return nil, err
	}
	out := pixelart.NewImage(img.Width, img.Height)
	for _, cell := range g.IterCells() {
		x0, y0, x1, y1 := g.CellBounds(cell.Row, cell.Col)
		if err := c.fillCell(img, out, x0, y0, x1, y1); err != nil {
			return nil, err
		}
		c.emit(cell.Row, cell.Col)
	}
	return out, nil
}

func (c *Converter) fillCell(img, out *pixelart.Image, x0, y0, x1, y1 uint32) error {
	if x1 <= x0 || y1 <= y0 {
		return fmt.Errorf("converter: zero-sized cell (%d,%d,%d,%d): %w", x0, y0, x1, y1, pixelart.ErrProcessing)
	}
	pixels := img.Slice(x0, y0, x1, y1)
	color, err := c.Extractor.Extract(pixels)
	if err != nil {
		return err
	}
	out.FillRect(x0, y0, x1, y1, color)
	return nil
}

// workerCount returns the worker pool size for parallel conversion.
// Grounded on the teacher's b_tile_parallel.go NUM_WORKERS constant,
// generalized to the host's CPU count rather than a hardcoded value.
func workerCount() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

func (c *Converter) convertGridParallel(img *pixelart.Image, s GridStrategy) (*pixelart.Image, error) {
	g, err := c.buildGrid(img, s)
	if err != nil {
		return nil, err
	}
	out := pixelart.NewImage(img.Width, img.Height)
	cells := g.IterCells()

	type job struct {
		cell grid.Cell
	}
	jobs := make(chan job, len(cells))
	for _, cell := range cells {
		jobs <- job{cell: cell}
	}
	close(jobs)

	var completed atomic.Int64
	var firstErr atomic.Value // error
	var wg sync.WaitGroup

	for i := 0; i < workerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				x0, y0, x1, y1 := g.CellBounds(j.cell.Row, j.cell.Col)
				if err := c.fillCell(img, out, x0, y0, x1, y1); err != nil {
					firstErr.CompareAndSwap(nil, err)
					continue
				}
				completed.Add(1)
				c.emit(j.cell.Row, j.cell.Col)
			}
		}()
	}
	wg.Wait()

	if v := firstErr.Load(); v != nil {
		return nil, v.(error)
	}
	return out, nil
}

func (c *Converter) convertQuadTreeSequential(img *pixelart.Image, s QuadTreeStrategy) (*pixelart.Image, error) {
	tree, err := quadtree.Build(img, quadtree.Params{MaxDepth: s.MaxDepth, VarianceThreshold: s.VarianceThreshold})
	if err != nil {
		return nil, err
	}
	if s.PaletteSize > 0 {
		if err := c.remapPalette(tree, s.PaletteSize); err != nil {
			return nil, err
		}
	}
	out := pixelart.NewImage(img.Width, img.Height)
	for _, leaf := range tree.Leaves() {
		out.FillRect(leaf.X, leaf.Y, leaf.X+leaf.Size, leaf.Y+leaf.Size, leaf.Color)
		c.emit(leaf.Y, leaf.X)
	}
	return out, nil
}

func (c *Converter) convertQuadTreeParallel(img *pixelart.Image, s QuadTreeStrategy) (*pixelart.Image, error) {
	// Tree construction and the optional palette remap run on the
	// calling goroutine; only the fill phase is parallelized.
	tree, err := quadtree.Build(img, quadtree.Params{MaxDepth: s.MaxDepth, VarianceThreshold: s.VarianceThreshold})
	if err != nil {
		return nil, err
	}
	if s.PaletteSize > 0 {
		if err := c.remapPalette(tree, s.PaletteSize); err != nil {
			return nil, err
		}
	}

	out := pixelart.NewImage(img.Width, img.Height)
	leaves := tree.Leaves()

	jobs := make(chan quadtree.Leaf, len(leaves))
	for _, l := range leaves {
		jobs <- l
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for l := range jobs {
				out.FillRect(l.X, l.Y, l.X+l.Size, l.Y+l.Size, l.Color)
				c.emit(l.Y, l.X)
			}
		}()
	}
	wg.Wait()

	return out, nil
}

// remapPalette runs the Extractor once over the leaf mean colors
// (weighted by leaf area) to produce a palette of at most
// paletteSize colors, then replaces each leaf's mean by the nearest
// palette color, per spec.md §4.4's optional palette remapping pass.
func (c *Converter) remapPalette(tree *quadtree.Tree, paletteSize uint32) error {
	leaves := tree.Leaves()
	if len(leaves) == 0 {
		return nil
	}

	weighted := weightedLeafSample(leaves, maxWeightedSamples)

	palette, err := buildPalette(c.Extractor, weighted, paletteSize)
	if err != nil {
		return err
	}
	newColors := make([]pixelart.Pixel, len(leaves))
	for i, l := range leaves {
		newColors[i] = nearestInPalette(palette, l.Color)
	}
	tree.SetLeafColors(newColors)
	return nil
}

// maxWeightedSamples caps the total number of area-weighted leaf-color
// samples fed to the palette builder, so a tree with huge leaves (or
// simply many of them) can't blow up memory; the cap applies to the
// whole leaf set, not per leaf.
const maxWeightedSamples = 1 << 16

// weightedLeafSample returns leaf colors repeated in proportion to leaf
// area. When the leaves' combined area exceeds limit, each leaf's count
// is scaled by limit/total (at least one sample per leaf), and
// collection stops once limit samples have been gathered regardless of
// which leaf is being processed.
func weightedLeafSample(leaves []quadtree.Leaf, limit int) []pixelart.Pixel {
	total := 0
	for _, l := range leaves {
		total += int(l.Size) * int(l.Size)
	}
	weighted := make([]pixelart.Pixel, 0, len(leaves))
	for _, l := range leaves {
		area := int(l.Size) * int(l.Size)
		if total > limit {
			area = area * limit / total
		}
		if area < 1 {
			area = 1
		}
		for i := 0; i < area; i++ {
			if len(weighted) >= limit {
				return weighted
			}
			weighted = append(weighted, l.Color)
		}
	}
	return weighted
}

// buildPalette produces up to paletteSize distinct representative
// colors from the weighted leaf-color sample. MedianCut and KMeans
// extractors expose their internal palette through MedianCutPalette and
// KMeansPalette respectively, so the remap pass reuses the exact same
// algorithm rather than introducing a separate quantizer; Average has
// no notion of a multi-color palette and degrades to its single mean.
func buildPalette(ex extractor.Extractor, pixels []pixelart.Pixel, paletteSize uint32) ([]pixelart.Pixel, error) {
	switch e := ex.(type) {
	case extractor.MedianCut:
		return extractor.MedianCutPalette(pixels, paletteSize)
	case extractor.KMeans:
		e.K = paletteSize
		return extractor.KMeansPalette(pixels, e)
	default:
		color, err := ex.Extract(pixels)
		if err != nil {
			return nil, err
		}
		return []pixelart.Pixel{color}, nil
	}
}

func nearestInPalette(palette []pixelart.Pixel, c pixelart.Pixel) pixelart.Pixel {
	best := palette[0]
	bestD := int64(-1)
	for _, p := range palette {
		dr := int64(c.R) - int64(p.R)
		dg := int64(c.G) - int64(p.G)
		db := int64(c.B) - int64(p.B)
		d := dr*dr + dg*dg + db*db
		if bestD < 0 || d < bestD {
			bestD = d
			best = p
		}
	}
	return best
}
