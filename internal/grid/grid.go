// Package grid implements the uniform-partition strategy: an image
// rectangle split into rows x cols cells with integer bounds that tile
// the image exactly.
package grid

import (
	"fmt"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

// Grid describes a uniform partition of an image_w x image_h rectangle
// into rows x cols cells.
type Grid struct {
	imageW, imageH uint32
	cols, rows     uint32
}

// New validates and builds a Grid. Constructor errors:
// any argument zero, or cols > image_w, or rows > image_h.
func New(imageW, imageH, cols, rows uint32) (*Grid, error) {
	if imageW == 0 || imageH == 0 || cols == 0 || rows == 0 {
		return nil, fmt.Errorf("grid: zero dimension (w=%d h=%d cols=%d rows=%d): %w",
			imageW, imageH, cols, rows, pixelart.ErrInvalidDimensions)
	}
	if cols > imageW {
		return nil, fmt.Errorf("grid: cols %d > image width %d: %w", cols, imageW, pixelart.ErrInvalidDimensions)
	}
	if rows > imageH {
		return nil, fmt.Errorf("grid: rows %d > image height %d: %w", rows, imageH, pixelart.ErrInvalidDimensions)
	}
	return &Grid{imageW: imageW, imageH: imageH, cols: cols, rows: rows}, nil
}

// Cols returns the column count.
func (g *Grid) Cols() uint32 { return g.cols }

// Rows returns the row count.
func (g *Grid) Rows() uint32 { return g.rows }

// CellCount returns rows*cols.
func (g *Grid) CellCount() uint32 { return g.rows * g.cols }

// CellBounds returns the integer (x0, y0, x1, y1) bounds of cell (r, c).
// x0 = floor(c*image_w/cols), x1 = floor((c+1)*image_w/cols), and
// analogously for y. The cell rectangles tile [0,image_w)x[0,image_h)
// exactly, with no overlap and no gap.
func (g *Grid) CellBounds(r, c uint32) (x0, y0, x1, y1 uint32) {
	x0 = uint32(uint64(c) * uint64(g.imageW) / uint64(g.cols))
	x1 = uint32(uint64(c+1) * uint64(g.imageW) / uint64(g.cols))
	y0 = uint32(uint64(r) * uint64(g.imageH) / uint64(g.rows))
	y1 = uint32(uint64(r+1) * uint64(g.imageH) / uint64(g.rows))
	return
}

// Cell is one (row, col) coordinate pair yielded by IterCells.
type Cell struct {
	Row, Col uint32
}

// IterCells returns every (r, c) pair for r in [0,rows), c in [0,cols)
// in row-major order.
func (g *Grid) IterCells() []Cell {
	cells := make([]Cell, 0, g.CellCount())
	for r := uint32(0); r < g.rows; r++ {
		for c := uint32(0); c < g.cols; c++ {
			cells = append(cells, Cell{Row: r, Col: c})
		}
	}
	return cells
}
