// Package raster implements raster feature layers and the bucketisation
// of their values into discrete feature levels
package raster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Unknown is the raw value persisted rasters use for pixels whose value
// could not be determined. It is never treated as a measurement.
const Unknown = -1.0

var (
	// ErrMissingRaster is returned when a raster file cannot be read
	ErrMissingRaster = errors.New("raster file cannot be read")

	// ErrBadShape is returned when a raster does not have two dimensions
	// or its backing data does not match its dimensions
	ErrBadShape = errors.New("raster must be a non-empty 2-D array")
)

// Grid is a two dimensional array of values indexed [y][x]. A Grid is a
// height x width matrix, so row y of the matrix is row y of the raster.
type Grid struct {
	m *mat.Dense
}

// NewGrid returns a zeroed grid of the given size
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("newGrid: %dx%d: %w", width, height,
			ErrBadShape)
	}
	return &Grid{mat.NewDense(height, width, nil)}, nil
}

// NewGridFrom returns a grid backed by data, which must hold exactly
// width * height values in row-major order. The grid takes ownership of
// data.
func NewGridFrom(width, height int, data []float64) (*Grid, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return nil, fmt.Errorf("newGridFrom: %d values for %dx%d: %w",
			len(data), width, height, ErrBadShape)
	}
	return &Grid{mat.NewDense(height, width, data)}, nil
}

// GridFromRows builds a grid from a slice of rows, rows[y][x]. All rows
// must have the same length.
func GridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("gridFromRows: %w", ErrBadShape)
	}
	width := len(rows[0])
	data := make([]float64, 0, width*len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("gridFromRows: row %d has %d values, "+
				"want %d: %w", y, len(row), width, ErrBadShape)
		}
		data = append(data, row...)
	}
	return NewGridFrom(width, len(rows), data)
}

// Dims returns the width and height of the grid
func (g *Grid) Dims() (width, height int) {
	height, width = g.m.Dims()
	return width, height
}

// In returns whether (x, y) lies inside the grid
func (g *Grid) In(x, y int) bool {
	width, height := g.Dims()
	return x >= 0 && y >= 0 && x < width && y < height
}

// At returns the value at (x, y). At panics if (x, y) is outside the
// grid; use In or Layer.Value for checked access.
func (g *Grid) At(x, y int) float64 {
	return g.m.At(y, x)
}

// Set sets the value at (x, y)
func (g *Grid) Set(x, y int, v float64) {
	g.m.Set(y, x, v)
}

// Values returns the row-major backing slice of the grid. The slice is
// shared with the grid.
func (g *Grid) Values() []float64 {
	return g.m.RawMatrix().Data
}

// Matrix returns the grid as a height x width matrix sharing its data
func (g *Grid) Matrix() *mat.Dense {
	return g.m
}

func (g *Grid) String() string {
	width, height := g.Dims()
	return fmt.Sprintf("Grid | %dx%d", width, height)
}
