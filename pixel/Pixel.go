// Package pixel implements integer pixel coordinates on a calibrated
// raster
package pixel

import "fmt"

// Coord is a pixel coordinate. X indexes columns and Y indexes rows, with
// (0, 0) at the upper left corner of the raster.
type Coord struct {
	X, Y int
}

// New returns the coordinate (x, y)
func New(x, y int) Coord {
	return Coord{X: x, Y: y}
}

// Sub returns the per-axis difference c - o
func (c Coord) Sub(o Coord) (dx, dy int) {
	return c.X - o.X, c.Y - o.Y
}

// Equal returns whether two coordinates refer to the same pixel
func (c Coord) Equal(o Coord) bool {
	return c.X == o.X && c.Y == o.Y
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}
