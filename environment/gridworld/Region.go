package gridworld

import (
	"fmt"

	"github.com/samuelfneumann/gridtrack/pixel"
)

// Region is a rectangle of pixels, inclusive of both start and end
// coordinates on each axis
type Region struct {
	XStart int `json:"x_start"`
	XEnd   int `json:"x_end"`
	YStart int `json:"y_start"`
	YEnd   int `json:"y_end"`
}

// NewRegion returns the region spanning [xStart, xEnd] x [yStart, yEnd]
func NewRegion(xStart, xEnd, yStart, yEnd int) (Region, error) {
	r := Region{xStart, xEnd, yStart, yEnd}
	return r, r.Validate()
}

// Validate returns an error if the region is empty or lies at negative
// coordinates
func (r Region) Validate() error {
	if r.XStart < 0 || r.YStart < 0 {
		return fmt.Errorf("region %v: negative start: %w", r, ErrBadRegion)
	}
	if r.XStart > r.XEnd {
		return fmt.Errorf("region %v: x start %d > x end %d: %w", r,
			r.XStart, r.XEnd, ErrBadRegion)
	}
	if r.YStart > r.YEnd {
		return fmt.Errorf("region %v: y start %d > y end %d: %w", r,
			r.YStart, r.YEnd, ErrBadRegion)
	}
	return nil
}

// Shape returns the number of rows and columns of the region
func (r Region) Shape() (height, width int) {
	return r.YEnd - r.YStart + 1, r.XEnd - r.XStart + 1
}

// Len returns the number of pixels in the region
func (r Region) Len() int {
	h, w := r.Shape()
	return h * w
}

// Contains returns whether pixel c lies inside the region
func (r Region) Contains(c pixel.Coord) bool {
	return c.X >= r.XStart && c.X <= r.XEnd &&
		c.Y >= r.YStart && c.Y <= r.YEnd
}

func (r Region) String() string {
	return fmt.Sprintf("[%d, %d] x [%d, %d]", r.XStart, r.XEnd, r.YStart,
		r.YEnd)
}
