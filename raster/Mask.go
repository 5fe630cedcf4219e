package raster

// LandThreshold separates land from water in a land/water raster. The
// persisted rasters hold 1 for land, 0 for water and Unknown where the
// class could not be determined; unknown pixels count as water.
const LandThreshold = 0.5

// Mask is a binary raster stored row-major, true marking land
type Mask struct {
	width, height int
	land          []bool
}

// LandMask classifies every pixel of a land/water grid
func LandMask(g *Grid) *Mask {
	width, height := g.Dims()
	land := make([]bool, width*height)
	for i, v := range g.Values() {
		land[i] = v > LandThreshold
	}
	return &Mask{width, height, land}
}

// NewMask builds a mask from rows of booleans, rows[y][x]
func NewMask(rows [][]bool) (*Mask, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrBadShape
	}
	width := len(rows[0])
	land := make([]bool, 0, width*len(rows))
	for _, row := range rows {
		if len(row) != width {
			return nil, ErrBadShape
		}
		land = append(land, row...)
	}
	return &Mask{width, len(rows), land}, nil
}

// Dims returns the width and height of the mask
func (m *Mask) Dims() (width, height int) {
	return m.width, m.height
}

// In returns whether (x, y) lies inside the mask
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// Land returns whether (x, y) is land. Land panics outside the mask.
func (m *Mask) Land(x, y int) bool {
	if !m.In(x, y) {
		panic("land: pixel outside mask")
	}
	return m.land[y*m.width+x]
}
