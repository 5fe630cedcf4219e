// Package coastline derives a distance-to-coast raster from a land mask
package coastline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/raster"
	"github.com/samuelfneumann/gridtrack/utils/intutils"
)

// ErrNoCoastline is returned when the mask holds a single class, so that
// no pixel borders the opposite class
var ErrNoCoastline = errors.New("mask has no coast pixel")

// Builder computes, for every pixel of a land mask, the Euclidean
// distance in pixels to the nearest coast pixel. A coast pixel is one
// with at least one 4-neighbour of the opposite class; coast pixels have
// distance 0.
//
// Pixels are visited column by column, top to bottom. Each pixel searches
// square rings of growing radius around itself and takes the smallest
// distance among the coast pixels on the first ring holding any. Since
// the distance changes slowly down a column, the search for a pixel
// starts at the radius found for the pixel above it, less 2.
//
// Once the radius exceeds MaxRadius a breadth-first search over the
// whole image is used instead.
type Builder struct {
	// MaxRadius bounds the ring search. Zero means the larger of the
	// mask's width and height.
	MaxRadius int

	// Progress, if not nil, is called after each column with the number
	// of columns done and the total number of columns
	Progress func(done, total int)

	// Logger receives diagnostics. Nil means log.Default().
	Logger *log.Logger
}

// coast is the row-major coast raster of a mask
type coast struct {
	width, height int
	pixels        []bool
}

func (c coast) at(x, y int) bool {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return false
	}
	return c.pixels[y*c.width+x]
}

// findCoast marks every pixel with a 4-neighbour of the other class. The
// returned bool is false if no coast pixel exists.
func findCoast(mask *raster.Mask) (coast, bool) {
	width, height := mask.Dims()
	c := coast{width, height, make([]bool, width*height)}

	neighbours := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	found := false
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			class := mask.Land(x, y)
			for _, n := range neighbours {
				nx, ny := x+n[0], y+n[1]
				if mask.In(nx, ny) && mask.Land(nx, ny) != class {
					c.pixels[y*width+x] = true
					found = true
					break
				}
			}
		}
	}
	return c, found
}

// Build computes the distance raster of mask. The context is checked
// once per column, so a caller-level timeout bounds the run time of
// large rasters.
func (b *Builder) Build(ctx context.Context, mask *raster.Mask) (*raster.Grid,
	error) {
	logger := b.Logger
	if logger == nil {
		logger = log.Default()
	}

	c, ok := findCoast(mask)
	if !ok {
		return nil, fmt.Errorf("build: %w", ErrNoCoastline)
	}

	width, height := mask.Dims()
	maxRadius := b.MaxRadius
	if maxRadius <= 0 {
		maxRadius = intutils.Max(width, height)
	}

	distances, err := raster.NewGrid(width, height)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	fallbacks := 0
	for x := 0; x < width; x++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build: column %d/%d: %w", x, width, err)
		}

		radius := 0
		for y := 0; y < height; y++ {
			start := intutils.Max(radius-2, 0)
			if y == 0 {
				start = 0
			}

			var d float64
			d, radius, ok = c.ringSearch(x, y, start, maxRadius)
			if !ok {
				d, ok = c.breadthFirst(x, y)
				if !ok {
					return nil, fmt.Errorf("build: pixel (%d, %d): %w", x, y,
						ErrNoCoastline)
				}
				radius = int(math.Ceil(d))
				fallbacks++
			}
			distances.Set(x, y, d)
		}

		if b.Progress != nil {
			b.Progress(x+1, width)
		}
	}

	if fallbacks > 0 {
		logger.Printf("coastline: %d pixels fell back to breadth-first "+
			"search (max radius %d)", fallbacks, maxRadius)
	}
	return distances, nil
}

// ringSearch searches the perimeters of squares of radius start,
// start+1, ... around (x, y) and returns the smallest distance to a
// coast pixel on the first ring holding one, together with that ring's
// radius. Rings are scanned bottom row, top row, right column, then left
// column; the first of equally distant pixels wins.
func (c coast) ringSearch(x, y, start, maxRadius int) (float64, int, bool) {
	for r := start; r <= maxRadius; r++ {
		if x-r < 0 && y-r < 0 && x+r >= c.width && y+r >= c.height {
			// Ring lies entirely outside the raster, as do all larger ones
			return 0, r, false
		}

		if r == 0 {
			if c.at(x, y) {
				return 0, 0, true
			}
			continue
		}

		best := math.Inf(1)
		visit := func(px, py int) {
			if !c.at(px, py) {
				return
			}
			if d := distance(x, y, px, py); d < best {
				best = d
			}
		}

		for px := x - r; px <= x+r; px++ {
			visit(px, y+r)
		}
		for px := x - r; px <= x+r; px++ {
			visit(px, y-r)
		}
		for py := y - r + 1; py <= y+r-1; py++ {
			visit(x+r, py)
		}
		for py := y - r + 1; py <= y+r-1; py++ {
			visit(x-r, py)
		}

		if !math.IsInf(best, 1) {
			return best, r, true
		}
	}
	return 0, maxRadius, false
}

// breadthFirst walks the raster outward from (x, y) through 4-neighbours
// and returns the distance to the first coast pixel reached
func (c coast) breadthFirst(x, y int) (float64, bool) {
	seen := make([]bool, len(c.pixels))
	queue := []pixel.Coord{pixel.New(x, y)}
	seen[y*c.width+x] = true

	neighbours := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if c.at(p.X, p.Y) {
			return distance(x, y, p.X, p.Y), true
		}

		for _, n := range neighbours {
			nx, ny := p.X+n[0], p.Y+n[1]
			if nx < 0 || ny < 0 || nx >= c.width || ny >= c.height {
				continue
			}
			if i := ny*c.width + nx; !seen[i] {
				seen[i] = true
				queue = append(queue, pixel.New(nx, ny))
			}
		}
	}
	return 0, false
}

func distance(x0, y0, x1, y1 int) float64 {
	return math.Hypot(float64(x1-x0), float64(y1-y0))
}

// Layer wraps a distance raster as a feature layer with bounds
// [0, largest distance]
func Layer(name string, buckets int, distances *raster.Grid) (*raster.Layer,
	error) {
	bounds := r1.Interval{Min: 0, Max: mat.Max(distances.Matrix())}
	return raster.NewLayerWithBounds(name, buckets, distances, bounds)
}
