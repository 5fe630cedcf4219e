// Package population builds a population density raster from a table of
// cities
package population

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/raster"
	"github.com/samuelfneumann/gridtrack/utils/floatutils"
)

// Column names of the city table
const (
	LatColumn        = "lat"
	LonColumn        = "lng"
	PopulationColumn = "population"
)

// ErrMissingColumn is returned when the city table lacks a required column
var ErrMissingColumn = errors.New("missing column")

// City is a populated place located on the raster
type City struct {
	Pixel      pixel.Coord
	Population float64
}

// ReadCities reads a CSV table of cities with a header row holding at
// least the lat, lng and population columns. Rows whose population or
// coordinates are empty or not finite are skipped.
func ReadCities(r io.Reader, proj *projection.Projection) ([]City, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("readCities: header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	var idx [3]int
	for i, name := range []string{LatColumn, LonColumn, PopulationColumn} {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("readCities: %v: %w", name, ErrMissingColumn)
		}
		idx[i] = col
	}

	var cities []City
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readCities: line %d: %w", line, err)
		}

		values, ok := parseFloats(record, idx[:])
		if !ok {
			continue
		}
		lat, lon, pop := values[0], values[1], values[2]
		if err := projection.Validate(lat, lon); err != nil {
			return nil, fmt.Errorf("readCities: line %d: %w", line, err)
		}

		cities = append(cities, City{
			Pixel:      proj.Project(lat, lon),
			Population: pop,
		})
	}
	return cities, nil
}

// parseFloats parses the fields at the given columns. The returned bool is
// false if any field is absent, empty or not a finite number.
func parseFloats(record []string, cols []int) ([]float64, bool) {
	values := make([]float64, len(cols))
	for i, col := range cols {
		if col >= len(record) {
			return nil, false
		}
		field := strings.TrimSpace(record[col])
		if field == "" {
			return nil, false
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || !floatutils.IsFinite(v) {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// Kernel describes the separable Gaussian footprint of a city. Radius is
// the half width of the square footprint in pixels and Sigma the standard
// deviation of the Gaussian along each axis.
type Kernel struct {
	Radius int     `json:"radius"`
	Sigma  float64 `json:"sigma"`
}

// DefaultKernel returns the footprint used for the continental base map
func DefaultKernel() Kernel {
	return Kernel{Radius: 100, Sigma: 25}
}

// Validate returns an error if the kernel cannot be evaluated
func (k Kernel) Validate() error {
	if k.Radius < 0 {
		return fmt.Errorf("kernel radius %d must be non-negative", k.Radius)
	}
	if !(k.Sigma > 0) || math.IsInf(k.Sigma, 1) {
		return fmt.Errorf("kernel sigma %v must be positive", k.Sigma)
	}
	return nil
}

// weights returns the kernel along one axis for offsets -Radius..Radius,
// normalised so that the centre weight is 1
func (k Kernel) weights() []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: k.Sigma}
	peak := dist.Prob(0)

	w := make([]float64, 2*k.Radius+1)
	for i := range w {
		w[i] = dist.Prob(float64(i-k.Radius)) / peak
	}
	return w
}

// Build returns a width x height raster where every city adds its
// population weighted by the kernel around its pixel. Footprints are
// clipped to the raster, and cities outside it still contribute to the
// pixels their footprint covers.
func Build(width, height int, cities []City, k Kernel) (*raster.Grid, error) {
	if err := k.Validate(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	grid, err := raster.NewGrid(width, height)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	w := k.weights()
	for _, city := range cities {
		for dy := -k.Radius; dy <= k.Radius; dy++ {
			y := city.Pixel.Y + dy
			if y < 0 || y >= height {
				continue
			}
			for dx := -k.Radius; dx <= k.Radius; dx++ {
				x := city.Pixel.X + dx
				if x < 0 || x >= width {
					continue
				}
				weight := w[dx+k.Radius] * w[dy+k.Radius]
				grid.Set(x, y, grid.At(x, y)+city.Population*weight)
			}
		}
	}
	return grid, nil
}
