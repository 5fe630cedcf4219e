// Package gridworld implements the bounded grid world that GPS
// trajectories are encoded into
package gridworld

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gridtrack/environment"
	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/raster"
)

var (
	// ErrUnknownFeature is returned when a feature name is not a layer of
	// the model
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrBadRegion is returned for empty regions and regions that extend
	// past a layer's raster
	ErrBadRegion = errors.New("invalid region")
)

// Unbucketed is stored in a feature matrix for features that have no
// bucket at a pixel
const Unbucketed = -1.0

// Model is a grid world over a rectangular region of pixels together
// with an ordered collection of feature layers.
//
// States are numbered column-major within the region: the state id of
// pixel (x, y) is
//
//	(y - YStart) + (x - XStart) * height
//
// where height is the number of rows in the region. A Model is safe for
// concurrent reads. SetRegion must not be called concurrently with any
// other method.
type Model struct {
	region Region
	layers []*raster.Layer
	index  map[string]int
}

// New creates a new grid world over region with the given layers. Layer
// names must be unique; their order is the default column order of the
// feature matrix.
func New(region Region, layers ...*raster.Layer) (*Model, error) {
	index := make(map[string]int, len(layers))
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("new: layer %d is nil", i)
		}
		if _, ok := index[l.Name()]; ok {
			return nil, fmt.Errorf("new: duplicate layer %v", l.Name())
		}
		index[l.Name()] = i
	}

	m := &Model{layers: layers, index: index}
	if err := m.SetRegion(region); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return m, nil
}

// SetRegion replaces the region of the model. State ids and feature
// matrices computed before the call refer to the old region and must be
// recomputed.
func (m *Model) SetRegion(r Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, l := range m.layers {
		width, height, ok := l.Extent()
		if !ok {
			continue
		}
		if r.XEnd >= width || r.YEnd >= height {
			return fmt.Errorf("region %v exceeds %dx%d layer %v: %w", r,
				width, height, l.Name(), ErrBadRegion)
		}
	}
	m.region = r
	return nil
}

// Region returns the region of the model
func (m *Model) Region() Region {
	return m.region
}

// Shape returns the number of rows and columns of the region
func (m *Model) Shape() (height, width int) {
	return m.region.Shape()
}

// NumStates returns the number of pixels in the region
func (m *Model) NumStates() int {
	return m.region.Len()
}

// IndexOf returns the state id of pixel (x, y). IndexOf does not check
// that (x, y) lies in the region; use State for checked access.
func (m *Model) IndexOf(x, y int) int {
	height, _ := m.Shape()
	return (y - m.region.YStart) + (x-m.region.XStart)*height
}

// CoordOf returns the pixel of state id, the inverse of IndexOf
func (m *Model) CoordOf(id int) pixel.Coord {
	height, _ := m.Shape()
	return pixel.New(m.region.XStart+id/height, m.region.YStart+id%height)
}

// State returns the state of pixel c. The state is out of range if c lies
// outside the region or any layer has no bucket at c.
func (m *Model) State(c pixel.Coord) environment.State {
	if !m.region.Contains(c) {
		return environment.OutOfRange()
	}
	for _, l := range m.layers {
		if !l.BucketAt(c.X, c.Y).Valid() {
			return environment.OutOfRange()
		}
	}
	return environment.ValidState(m.IndexOf(c.X, c.Y))
}

// Names returns the layer names in insertion order
func (m *Model) Names() []string {
	names := make([]string, len(m.layers))
	for i, l := range m.layers {
		names[i] = l.Name()
	}
	return names
}

// Layer returns the layer called name
func (m *Model) Layer(name string) (*raster.Layer, error) {
	i, ok := m.index[name]
	if !ok {
		return nil, fmt.Errorf("layer %v: %w", name, ErrUnknownFeature)
	}
	return m.layers[i], nil
}

// Bucket returns the bucket of feature name at pixel (x, y)
func (m *Model) Bucket(name string, x, y int) (raster.Bucket, error) {
	l, err := m.Layer(name)
	if err != nil {
		return raster.OutOfRangeBucket(), err
	}
	return l.BucketAt(x, y), nil
}

// FeatureMatrix returns a matrix with one row per state, in state id
// order, and one column per requested feature holding the feature's
// bucket at the state's pixel. Features without a bucket at a pixel are
// stored as Unbucketed. If no names are given, all layers are used in
// insertion order.
func (m *Model) FeatureMatrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = m.Names()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("featureMatrix: model has no layers: %w",
			ErrUnknownFeature)
	}

	layers := make([]*raster.Layer, len(names))
	for i, name := range names {
		l, err := m.Layer(name)
		if err != nil {
			return nil, fmt.Errorf("featureMatrix: %w", err)
		}
		layers[i] = l
	}

	features := mat.NewDense(m.NumStates(), len(layers), nil)
	for id := 0; id < m.NumStates(); id++ {
		c := m.CoordOf(id)
		for j, l := range layers {
			if b, ok := l.BucketAt(c.X, c.Y).Get(); ok {
				features.Set(id, j, float64(b))
			} else {
				features.Set(id, j, Unbucketed)
			}
		}
	}
	return features, nil
}

// ReshapeRewards lays a vector of per-state values out as a height x
// width matrix, the inverse of the column-major state numbering, so that
// element (r, c) holds the value of pixel (XStart+c, YStart+r)
func (m *Model) ReshapeRewards(values []float64) (*mat.Dense, error) {
	if len(values) != m.NumStates() {
		return nil, fmt.Errorf("reshapeRewards: %d values for %d states",
			len(values), m.NumStates())
	}

	height, width := m.Shape()
	rewards := mat.NewDense(height, width, nil)
	for id, v := range values {
		c := m.CoordOf(id)
		rewards.Set(c.Y-m.region.YStart, c.X-m.region.XStart, v)
	}
	return rewards, nil
}

// Spec describes the state space of the model
func (m *Model) Spec() environment.Spec {
	features := make([]environment.FeatureSpec, len(m.layers))
	for i, l := range m.layers {
		features[i] = environment.FeatureSpec{Name: l.Name(),
			Buckets: l.Buckets()}
	}
	height, width := m.Shape()
	return environment.NewSpec(height, width, features)
}

func (m *Model) String() string {
	height, width := m.Shape()
	str := "GridWorld | Region: %v  |  Shape: (%d, %d)  |  Features: [%v]"
	return fmt.Sprintf(str, m.region, height, width,
		strings.Join(m.Names(), " "))
}
