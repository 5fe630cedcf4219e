package raster

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/gridtrack/utils/floatutils"
)

var (
	// ErrMissingBounds is returned when a layer without a backing raster
	// is created without an explicit value range
	ErrMissingBounds = errors.New("function layer requires explicit bounds")

	// ErrBadBuckets is returned for bucket counts below 1
	ErrBadBuckets = errors.New("bucket count must be at least 1")
)

// ValueFunc computes the value of a feature at pixel (x, y)
type ValueFunc func(x, y int) float64

// Layer is a named feature channel: a raster of values, or a function of
// the pixel coordinate, together with the parameters used to bucketise
// its values.
//
// Values are bucketised by normalising them into [0, 1] using the
// layer's bounds and scaling by buckets-1:
//
//	bucket = round((buckets - 1) * (value - min) / (max - min))
//
// Ties round half up, so with 2 buckets and bounds [0, 1] the value 0.5
// falls in bucket 1. Values outside the bounds are clipped into the
// first or last bucket.
//
// Layers are safe for concurrent reads. SetBuckets must not be called
// while other goroutines read the layer.
type Layer struct {
	name    string
	buckets int
	bounds  r1.Interval
	grid    *Grid
	fn      ValueFunc

	outOfBounds atomic.Int64
}

// NewLayer creates a layer backed by grid. The layer's bounds are
// derived from the finite values of the grid, ignoring Unknown.
func NewLayer(name string, buckets int, grid *Grid) (*Layer, error) {
	if grid == nil {
		return nil, fmt.Errorf("newLayer %v: nil grid: %w", name, ErrBadShape)
	}
	bounds, ok := floatutils.FiniteRange(grid.Values(), Unknown)
	if !ok {
		// No measurement at all, every pixel is out of range anyway
		bounds = r1.Interval{Min: 0, Max: 0}
	}
	return NewLayerWithBounds(name, buckets, grid, bounds)
}

// NewLayerWithBounds creates a layer backed by grid with an explicit
// value range, used for synthetic and derived layers
func NewLayerWithBounds(name string, buckets int, grid *Grid,
	bounds r1.Interval) (*Layer, error) {
	if grid == nil {
		return nil, fmt.Errorf("newLayer %v: nil grid: %w", name, ErrBadShape)
	}
	if err := validate(name, buckets, bounds); err != nil {
		return nil, err
	}
	return &Layer{name: name, buckets: buckets, bounds: bounds, grid: grid}, nil
}

// NewFuncLayer creates a layer whose values are computed by fn. Since no
// backing array exists to infer the value range from, bounds must be
// given; a nil bounds returns ErrMissingBounds.
func NewFuncLayer(name string, buckets int, fn ValueFunc,
	bounds *r1.Interval) (*Layer, error) {
	if fn == nil {
		return nil, fmt.Errorf("newFuncLayer %v: nil value function", name)
	}
	if bounds == nil {
		return nil, fmt.Errorf("newFuncLayer %v: %w", name, ErrMissingBounds)
	}
	if err := validate(name, buckets, *bounds); err != nil {
		return nil, err
	}
	return &Layer{name: name, buckets: buckets, bounds: *bounds, fn: fn}, nil
}

func validate(name string, buckets int, bounds r1.Interval) error {
	if name == "" {
		return fmt.Errorf("layer name must not be empty")
	}
	if buckets < 1 {
		return fmt.Errorf("layer %v: %d buckets: %w", name, buckets,
			ErrBadBuckets)
	}
	if !floatutils.IsFinite(bounds.Min) || !floatutils.IsFinite(bounds.Max) ||
		bounds.Min > bounds.Max {
		return fmt.Errorf("layer %v: invalid bounds [%v, %v]", name,
			bounds.Min, bounds.Max)
	}
	return nil
}

// Name returns the name of the layer
func (l *Layer) Name() string {
	return l.name
}

// Buckets returns the number of buckets values are discretised into
func (l *Layer) Buckets() int {
	return l.buckets
}

// SetBuckets changes the number of buckets of the layer
func (l *Layer) SetBuckets(buckets int) error {
	if buckets < 1 {
		return fmt.Errorf("setBuckets %v: %d: %w", l.name, buckets,
			ErrBadBuckets)
	}
	l.buckets = buckets
	return nil
}

// Bounds returns the value range used for normalisation
func (l *Layer) Bounds() r1.Interval {
	return l.bounds
}

// Grid returns the backing raster, or nil for function layers
func (l *Layer) Grid() *Grid {
	return l.grid
}

// Extent returns the size of the backing raster. The returned bool is
// false for function layers, which have no physical extent.
func (l *Layer) Extent() (width, height int, ok bool) {
	if l.grid == nil {
		return 0, 0, false
	}
	width, height = l.grid.Dims()
	return width, height, true
}

// Value returns the raw value at (x, y). The returned bool is false if
// (x, y) lies outside the backing raster, in which case the access is
// counted as an out of bounds read.
func (l *Layer) Value(x, y int) (float64, bool) {
	if l.fn != nil {
		return l.fn(x, y), true
	}
	if !l.grid.In(x, y) {
		l.outOfBounds.Add(1)
		return Unknown, false
	}
	return l.grid.At(x, y), true
}

// BucketAt returns the bucket of the value at (x, y)
func (l *Layer) BucketAt(x, y int) Bucket {
	v, ok := l.Value(x, y)
	if !ok {
		return OutOfRangeBucket()
	}
	return l.BucketOf(v)
}

// BucketOf returns the bucket a raw value falls into. The Unknown value
// and non-finite values have no bucket.
func (l *Layer) BucketOf(v float64) Bucket {
	if v == Unknown || !floatutils.IsFinite(v) {
		return OutOfRangeBucket()
	}

	span := l.bounds.Max - l.bounds.Min
	if span == 0 {
		return ValidBucket(0)
	}

	normal := (v - l.bounds.Min) / span
	bucket := math.Round(float64(l.buckets-1) * normal)
	bucket = floatutils.Clip(bucket, 0, float64(l.buckets-1))
	return ValidBucket(int(bucket))
}

// OutOfBounds returns the number of reads outside the backing raster
// since the layer was created
func (l *Layer) OutOfBounds() int64 {
	return l.outOfBounds.Load()
}

func (l *Layer) String() string {
	return fmt.Sprintf("%v feature with %d buckets  |  Bounds: [%v, %v]",
		l.name, l.buckets, l.bounds.Min, l.bounds.Max)
}
