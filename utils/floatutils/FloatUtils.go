// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// IsFinite returns whether value is neither NaN nor an infinity
func IsFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// FiniteRange returns the interval spanned by the finite values in a
// slice, ignoring every value equal to exclude. The returned bool is
// false if no value qualified.
func FiniteRange(values []float64, exclude float64) (r1.Interval, bool) {
	var (
		interval r1.Interval
		found    bool
	)
	for _, v := range values {
		if !IsFinite(v) || v == exclude {
			continue
		}
		if !found {
			interval = r1.Interval{Min: v, Max: v}
			found = true
			continue
		}
		interval.Min = math.Min(interval.Min, v)
		interval.Max = math.Max(interval.Max, v)
	}
	return interval, found
}
