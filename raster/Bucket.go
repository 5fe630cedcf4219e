package raster

import "fmt"

// Bucket is the discretised level of a feature value. A Bucket is either
// valid, holding an index in [0, buckets), or out of range, meaning the
// pixel had no usable measurement.
type Bucket struct {
	value int
	valid bool
}

// ValidBucket returns a valid bucket holding index v
func ValidBucket(v int) Bucket {
	return Bucket{value: v, valid: true}
}

// OutOfRangeBucket returns the out of range bucket
func OutOfRangeBucket() Bucket {
	return Bucket{}
}

// Get returns the bucket index and whether the bucket is valid
func (b Bucket) Get() (int, bool) {
	return b.value, b.valid
}

// Valid returns whether the bucket holds an index
func (b Bucket) Valid() bool {
	return b.valid
}

func (b Bucket) String() string {
	if !b.valid {
		return "OutOfRange"
	}
	return fmt.Sprintf("Bucket(%d)", b.value)
}
