package raster

import (
	"bufio"
	"fmt"
	"os"

	"gorgonia.org/tensor"
)

// LoadNpy reads a 2-D numpy array file into a Grid. Any numeric dtype
// numpy writes is accepted and converted to float64; booleans become 0
// and 1.
func LoadNpy(path string) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadNpy: %v: %w", err, ErrMissingRaster)
	}
	defer file.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("loadNpy: decode %v: %v: %w", path, err,
			ErrMissingRaster)
	}

	return fromTensor(t)
}

// SaveNpy writes the grid to path as a float64 numpy array of shape
// (height, width)
func (g *Grid) SaveNpy(path string) error {
	width, height := g.Dims()
	backing := make([]float64, width*height)
	copy(backing, g.Values())
	t := tensor.New(tensor.WithShape(height, width),
		tensor.WithBacking(backing))

	return WriteTensor(path, t)
}

// WriteTensor writes a tensor to path in numpy format
func WriteTensor(path string, t *tensor.Dense) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeTensor: %w", err)
	}

	w := bufio.NewWriter(file)
	if err := t.WriteNpy(w); err != nil {
		file.Close()
		return fmt.Errorf("writeTensor: encode %v: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("writeTensor: %w", err)
	}
	return file.Close()
}

// ReadVector reads a numpy array file of any shape and returns its
// values flattened in storage order
func ReadVector(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readVector: %v: %w", err, ErrMissingRaster)
	}
	defer file.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("readVector: decode %v: %v: %w", path, err,
			ErrMissingRaster)
	}
	return toFloat64s(t.Data())
}

func fromTensor(t *tensor.Dense) (*Grid, error) {
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("fromTensor: shape %v: %w", shape, ErrBadShape)
	}

	data, err := toFloat64s(t.Data())
	if err != nil {
		return nil, err
	}
	return NewGridFrom(shape[1], shape[0], data)
}

func toFloat64s(data interface{}) ([]float64, error) {
	switch d := data.(type) {
	case []float64:
		out := make([]float64, len(d))
		copy(out, d)
		return out, nil
	case []float32:
		return convert(d), nil
	case []int:
		return convert(d), nil
	case []int8:
		return convert(d), nil
	case []int16:
		return convert(d), nil
	case []int32:
		return convert(d), nil
	case []int64:
		return convert(d), nil
	case []uint8:
		return convert(d), nil
	case []uint16:
		return convert(d), nil
	case []uint32:
		return convert(d), nil
	case []uint64:
		return convert(d), nil
	case []bool:
		out := make([]float64, len(d))
		for i, v := range d {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("toFloat64s: unsupported dtype %T: %w", data,
		ErrBadShape)
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func convert[T number](d []T) []float64 {
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = float64(v)
	}
	return out
}
