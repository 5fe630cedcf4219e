package experiment

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gridtrack/environment/gridworld"
	"github.com/samuelfneumann/gridtrack/raster"
)

// RewardFilename returns the name under which a reward vector learned
// over a height x width region at time t is stored
func RewardFilename(height, width int, t time.Time) string {
	return fmt.Sprintf("rewards_%dx%d_%v.npy", height, width,
		t.Format("2006-01-02_15-04-05"))
}

// LoadRewards reads a reward vector with one value per state of model
// and lays it out over the model's region
func LoadRewards(path string, model *gridworld.Model) (*mat.Dense, error) {
	values, err := raster.ReadVector(path)
	if err != nil {
		return nil, fmt.Errorf("loadRewards: %w", err)
	}
	rewards, err := model.ReshapeRewards(values)
	if err != nil {
		return nil, fmt.Errorf("loadRewards: %v: %w", path, err)
	}
	return rewards, nil
}

// Summary describes the range of a reward map
type Summary struct {
	Min, Max, Mean float64
	ArgMax         int
}

// Summarise returns the summary of a reward map. ArgMax is the index of
// the largest reward in row-major order.
func Summarise(rewards mat.Matrix) Summary {
	rows, cols := rewards.Dims()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			values = append(values, rewards.At(i, j))
		}
	}
	return Summary{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   floats.Sum(values) / float64(len(values)),
		ArgMax: floats.MaxIdx(values),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("Rewards | Min: %.4f  |  Max: %.4f  |  Mean: %.4f",
		s.Min, s.Max, s.Mean)
}
