package environment

import (
	"fmt"
	"strings"
)

// NumActions is the size of the action alphabet: four unit moves and
// staying in place
const NumActions = 5

// FeatureSpec describes a single column of a feature matrix
type FeatureSpec struct {
	Name    string `json:"name"`
	Buckets int    `json:"buckets"`
}

// Spec describes a state space to a reward learner: the rectangular
// shape of the grid, the number of states and actions, and the feature
// columns available for each state. States are laid out column-major
// over the (Height, Width) grid.
type Spec struct {
	Height   int           `json:"height"`
	Width    int           `json:"width"`
	States   int           `json:"states"`
	Actions  int           `json:"actions"`
	Features []FeatureSpec `json:"features"`
}

// NewSpec constructs a new state space specification
func NewSpec(height, width int, features []FeatureSpec) Spec {
	if height <= 0 || width <= 0 {
		panic(fmt.Sprintf("newSpec: shape (%d, %d) must be positive", height,
			width))
	}
	return Spec{
		Height:   height,
		Width:    width,
		States:   height * width,
		Actions:  NumActions,
		Features: features,
	}
}

func (s Spec) String() string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = fmt.Sprintf("%v(%d)", f.Name, f.Buckets)
	}
	return fmt.Sprintf("Spec | Shape: (%d, %d)  |  States: %d  |  "+
		"Actions: %d  |  Features: [%v]", s.Height, s.Width, s.States,
		s.Actions, strings.Join(names, " "))
}
