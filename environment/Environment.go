// Package environment outlines the interfaces and structs shared by the
// grid-world state spaces trajectories are encoded into
package environment

import (
	"fmt"

	"github.com/samuelfneumann/gridtrack/pixel"
)

// State is the state of a pixel in a bounded state space. A State is
// either valid, holding a state id, or out of range, meaning the pixel
// lies outside the state space or some feature has no value there.
type State struct {
	id    int
	valid bool
}

// ValidState returns the valid state with id
func ValidState(id int) State {
	return State{id: id, valid: true}
}

// OutOfRange returns the out of range state
func OutOfRange() State {
	return State{}
}

// Get returns the state id and whether the state is valid
func (s State) Get() (int, bool) {
	return s.id, s.valid
}

// Valid returns whether the state holds an id
func (s State) Valid() bool {
	return s.valid
}

func (s State) String() string {
	if !s.valid {
		return "OutOfRange"
	}
	return fmt.Sprintf("State(%d)", s.id)
}

// Model implements a finite state space laid over pixel coordinates.
// Implementations must be safe for concurrent reads.
type Model interface {
	// State returns the state of pixel c
	State(c pixel.Coord) State

	// NumStates returns the number of states; valid state ids lie in
	// [0, NumStates())
	NumStates() int

	// CoordOf returns the pixel of state id
	CoordOf(id int) pixel.Coord

	// Spec describes the state space
	Spec() Spec
}
