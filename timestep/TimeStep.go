// Package timestep implements the transitions and episodes an encoded
// trajectory is made of
package timestep

import (
	"errors"
	"fmt"
)

// ErrBadEpisode is returned by Validate for malformed episodes
var ErrBadEpisode = errors.New("malformed episode")

// Action is a move between two neighbouring pixels
type Action int

const (
	Right Action = iota
	Left
	Down
	Up
	Stay
)

func (a Action) String() string {
	switch a {
	case Right:
		return "Right"
	case Left:
		return "Left"
	case Down:
		return "Down"
	case Up:
		return "Up"
	case Stay:
		return "Stay"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Classify returns the action moving a pixel by (dx, dy). Rows grow
// downward, so a negative dy is Up. The returned bool is false if the
// move is not a unit move along at most one axis.
func Classify(dx, dy int) (Action, bool) {
	switch {
	case dx == 0 && dy == 0:
		return Stay, true
	case dy == 0 && dx == 1:
		return Right, true
	case dy == 0 && dx == -1:
		return Left, true
	case dx == 0 && dy == 1:
		return Down, true
	case dx == 0 && dy == -1:
		return Up, true
	}
	return Stay, false
}

// Step is a single transition between two states
type Step struct {
	CurState  int
	Action    Action
	NextState int
	Reward    float64
	Done      bool
}

// New returns a step from cur to next that is not the last of its
// episode
func New(cur int, a Action, next int, reward float64) Step {
	return Step{cur, a, next, reward, false}
}

func (s Step) String() string {
	str := "Step | %d --%v--> %d  |  Reward:  %.2f  |  Done: %v"
	return fmt.Sprintf(str, s.CurState, s.Action, s.NextState, s.Reward,
		s.Done)
}

// Episode is the sequence of transitions of one trajectory
type Episode []Step

// Len returns the number of steps in the episode
func (e Episode) Len() int {
	return len(e)
}

// Terminal returns the state the episode ends in. Terminal panics on an
// empty episode.
func (e Episode) Terminal() int {
	if len(e) == 0 {
		panic("terminal: empty episode")
	}
	return e[len(e)-1].NextState
}

// Validate returns an error if the episode is empty, if any step but the
// last is done, if the last is not done, or if a step does not start in
// the state the previous one ended in
func (e Episode) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("validate: empty: %w", ErrBadEpisode)
	}
	for i, step := range e {
		if last := i == len(e)-1; step.Done != last {
			return fmt.Errorf("validate: step %d done = %v: %w", i,
				step.Done, ErrBadEpisode)
		}
		if i > 0 && step.CurState != e[i-1].NextState {
			return fmt.Errorf("validate: step %d starts in %d, previous "+
				"ended in %d: %w", i, step.CurState, e[i-1].NextState,
				ErrBadEpisode)
		}
	}
	return nil
}

func (e Episode) String() string {
	if len(e) == 0 {
		return "Episode | Steps: 0"
	}
	return fmt.Sprintf("Episode | Steps: %d  |  Start: %d  |  Terminal: %d",
		len(e), e[0].CurState, e.Terminal())
}
