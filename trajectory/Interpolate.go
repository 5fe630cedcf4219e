// Package trajectory densifies pixel paths into sequences of unit moves
package trajectory

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/utils/intutils"
)

// TieBreak decides which axis moves first when the remaining distance to
// a destination is nonzero along both axes
type TieBreak interface {
	XFirst() bool
	fmt.Stringer
}

type xFirst struct{}

func (xFirst) XFirst() bool   { return true }
func (xFirst) String() string { return "x-first" }

type yFirst struct{}

func (yFirst) XFirst() bool   { return false }
func (yFirst) String() string { return "y-first" }

// XFirst always moves along x before y
var XFirst TieBreak = xFirst{}

// YFirst always moves along y before x
var YFirst TieBreak = yFirst{}

// Random picks the first axis uniformly at random for every diagonal
// move. Random is not safe for concurrent use.
type Random struct {
	seed uint64
	rng  *rand.Rand
}

// NewRandom returns a random tie-break seeded with seed
func NewRandom(seed uint64) *Random {
	return &Random{seed, rand.New(rand.NewSource(seed))}
}

// XFirst implements the TieBreak interface
func (r *Random) XFirst() bool {
	return r.rng.Intn(2) == 0
}

// Seed returns the seed the tie-break was created with
func (r *Random) Seed() uint64 {
	return r.seed
}

func (r *Random) String() string {
	return fmt.Sprintf("random(seed=%d)", r.seed)
}

// ParseTieBreak returns the tie-break called name: "x-first", "y-first"
// or "random". The empty name selects x-first. Seed is used only by the
// random tie-break.
func ParseTieBreak(name string, seed uint64) (TieBreak, error) {
	switch strings.ToLower(name) {
	case "", "x-first":
		return XFirst, nil
	case "y-first":
		return YFirst, nil
	case "random":
		return NewRandom(seed), nil
	}
	return nil, fmt.Errorf("parseTieBreak: unknown tie-break %q", name)
}

// Interpolate returns a dense path through every pixel of path such that
// consecutive pixels are exactly one pixel apart along exactly one axis.
// Between two fixes the path steps toward the destination along each axis
// with a remaining distance; when both axes have distance left, the
// diagonal move is split into two unit moves ordered by tb. Identical
// consecutive fixes contribute nothing. A nil tb selects XFirst.
func Interpolate(path []pixel.Coord, tb TieBreak) []pixel.Coord {
	if len(path) == 0 {
		return nil
	}
	if tb == nil {
		tb = XFirst
	}

	dense := []pixel.Coord{path[0]}
	last := path[0]
	for _, dest := range path[1:] {
		for !last.Equal(dest) {
			dx, dy := dest.Sub(last)
			sx, sy := intutils.Sign(dx), intutils.Sign(dy)

			switch {
			case sx != 0 && sy != 0:
				if tb.XFirst() {
					last = pixel.New(last.X+sx, last.Y)
					dense = append(dense, last)
					last = pixel.New(last.X, last.Y+sy)
				} else {
					last = pixel.New(last.X, last.Y+sy)
					dense = append(dense, last)
					last = pixel.New(last.X+sx, last.Y)
				}
			case sx != 0:
				last = pixel.New(last.X+sx, last.Y)
			default:
				last = pixel.New(last.X, last.Y+sy)
			}
			dense = append(dense, last)
		}
	}
	return dense
}
