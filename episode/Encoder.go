// Package episode encodes GPS tracks into grid-world episodes
package episode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/samuelfneumann/gridtrack/environment"
	"github.com/samuelfneumann/gridtrack/fixes"
	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/timestep"
	"github.com/samuelfneumann/gridtrack/trajectory"
)

// ErrContractViolation is logged when two consecutive pixels of a dense
// path are not a unit move apart. The transition is dropped and never
// emitted.
var ErrContractViolation = errors.New("dense path is not a unit move")

// Encoder turns tracks of GPS fixes into episodes of a grid world.
//
// A track is projected onto pixels and densified into unit moves. The
// episode starts at the first pixel with a valid state and ends at the
// last pixel before the track leaves the state space again, or at the
// end of the track. Tracks that never make a single move inside the
// state space produce no episode.
//
// An Encoder is safe for concurrent use by EncodeAll. Encode and
// EncodePixels are safe for concurrent use unless the encoder was created
// with a trajectory.Random tie-break.
type Encoder struct {
	model    environment.Model
	proj     *projection.Projection
	tieBreak trajectory.TieBreak
	logger   *log.Logger

	violations atomic.Int64
}

// New creates a new Encoder over model. A nil tieBreak selects
// trajectory.XFirst and a nil logger log.Default().
func New(model environment.Model, proj *projection.Projection,
	tieBreak trajectory.TieBreak, logger *log.Logger) (*Encoder, error) {
	if model == nil {
		return nil, fmt.Errorf("new: nil model")
	}
	if proj == nil {
		return nil, fmt.Errorf("new: nil projection")
	}
	if tieBreak == nil {
		tieBreak = trajectory.XFirst
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Encoder{model: model, proj: proj, tieBreak: tieBreak,
		logger: logger}, nil
}

// Violations returns the number of dropped transitions that were not
// unit moves
func (e *Encoder) Violations() int64 {
	return e.violations.Load()
}

// EncodePixels encodes a dense pixel path. The returned bool is false if
// no step was emitted, in which case the episode is nil.
//
// Pixels are walked in order. Until the first step is emitted, pixels
// without a valid state are skipped and the walk restarts from the next
// valid pixel. After that, the first pixel without a valid state ends the
// episode. The last emitted step is marked done.
func (e *Encoder) EncodePixels(path []pixel.Coord) (timestep.Episode, bool) {
	var (
		ep       timestep.Episode
		anchor   pixel.Coord
		anchorID int
		anchored bool
	)

	for i, c := range path {
		id, ok := e.model.State(c).Get()
		if !ok {
			if len(ep) > 0 {
				break
			}
			anchored = false
			continue
		}

		if !anchored {
			anchor, anchorID, anchored = c, id, true
			continue
		}

		dx, dy := c.Sub(anchor)
		action, ok := timestep.Classify(dx, dy)
		if !ok {
			e.violations.Add(1)
			e.logger.Printf("episode: %v -> %v at %d: %v", anchor, c, i,
				ErrContractViolation)
			if len(ep) > 0 {
				break
			}
			anchor, anchorID = c, id
			continue
		}

		ep = append(ep, timestep.New(anchorID, action, id, 0))
		anchor, anchorID = c, id
	}

	if len(ep) == 0 {
		return nil, false
	}
	ep[len(ep)-1].Done = true
	return ep, true
}

// Encode projects and densifies a single track of fixes and encodes it.
// Encode panics if a fix lies at or beyond a pole; see
// projection.Validate.
func (e *Encoder) Encode(track []fixes.Fix) (timestep.Episode, bool) {
	return e.encode(track, e.tieBreak)
}

func (e *Encoder) encode(track []fixes.Fix,
	tb trajectory.TieBreak) (timestep.Episode, bool) {
	path := make([]pixel.Coord, len(track))
	for i, f := range track {
		path[i] = e.proj.Project(f.Lat, f.Lon)
	}
	return e.EncodePixels(trajectory.Interpolate(path, tb))
}

// tieBreakFor returns the tie-break used for the i-th track of a batch.
// Random tie-breaks are reseeded per track so that results do not depend
// on scheduling.
func (e *Encoder) tieBreakFor(i int) trajectory.TieBreak {
	if r, ok := e.tieBreak.(*trajectory.Random); ok {
		return trajectory.NewRandom(r.Seed() + uint64(i))
	}
	return e.tieBreak
}

// EncodeAll encodes many tracks concurrently using at most workers
// goroutines, or GOMAXPROCS goroutines if workers < 1. Episodes are
// returned in track order, with tracks that produced no episode left
// out. EncodeAll returns an error wrapping projection.ErrOutOfDomain if
// any fix cannot be projected, and the context's error if it is done
// before all tracks are encoded.
func (e *Encoder) EncodeAll(ctx context.Context,
	tracks []fixes.Track, workers int) ([]timestep.Episode, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	episodes := make([]timestep.Episode, len(tracks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, track := range tracks {
		i, track := i, track
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			for _, f := range track.Fixes {
				if err := projection.Validate(f.Lat, f.Lon); err != nil {
					return fmt.Errorf("encodeAll: track %v: %w",
						track.Animal, err)
				}
			}

			if ep, ok := e.encode(track.Fixes, e.tieBreakFor(i)); ok {
				episodes[i] = ep
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	kept := episodes[:0]
	for _, ep := range episodes {
		if ep != nil {
			kept = append(kept, ep)
		}
	}
	return kept, nil
}
