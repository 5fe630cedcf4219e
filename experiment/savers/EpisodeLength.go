package savers

import (
	"github.com/samuelfneumann/gridtrack/timestep"
)

// EpisodeLength tracks and saves the lengths of the episodes in an
// experiment
type EpisodeLength struct {
	episodeLengths []int
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength saver which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	var saver EpisodeLength
	saver.filename = filename
	return &saver
}

// Track caches the number of steps in the episode
func (e *EpisodeLength) Track(ep timestep.Episode) {
	e.episodeLengths = append(e.episodeLengths, ep.Len())
}

// Save saves the data tracked by the EpisodeLength Saver to disk
func (e *EpisodeLength) Save() error {
	return encode(e.filename, e.episodeLengths)
}

// LoadLengths loads the episode lengths saved by an EpisodeLength saver
func LoadLengths(filename string) ([]int, error) {
	var lengths []int
	if err := decode(filename, &lengths); err != nil {
		return nil, err
	}
	return lengths, nil
}
