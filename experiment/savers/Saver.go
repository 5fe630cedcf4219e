// Package savers implements Savers, which track the episodes of an
// experiment and persist them once the experiment has finished
package savers

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/gridtrack/timestep"
)

// Saver keeps track of the episodes of an experiment and saves them
// after the experiment has finished
type Saver interface {
	Track(ep timestep.Episode)
	Save() error
}

// Gob tracks whole episodes and saves them gob encoded
type Gob struct {
	episodes []timestep.Episode
	filename string
}

// NewGob returns a new Gob saver which will save its data at filename
func NewGob(filename string) *Gob {
	return &Gob{filename: filename}
}

// Track caches a copy of the episode
func (g *Gob) Track(ep timestep.Episode) {
	g.episodes = append(g.episodes, append(timestep.Episode(nil), ep...))
}

// Save saves the tracked episodes to disk
func (g *Gob) Save() error {
	return encode(g.filename, g.episodes)
}

// LoadEpisodes loads the episodes saved by a Gob saver
func LoadEpisodes(filename string) ([]timestep.Episode, error) {
	var episodes []timestep.Episode
	if err := decode(filename, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

func encode(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not open save file: %w", err)
	}

	en := gob.NewEncoder(file)
	if err := en.Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("could not encode %v: %w", filename, err)
	}
	return file.Close()
}

func decode(filename string, data interface{}) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open data file: %w", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("could not decode %v: %w", filename, err)
	}
	return nil
}
