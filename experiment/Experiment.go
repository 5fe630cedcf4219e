// Package experiment implements the pipeline that turns tracks of GPS
// fixes into the episodes and feature matrix handed to a reward learner
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gridtrack/environment"
	"github.com/samuelfneumann/gridtrack/environment/envconfig"
	"github.com/samuelfneumann/gridtrack/environment/gridworld"
	"github.com/samuelfneumann/gridtrack/episode"
	"github.com/samuelfneumann/gridtrack/experiment/savers"
	"github.com/samuelfneumann/gridtrack/fixes"
	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/raster"
	"github.com/samuelfneumann/gridtrack/timestep"
)

// File names written by Result.Save
const (
	FeaturesFile = "features.npy"
	ManifestFile = "manifest.json"
)

// Result holds everything a reward learner needs from one run: the state
// space, the feature matrix, the episodes and their terminal states
type Result struct {
	Spec        environment.Spec
	Features    *mat.Dense
	Episodes    []timestep.Episode
	Terminals   []int
	Hyperparams envconfig.Hyperparams
}

// Manifest is the JSON summary of a Result written next to its arrays
type Manifest struct {
	Spec        environment.Spec      `json:"spec"`
	Features    []string              `json:"features"`
	Episodes    int                   `json:"episodes"`
	Terminals   []int                 `json:"terminals"`
	Hyperparams envconfig.Hyperparams `json:"hyperparams"`
}

// Run encodes the tracks into episodes of model and builds the feature
// matrix of model. Encoding diagnostics are written to logger; a nil
// logger means log.Default().
func Run(ctx context.Context, cfg *envconfig.Config, model *gridworld.Model,
	tracks []fixes.Track, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Default()
	}

	proj, err := cfg.Projection()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	tb, err := cfg.TieBreakStrategy()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	enc, err := episode.New(model, proj, tb, logger)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	episodes, err := enc.EncodeAll(ctx, tracks, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	features, err := model.FeatureMatrix()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	terminals := make([]int, len(episodes))
	for i, ep := range episodes {
		terminals[i] = ep.Terminal()
	}

	logger.Printf("experiment: %d of %d tracks encoded into %v",
		len(episodes), len(tracks), model)
	if n := offMap(proj, tracks); n > 0 {
		logger.Printf("experiment: %d fixes lie outside the calibrated map", n)
	}
	if v := enc.Violations(); v > 0 {
		logger.Printf("experiment: dropped %d transitions that were not "+
			"unit moves", v)
	}
	for _, name := range model.Names() {
		l, err := model.Layer(name)
		if err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		if n := l.OutOfBounds(); n > 0 {
			logger.Printf("experiment: %d reads outside the %v raster", n,
				name)
		}
	}

	return &Result{
		Spec:        model.Spec(),
		Features:    features,
		Episodes:    episodes,
		Terminals:   terminals,
		Hyperparams: cfg.Hyperparams,
	}, nil
}

// offMap counts the fixes of tracks that proj does not cover
func offMap(proj *projection.Projection, tracks []fixes.Track) int {
	n := 0
	for _, tr := range tracks {
		for _, f := range tr.Fixes {
			if !proj.Covers(f.Lat, f.Lon) {
				n++
			}
		}
	}
	return n
}

// Manifest returns the JSON summary of the result
func (r *Result) Manifest() Manifest {
	names := make([]string, len(r.Spec.Features))
	for i, f := range r.Spec.Features {
		names[i] = f.Name
	}
	return Manifest{
		Spec:        r.Spec,
		Features:    names,
		Episodes:    len(r.Episodes),
		Terminals:   r.Terminals,
		Hyperparams: r.Hyperparams,
	}
}

// Save writes the feature matrix and the manifest into dir, creating it
// if needed, and hands every episode to each saver before saving it
func (r *Result) Save(dir string, s ...savers.Saver) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	rows, cols := r.Features.Dims()
	backing := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		backing = append(backing, r.Features.RawRowView(i)...)
	}
	t := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
	if err := raster.WriteTensor(filepath.Join(dir, FeaturesFile), t); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	manifest, err := json.MarshalIndent(r.Manifest(), "", "\t")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	err = os.WriteFile(filepath.Join(dir, ManifestFile),
		append(manifest, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	for _, saver := range s {
		for _, ep := range r.Episodes {
			saver.Track(ep)
		}
		if err := saver.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// LoadManifest reads the manifest saved into dir
func LoadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, fmt.Errorf("loadManifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("loadManifest: %w", err)
	}
	return m, nil
}
