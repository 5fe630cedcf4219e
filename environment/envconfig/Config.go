// Package envconfig provides the JSON serializable configuration of a
// grid world: its region, its feature layers, the GPS data it is fed and
// the hyperparameters handed to the reward learner.
package envconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/gridtrack/environment/gridworld"
	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/raster"
	"github.com/samuelfneumann/gridtrack/raster/coastline"
	"github.com/samuelfneumann/gridtrack/raster/population"
	"github.com/samuelfneumann/gridtrack/trajectory"
)

// MaxFileSize is the largest configuration file Load accepts
const MaxFileSize = 1 << 20

// ErrInvalidConfig is wrapped by every validation error
var ErrInvalidConfig = errors.New("invalid configuration")

// Derivation names how a feature layer is derived from other data
type Derivation string

// Derivations available for configuration
const (
	// Coastline layers hold the distance to the coast of the land mask
	// of the feature named by Source
	Coastline Derivation = "coastline"

	// Population layers hold the population density of the city table
	// in File
	Population Derivation = "population"
)

// Feature configures one feature layer. Plain features are read from the
// numpy file File. Min and Max must be given together; when absent the
// bounds are derived from the layer's values.
type Feature struct {
	Name    string     `json:"name"`
	Buckets int        `json:"buckets"`
	File    string     `json:"file,omitempty"`
	Min     *float64   `json:"min,omitempty"`
	Max     *float64   `json:"max,omitempty"`
	Derive  Derivation `json:"derive,omitempty"`
	Source  string     `json:"source,omitempty"`
}

func (f Feature) String() string {
	var from string
	switch f.Derive {
	case Coastline:
		from = fmt.Sprintf("coastline of %v", f.Source)
	case Population:
		from = fmt.Sprintf("population of %v", f.File)
	default:
		from = f.File
	}

	str := fmt.Sprintf("%v | Buckets: %d  |  From: %v", f.Name, f.Buckets,
		from)
	if b := f.bounds(); b != nil {
		str += fmt.Sprintf("  |  Bounds: [%v, %v]", b.Min, b.Max)
	}
	return str
}

// bounds returns the explicit bounds of the feature, or nil
func (f Feature) bounds() *r1.Interval {
	if f.Min == nil || f.Max == nil {
		return nil
	}
	return &r1.Interval{Min: *f.Min, Max: *f.Max}
}

// Hyperparams are passed through to the external reward learner
type Hyperparams struct {
	LearningRate float64 `json:"learning_rate"`
	Discount     float64 `json:"discount"`
	Iterations   int     `json:"iterations"`
}

// DefaultHyperparams returns the default learner hyperparameters
func DefaultHyperparams() Hyperparams {
	return Hyperparams{LearningRate: 0.02, Discount: 0.8, Iterations: 20}
}

// Config is the configuration of a grid world and of the tracks encoded
// into it
type Config struct {
	Region      gridworld.Region        `json:"region"`
	Calibration *projection.Calibration `json:"calibration,omitempty"`
	Features    []Feature               `json:"features"`
	Hyperparams Hyperparams             `json:"hyperparams"`
	DataFile    string                  `json:"data_file"`
	TieBreak    string                  `json:"tie_break,omitempty"`
	Seed        uint64                  `json:"seed,omitempty"`
	Workers     int                     `json:"workers,omitempty"`
	MaxRadius   int                     `json:"max_radius,omitempty"`
	Kernel      *population.Kernel      `json:"kernel,omitempty"`

	// dir is the directory relative file names are resolved against
	dir string
}

func float(v float64) *float64 {
	return &v
}

// Default returns the configuration of the turkey vulture study area
func Default() *Config {
	return &Config{
		Region: gridworld.Region{XStart: 275, XEnd: 325, YStart: 475,
			YEnd: 525},
		Features: []Feature{
			{Name: "water", Buckets: 2, File: "ocean_or_land.npy",
				Min: float(0), Max: float(1)},
			{Name: "coast", Buckets: 10, Derive: Coastline, Source: "water"},
			{Name: "elevation", Buckets: 10, File: "elevation.npy"},
		},
		Hyperparams: DefaultHyperparams(),
		DataFile:    "turkey_vultures.csv",
	}
}

// Load reads and validates the configuration at path. Relative file
// names in the configuration are resolved against the directory of path.
// Missing hyperparameters take their default values.
func Load(path string) (*Config, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return nil, fmt.Errorf("load: config file must have .json "+
			"extension, got %q", ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("load: config file too large: %d bytes "+
			"(max %d)", info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	c := &Config{Hyperparams: DefaultHyperparams()}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("load: parse %v: %w", clean, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	c.dir = filepath.Dir(clean)
	return c, nil
}

// Save writes the configuration to path as indented JSON. An existing
// file at path is first copied to path.bak.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := os.WriteFile(path+".bak", existing, 0o644); err != nil {
			return fmt.Errorf("save: could not write backup: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("save: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Validate returns an error wrapping ErrInvalidConfig if the
// configuration cannot create a grid world
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%v: %w", fmt.Sprintf(format, args...),
			ErrInvalidConfig)
	}

	if err := c.Region.Validate(); err != nil {
		return invalid("%v", err)
	}
	if c.Calibration != nil {
		if err := c.Calibration.Validate(); err != nil {
			return invalid("%v", err)
		}
	}
	if len(c.Features) == 0 {
		return invalid("no features")
	}

	declared := make(map[string]Feature, len(c.Features))
	for i, f := range c.Features {
		if f.Name == "" {
			return invalid("feature %d has no name", i)
		}
		if _, ok := declared[f.Name]; ok {
			return invalid("duplicate feature %v", f.Name)
		}
		if f.Buckets < 1 {
			return invalid("feature %v: %d buckets", f.Name, f.Buckets)
		}
		if (f.Min == nil) != (f.Max == nil) {
			return invalid("feature %v: min and max must be given together",
				f.Name)
		}
		if b := f.bounds(); b != nil && b.Min > b.Max {
			return invalid("feature %v: min %v > max %v", f.Name, b.Min,
				b.Max)
		}

		switch f.Derive {
		case "", Population:
			if f.File == "" {
				return invalid("feature %v: no file", f.Name)
			}
		case Coastline:
			source, ok := declared[f.Source]
			if !ok {
				return invalid("feature %v: source %q must be declared "+
					"before it", f.Name, f.Source)
			}
			if source.Derive != "" {
				return invalid("feature %v: source %v is not read from a "+
					"file", f.Name, f.Source)
			}
		default:
			return invalid("feature %v: unknown derivation %q", f.Name,
				f.Derive)
		}
		declared[f.Name] = f
	}

	h := c.Hyperparams
	if !(h.LearningRate > 0) {
		return invalid("learning rate %v must be positive", h.LearningRate)
	}
	if h.Discount < 0 || h.Discount > 1 {
		return invalid("discount %v outside [0, 1]", h.Discount)
	}
	if h.Iterations < 1 {
		return invalid("%d iterations", h.Iterations)
	}

	if _, err := trajectory.ParseTieBreak(c.TieBreak, c.Seed); err != nil {
		return invalid("%v", err)
	}
	if c.Workers < 0 {
		return invalid("%d workers", c.Workers)
	}
	if c.MaxRadius < 0 {
		return invalid("max radius %d", c.MaxRadius)
	}
	if c.Kernel != nil {
		if err := c.Kernel.Validate(); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

// SetRegion replaces the region of the configuration
func (c *Config) SetRegion(r gridworld.Region) error {
	previous := c.Region
	c.Region = r
	if err := c.Validate(); err != nil {
		c.Region = previous
		return fmt.Errorf("setRegion: %w", err)
	}
	return nil
}

// SetBuckets changes the bucket count of feature name
func (c *Config) SetBuckets(name string, buckets int) error {
	i, err := c.feature(name)
	if err != nil {
		return err
	}
	if buckets < 1 {
		return fmt.Errorf("setBuckets %v: %d: %w", name, buckets,
			raster.ErrBadBuckets)
	}
	previous := c.Features[i].Buckets
	c.Features[i].Buckets = buckets
	if err := c.Validate(); err != nil {
		c.Features[i].Buckets = previous
		return fmt.Errorf("setBuckets %v: %w", name, err)
	}
	return nil
}

// AddFeature appends a feature to the configuration
func (c *Config) AddFeature(f Feature) error {
	if _, err := c.feature(f.Name); err == nil {
		return fmt.Errorf("addFeature: duplicate feature %v", f.Name)
	}
	c.Features = append(c.Features, f)
	if err := c.Validate(); err != nil {
		c.Features = c.Features[:len(c.Features)-1]
		return fmt.Errorf("addFeature: %w", err)
	}
	return nil
}

// RemoveFeature removes feature name. Features other features are
// derived from cannot be removed, nor can the last feature.
func (c *Config) RemoveFeature(name string) error {
	i, err := c.feature(name)
	if err != nil {
		return err
	}
	for _, f := range c.Features {
		if f.Derive == Coastline && f.Source == name {
			return fmt.Errorf("removeFeature: %v is the source of %v", name,
				f.Name)
		}
	}
	previous := c.Features
	c.Features = append(append([]Feature(nil), c.Features[:i]...),
		c.Features[i+1:]...)
	if err := c.Validate(); err != nil {
		c.Features = previous
		return fmt.Errorf("removeFeature: %w", err)
	}
	return nil
}

func (c *Config) feature(name string) (int, error) {
	for i, f := range c.Features {
		if f.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("feature %v: %w", name, gridworld.ErrUnknownFeature)
}

// Resolve returns path relative to the directory the configuration was
// loaded from
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Projection returns the projection of the configured calibration, or
// of the default calibration if none is configured
func (c *Config) Projection() (*projection.Projection, error) {
	cal := projection.DefaultCalibration()
	if c.Calibration != nil {
		cal = *c.Calibration
	}
	return projection.New(cal)
}

// TieBreakStrategy returns the configured interpolation tie-break
func (c *Config) TieBreakStrategy() (trajectory.TieBreak, error) {
	return trajectory.ParseTieBreak(c.TieBreak, c.Seed)
}

// Create loads every feature layer and returns the grid world they
// describe. Raster files are read eagerly, and a file that cannot be
// read is an error wrapping raster.ErrMissingRaster. The context bounds
// the derivation of coastline layers. A nil logger means log.Default().
// A region that is not on the calibrated map wraps gridworld.ErrBadRegion.
func (c *Config) Create(ctx context.Context,
	logger *log.Logger) (*gridworld.Model, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	proj, err := c.Projection()
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	r := c.Region
	if !proj.InBounds(pixel.New(r.XStart, r.YStart)) ||
		!proj.InBounds(pixel.New(r.XEnd, r.YEnd)) {
		return nil, fmt.Errorf("create: region %v is not on the %v: %w", r,
			proj, gridworld.ErrBadRegion)
	}

	grids := make(map[string]*raster.Grid, len(c.Features))
	layers := make([]*raster.Layer, 0, len(c.Features))
	for _, f := range c.Features {
		layer, err := c.createLayer(ctx, logger, f, grids)
		if err != nil {
			return nil, fmt.Errorf("create: feature %v: %w", f.Name, err)
		}
		logger.Printf("envconfig: %v", layer)
		grids[f.Name] = layer.Grid()
		layers = append(layers, layer)
	}

	return gridworld.New(c.Region, layers...)
}

func (c *Config) createLayer(ctx context.Context, logger *log.Logger,
	f Feature, grids map[string]*raster.Grid) (*raster.Layer, error) {
	var grid *raster.Grid

	switch f.Derive {
	case "":
		g, err := raster.LoadNpy(c.Resolve(f.File))
		if err != nil {
			return nil, err
		}
		grid = g

	case Coastline:
		builder := &coastline.Builder{MaxRadius: c.MaxRadius, Logger: logger}
		g, err := builder.Build(ctx, raster.LandMask(grids[f.Source]))
		if err != nil {
			return nil, err
		}
		if f.bounds() == nil {
			return coastline.Layer(f.Name, f.Buckets, g)
		}
		grid = g

	case Population:
		g, err := c.populationGrid(f)
		if err != nil {
			return nil, err
		}
		grid = g
	}

	if b := f.bounds(); b != nil {
		return raster.NewLayerWithBounds(f.Name, f.Buckets, grid, *b)
	}
	return raster.NewLayer(f.Name, f.Buckets, grid)
}

func (c *Config) populationGrid(f Feature) (*raster.Grid, error) {
	proj, err := c.Projection()
	if err != nil {
		return nil, err
	}

	file, err := os.Open(c.Resolve(f.File))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, raster.ErrMissingRaster)
	}
	defer file.Close()

	cities, err := population.ReadCities(file, proj)
	if err != nil {
		return nil, err
	}

	kernel := population.DefaultKernel()
	if c.Kernel != nil {
		kernel = *c.Kernel
	}
	cal := proj.Calibration()
	return population.Build(cal.Width, cal.Height, cities, kernel)
}

func (c *Config) String() string {
	return fmt.Sprintf("Config | Region: %v  |  Features: %d  |  Data: %v",
		c.Region, len(c.Features), c.DataFile)
}
