package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/gridtrack/environment/envconfig"
	"github.com/samuelfneumann/gridtrack/environment/gridworld"
	"github.com/samuelfneumann/gridtrack/experiment"
	"github.com/samuelfneumann/gridtrack/experiment/savers"
	"github.com/samuelfneumann/gridtrack/fixes"
	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/raster"
	"github.com/samuelfneumann/gridtrack/raster/coastline"
	"github.com/samuelfneumann/gridtrack/raster/population"
	"github.com/samuelfneumann/gridtrack/utils/progressbar"
)

// Files written next to the feature matrix by the encode command
const (
	episodesFile = "episodes.gob"
	lengthsFile  = "lengths.gob"
)

var (
	// Encode flags
	encodeConfig   string
	encodeOut      string
	encodeSQLite   string
	encodeWorkers  int
	encodeAllFixes bool

	// Coast flags
	coastMask      string
	coastOut       string
	coastMaxRadius int
	coastTimeout   time.Duration

	// Population flags
	populationCities string
	populationOut    string
	populationConfig string
	populationRadius int
	populationSigma  float64

	// Config flags
	configPath    string
	configRegion  gridworld.Region
	configFeature string
	configBuckets int

	// Rewards flags
	rewardsConfig string
	rewardsFile   string
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode the configured GPS tracks as episodes",
	Long: `Encode loads the configured feature rasters, encodes every track of
the configured data file as an episode and writes the feature matrix, a
manifest and the episodes to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := envconfig.Load(encodeConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = encodeWorkers
		}

		model, err := cfg.Create(ctx, logger)
		if err != nil {
			return err
		}
		logger.Println(model)

		all, err := fixes.ReadFile(cfg.Resolve(cfg.DataFile))
		if err != nil {
			return err
		}
		if !encodeAllFixes {
			all = fixes.VisibleOnly(all)
		}
		tracks := fixes.ByAnimal(all)

		result, err := experiment.Run(ctx, cfg, model, tracks, logger)
		if err != nil {
			return err
		}

		s := []savers.Saver{
			savers.NewGob(filepath.Join(encodeOut, episodesFile)),
			savers.NewEpisodeLength(filepath.Join(encodeOut, lengthsFile)),
		}
		if encodeSQLite != "" {
			store, err := savers.NewSQLite(encodeSQLite, encodeConfig)
			if err != nil {
				return err
			}
			defer store.Close()
			s = append(s, store)
			logger.Printf("encode: writing run %v to %v", store.RunID(),
				encodeSQLite)
		}

		if err := result.Save(encodeOut, s...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d episodes written to %v\n",
			len(result.Episodes), encodeOut)
		return nil
	},
}

var coastCmd = &cobra.Command{
	Use:   "coast",
	Short: "Derive a coastline distance raster from a water mask",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if coastTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, coastTimeout)
			defer cancel()
		}

		grid, err := raster.LoadNpy(coastMask)
		if err != nil {
			return err
		}

		bar := progressbar.New(cmd.ErrOrStderr(), 50, 1)
		builder := &coastline.Builder{
			MaxRadius: coastMaxRadius,
			Progress:  bar.Callback(),
			Logger:    logger,
		}
		distances, err := builder.Build(ctx, raster.LandMask(grid))
		bar.Close()
		if err != nil {
			return err
		}
		return distances.SaveNpy(coastOut)
	},
}

var populationCmd = &cobra.Command{
	Use:   "population",
	Short: "Build a population density raster from a table of cities",
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := projection.New(projection.DefaultCalibration())
		if populationConfig != "" {
			cfg, cfgErr := envconfig.Load(populationConfig)
			if cfgErr != nil {
				return cfgErr
			}
			proj, err = cfg.Projection()
		}
		if err != nil {
			return err
		}

		file, err := os.Open(populationCities)
		if err != nil {
			return err
		}
		defer file.Close()

		cities, err := population.ReadCities(file, proj)
		if err != nil {
			return err
		}

		kernel := population.Kernel{Radius: populationRadius,
			Sigma: populationSigma}
		cal := proj.Calibration()
		grid, err := population.Build(cal.Width, cal.Height, cities, kernel)
		if err != nil {
			return err
		}
		logger.Printf("population: %d cities placed on %v", len(cities), grid)
		return grid.SaveNpy(populationOut)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit a configuration file",
	Long: `Commands for editing a configuration file. Every edit is validated
before it is saved, and the previous file is kept with a .bak suffix.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return envconfig.Default().Save(configPath)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := envconfig.Load(configPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, cfg)
		for _, f := range cfg.Features {
			fmt.Fprintf(out, "  %v\n", f)
		}
		return nil
	},
}

var configRegionCmd = &cobra.Command{
	Use:   "region",
	Short: "Set the region of the grid world",
	Long: `Region sets the bounds of the grid world. Bounds that are not given
keep their current value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConfig(func(cfg *envconfig.Config) error {
			return cfg.SetRegion(mergeRegion(cmd, cfg.Region))
		})
	},
}

var configBucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Set the number of buckets of a feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConfig(func(cfg *envconfig.Config) error {
			return cfg.SetBuckets(configFeature, configBuckets)
		})
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConfig(func(cfg *envconfig.Config) error {
			return cfg.RemoveFeature(configFeature)
		})
	},
}

// mergeRegion overwrites the bounds of r whose flags were set on cmd
func mergeRegion(cmd *cobra.Command, r gridworld.Region) gridworld.Region {
	bounds := []struct {
		flag  string
		dst   *int
		value int
	}{
		{"x-start", &r.XStart, configRegion.XStart},
		{"x-end", &r.XEnd, configRegion.XEnd},
		{"y-start", &r.YStart, configRegion.YStart},
		{"y-end", &r.YEnd, configRegion.YEnd},
	}
	for _, b := range bounds {
		if cmd.Flags().Changed(b.flag) {
			*b.dst = b.value
		}
	}
	return r
}

// editConfig applies edit to the configuration at configPath and saves it
func editConfig(edit func(*envconfig.Config) error) error {
	cfg, err := envconfig.Load(configPath)
	if err != nil {
		return err
	}
	if err := edit(cfg); err != nil {
		return err
	}
	return cfg.Save(configPath)
}

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Summarise a learned reward vector over the configured region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := envconfig.Load(rewardsConfig)
		if err != nil {
			return err
		}
		model, err := gridworld.New(cfg.Region)
		if err != nil {
			return err
		}

		rewards, err := experiment.LoadRewards(rewardsFile, model)
		if err != nil {
			return err
		}
		summary := experiment.Summarise(rewards)
		_, width := model.Shape()
		best := pixel.New(cfg.Region.XStart+summary.ArgMax%width,
			cfg.Region.YStart+summary.ArgMax/width)
		fmt.Fprintf(cmd.OutOrStdout(), "%v  |  Best: %v\n", summary, best)
		return nil
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeConfig, "config", "c", "config.json",
		"configuration file")
	encodeCmd.Flags().StringVarP(&encodeOut, "out", "o", "out",
		"output directory")
	encodeCmd.Flags().StringVar(&encodeSQLite, "sqlite", "",
		"episode store to add this run to")
	encodeCmd.Flags().IntVarP(&encodeWorkers, "workers", "w", 0,
		"tracks encoded concurrently (0 uses all CPUs)")
	encodeCmd.Flags().BoolVar(&encodeAllFixes, "all-fixes", false,
		"keep fixes flagged as not visible")

	coastCmd.Flags().StringVar(&coastMask, "mask", "ocean_or_land.npy",
		"water mask raster")
	coastCmd.Flags().StringVarP(&coastOut, "out", "o", "coast.npy",
		"output raster")
	coastCmd.Flags().IntVar(&coastMaxRadius, "max-radius", 0,
		"ring search radius before falling back to breadth-first search")
	coastCmd.Flags().DurationVar(&coastTimeout, "timeout", 0,
		"give up after this long (0 waits forever)")

	kernel := population.DefaultKernel()
	populationCmd.Flags().StringVar(&populationCities, "cities", "cities.csv",
		"table of city locations and populations")
	populationCmd.Flags().StringVarP(&populationOut, "out", "o",
		"population.npy", "output raster")
	populationCmd.Flags().StringVarP(&populationConfig, "config", "c", "",
		"configuration holding the map calibration")
	populationCmd.Flags().IntVar(&populationRadius, "radius", kernel.Radius,
		"half width of a city's footprint in pixels")
	populationCmd.Flags().Float64Var(&populationSigma, "sigma", kernel.Sigma,
		"standard deviation of a city's footprint in pixels")

	configCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		"config.json", "configuration file")
	configRegionCmd.Flags().IntVar(&configRegion.XStart, "x-start", 0,
		"first column (current value if omitted)")
	configRegionCmd.Flags().IntVar(&configRegion.XEnd, "x-end", 0,
		"last column (current value if omitted)")
	configRegionCmd.Flags().IntVar(&configRegion.YStart, "y-start", 0,
		"first row (current value if omitted)")
	configRegionCmd.Flags().IntVar(&configRegion.YEnd, "y-end", 0,
		"last row (current value if omitted)")
	for _, c := range []*cobra.Command{configBucketsCmd, configRemoveCmd} {
		c.Flags().StringVarP(&configFeature, "feature", "f", "",
			"feature name")
		c.MarkFlagRequired("feature")
	}
	configBucketsCmd.Flags().IntVarP(&configBuckets, "buckets", "b", 10,
		"number of buckets")
	configCmd.AddCommand(configInitCmd, configShowCmd, configRegionCmd,
		configBucketsCmd, configRemoveCmd)

	rewardsCmd.Flags().StringVarP(&rewardsConfig, "config", "c",
		"config.json", "configuration file")
	rewardsCmd.Flags().StringVarP(&rewardsFile, "file", "f", "",
		"reward vector")
	rewardsCmd.MarkFlagRequired("file")
}
