// Command gridtrack turns animal GPS tracks into the grid world episodes
// and feature matrix used to learn a reward function over a region
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var logger = log.New(os.Stderr, "", log.LstdFlags)

var rootCmd = &cobra.Command{
	Use:   "gridtrack",
	Short: "Encode animal GPS tracks as grid world episodes",
	Long: `gridtrack projects animal GPS tracks onto a calibrated base map,
discretises a rectangular region of the map into a grid world of bucketed
features and encodes each track as an episode of that grid world.

It also derives the coastline distance and population density rasters
that features may be built from.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(encodeCmd, coastCmd, populationCmd, configCmd,
		rewardsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
