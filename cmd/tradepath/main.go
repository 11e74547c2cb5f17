// Package main is the tradepath command line: it replays historical prices
// through the per-frame best-first planner, serves the simulation API, and
// samples instrument universes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the tradepath CLI
var rootCmd = &cobra.Command{
	Use:   "tradepath",
	Short: "Backtest a best-first trading planner over historical prices",
	Long: `tradepath replays daily closing prices frame by frame. For every frame it
builds a decision tree of buy/sell/hold actions over the chosen instruments,
walks it best-first using technical and risk scores, and applies the chosen
path to a simulated cash-and-shares portfolio.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
