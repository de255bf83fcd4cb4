package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "themis",
	Short: "Themis - quota governance for judicial-records and AI-inference budgets",
	Long: `Themis governs two external budgets shared by every worker process:
the fixed-rate judicial-records API quota and the AI-inference spend ceiling.

It provides:
  - Hourly call-quota admission with provider-rejection overrides
  - Daily and monthly spend ceilings with exact fixed-point accounting
  - Health classification, run-rate projection and recommendations
  - A shared counter store (memory, Redis or SQLite) for multi-process
    deployments
  - An HTTP admin surface with Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "themis.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
