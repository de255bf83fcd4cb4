package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"legalis-hq/themis/pkg/config"
)

var resetFlags struct {
	rate       bool
	dailySpend bool
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a quota window (administrative override)",
	Long: `Reset a quota window in the shared counter store.

Resets are administrative overrides and are logged as such. Resetting the
daily spend window leaves the monthly total untouched; the monthly ceiling
cannot be reset from the CLI.

Examples:
  # Reset the current hourly rate window (also clears a provider block)
  themis reset --rate

  # Reset today's spend window
  themis reset --daily-spend`,
	RunE: resetWindows,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVar(&resetFlags.rate, "rate", false, "reset the current hourly rate window")
	resetCmd.Flags().BoolVar(&resetFlags.dailySpend, "daily-spend", false, "reset today's spend window")
}

func resetWindows(cmd *cobra.Command, args []string) error {
	if !resetFlags.rate && !resetFlags.dailySpend {
		return fmt.Errorf("nothing to reset: pass --rate and/or --daily-spend")
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	setupLogging(&cfg.Logging)

	counterStore, err := openStore(&cfg.Store)
	if err != nil {
		return err
	}

	manager, err := newManager(cfg, counterStore, nil)
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := context.Background()
	if resetFlags.rate {
		if err := manager.ResetRateWindow(ctx); err != nil {
			return fmt.Errorf("reset rate window: %w", err)
		}
		fmt.Println("✓ Rate window reset")
	}
	if resetFlags.dailySpend {
		if err := manager.ResetDailySpend(ctx); err != nil {
			return fmt.Errorf("reset daily spend: %w", err)
		}
		fmt.Println("✓ Daily spend window reset")
	}

	return nil
}
