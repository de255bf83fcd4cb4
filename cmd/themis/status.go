package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"legalis-hq/themis/pkg/config"
)

var statusFlags struct {
	format string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current quota state",
	Long: `Show the current state of both quota governors: window counts,
utilization, health tier and recommendations.

The command reads the shared counter store directly, so against a Redis or
SQLite backend it reports the same state the running workers see. Against
the memory backend it reports a fresh, empty window.

Examples:
  # Human-readable summary
  themis status

  # Machine-readable output
  themis status --format json`,
	RunE: showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusFlags.format, "format", "text", "output format: text, json")
}

func showStatus(cmd *cobra.Command, args []string) error {
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

	snap, err := manager.Snapshot(context.Background())
	if err != nil {
		return fmt.Errorf("read quota state: %w", err)
	}

	if statusFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("Overall status: %s\n\n", snap.Status)

	fmt.Println("Judicial-records API (hourly)")
	fmt.Printf("  Requests:    %d / %d (%.1f%%)\n",
		snap.Rate.TotalRequests, snap.Rate.Limit, snap.Rate.UtilizationPercent)
	fmt.Printf("  Remaining:   %d\n", snap.Rate.Remaining)
	fmt.Printf("  Window ends: %s\n", snap.Rate.WindowEnd.Format("15:04:05 MST"))
	if snap.Rate.Blocked {
		fmt.Printf("  BLOCKED until %s\n", snap.Rate.BlockedUntil.Format("15:04:05 MST"))
	}
	fmt.Printf("  Status:      %s\n\n", snap.Rate.Status)

	fmt.Println("AI inference spend")
	fmt.Printf("  Today:       %s / %s\n", snap.Spend.Daily, snap.Spend.DailyLimit)
	fmt.Printf("  This month:  %s / %s\n", snap.Spend.Monthly, snap.Spend.MonthlyLimit)
	fmt.Printf("  Projected:   %s by month end\n", snap.Spend.ProjectedMonthly)
	fmt.Printf("  Requests:    %d (avg %s)\n", snap.Spend.RequestCount, snap.Spend.AverageCostPerRequest)
	fmt.Printf("  Status:      %s\n", snap.Spend.Status)

	if len(snap.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range snap.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}

	return nil
}
