package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"legalis-hq/themis/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate the configuration file, including environment
variable overrides, without starting anything.

Exits non-zero with the full list of field errors when the configuration is
invalid.

Examples:
  themis validate
  themis validate --config /etc/themis/themis.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}

		fmt.Println("✓ Configuration valid")
		fmt.Printf("  Store backend:  %s\n", cfg.Store.Backend)
		fmt.Printf("  Rate limit:     %d calls/hour (admission stops at %d)\n",
			cfg.Rate.HardLimit, cfg.Rate.BufferLimit)
		fmt.Printf("  Spend ceilings: $%.2f/day, $%.2f/month\n",
			cfg.Spend.DailyLimit, cfg.Spend.MonthlyLimit)
		if cfg.Archive.Enabled {
			fmt.Printf("  Archive:        %s (sweep %q)\n", cfg.Archive.Path, cfg.Archive.SweepSchedule)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
