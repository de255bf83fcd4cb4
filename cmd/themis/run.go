package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"legalis-hq/themis/pkg/config"
	"legalis-hq/themis/pkg/quota"
	"legalis-hq/themis/pkg/quota/archive"
	"legalis-hq/themis/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Themis admin server",
	Long: `Start the Themis admin server with the specified configuration.

The server exposes the quota state, administrative overrides, the health
probe and Prometheus metrics. Counter state lives in the configured store,
so multiple processes sharing a Redis or SQLite backend converge on the
same admission decisions.

Examples:
  # Start with default config
  themis run

  # Start with custom config
  themis run --config /etc/themis/themis.yaml

  # Override listen address
  themis run --listen 0.0.0.0:8355

  # Validate config without starting the server
  themis run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "disable config hot reload")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	setupLogging(&cfg.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared counter store
	slog.Info("opening counter store", "backend", cfg.Store.Backend)
	counterStore, err := openStore(&cfg.Store)
	if err != nil {
		return err
	}

	// Manager over both governors; Close releases the store.
	manager, err := newManager(cfg, counterStore, quota.NewMetrics())
	if err != nil {
		return err
	}
	defer manager.Close()
	fmt.Printf("✓ Quota governors initialized (store: %s)\n", cfg.Store.Backend)

	// Usage archive with scheduled sweeps
	var arch *archive.Archive
	if cfg.Archive.Enabled {
		archCfg := archive.DefaultConfig()
		archCfg.Path = cfg.Archive.Path
		arch, err = archive.Open(archCfg)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arch.Close()

		scheduler := archive.NewScheduler(arch, summaryFunc(manager), &archive.SchedulerConfig{
			SweepSchedule: cfg.Archive.SweepSchedule,
			RetentionDays: cfg.Archive.RetentionDays,
		}, archive.WithEventSource(eventsFunc(manager)))
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start archive scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				slog.Debug("archive scheduler started", "next_sweep", next)
			}
		}
		fmt.Println("✓ Usage archive initialized")
	}

	// Config hot reload: new limits are pushed into the running governors.
	// Store backend and server address changes still need a restart.
	if !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, nil)
		if err != nil {
			slog.Warn("failed to create config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					if err := manager.Rate().UpdateConfig(rateConfigFrom(&next.Rate)); err != nil {
						slog.Error("rate config update rejected", "error", err)
					}
					if err := manager.Spend().UpdateConfig(spendConfigFrom(&next.Spend)); err != nil {
						slog.Error("spend config update rejected", "error", err)
					}
				})
				if err != nil {
					slog.Error("config watcher exited", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	srv := server.NewServer(&cfg.Server, manager, arch)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	// Blocks until signal or context cancellation.
	return srv.Start(ctx)
}
