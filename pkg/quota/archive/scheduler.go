package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"legalis-hq/themis/pkg/quota/window"
)

// SummaryFunc produces the current window summaries for every governor.
// The scheduler calls it on each sweep; the caller adapts it from whatever
// holds the live counters.
type SummaryFunc func(ctx context.Context) ([]WindowSummary, error)

// EventsFunc produces the recent usage events per governor name. Events are
// written with INSERT OR IGNORE, so the same ring-buffer contents may be
// offered on every sweep without duplicating rows.
type EventsFunc func(ctx context.Context) map[string][]window.UsageEvent

// SchedulerConfig configures the sweep scheduler.
type SchedulerConfig struct {
	// SweepSchedule is a cron expression for capturing window summaries.
	// Example: "*/15 * * * *" (every 15 minutes).
	// If empty, the scheduler does nothing.
	SweepSchedule string

	// RetentionDays is how many days of individual usage events to keep.
	// 0 means keep events forever. Summaries are never pruned.
	RetentionDays int
}

// DefaultSchedulerConfig returns the default sweep configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		SweepSchedule: "*/15 * * * *",
		RetentionDays: 90,
	}
}

// Scheduler captures window summaries into the archive on a cron schedule
// and prunes events past the retention horizon.
type Scheduler struct {
	archive   *Archive
	summaries SummaryFunc
	events    EventsFunc
	config    *SchedulerConfig
	cron      *cron.Cron
	mu        sync.Mutex
	logger    *slog.Logger
	running   bool
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithEventSource adds per-governor usage events to each sweep.
func WithEventSource(fn EventsFunc) SchedulerOption {
	return func(s *Scheduler) { s.events = fn }
}

// NewScheduler creates a sweep scheduler over the given archive.
func NewScheduler(archive *Archive, summaries SummaryFunc, config *SchedulerConfig, opts ...SchedulerOption) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	s := &Scheduler{
		archive:   archive,
		summaries: summaries,
		config:    config,
		cron:      cron.New(),
		logger:    slog.Default().With("component", "quota.archive.scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins scheduled sweeps. The scheduler stops itself when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.SweepSchedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.SweepSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.SweepSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.SweepSchedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("archive scheduler started",
		"schedule", s.config.SweepSchedule,
		"retention_days", s.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Sweep captures the current window summaries and runs retention pruning
// once. The scheduler calls this on the cron schedule; it is exported so an
// operator can trigger it on demand.
func (s *Scheduler) Sweep(ctx context.Context) error {
	summaries, err := s.summaries(ctx)
	if err != nil {
		return fmt.Errorf("collect summaries: %w", err)
	}

	for _, summary := range summaries {
		if err := s.archive.ArchiveWindow(ctx, summary); err != nil {
			return err
		}
	}

	if s.events != nil {
		for governor, events := range s.events(ctx) {
			for _, ev := range events {
				if err := s.archive.RecordEvent(ctx, governor, ev); err != nil {
					return err
				}
			}
		}
	}

	if s.config.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)
		if _, err := s.archive.Prune(ctx, cutoff); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("scheduled sweep failed", "error", err)
		return
	}
	s.logger.Debug("scheduled sweep completed")
}

// Stop stops the scheduler and waits for a running sweep to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("archive scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
