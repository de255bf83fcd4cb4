package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"legalis-hq/themis/pkg/quota/window"
)

func TestSchedulerSweepCapturesSummaries(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)

	start := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	summaries := func(ctx context.Context) ([]WindowSummary, error) {
		return []WindowSummary{
			{
				Governor:    "rate",
				Period:      "hour",
				WindowStart: start,
				WindowEnd:   start.Add(time.Hour),
				Total:       100,
				Cap:         4500,
				Status:      "healthy",
				ArchivedAt:  time.Now().UTC(),
			},
			{
				Governor:    "spend",
				Period:      "day",
				WindowStart: start.Truncate(24 * time.Hour),
				WindowEnd:   start.Truncate(24 * time.Hour).AddDate(0, 0, 1),
				Total:       12_500_000,
				Cap:         50_000_000,
				Status:      "healthy",
				ArchivedAt:  time.Now().UTC(),
			},
		}, nil
	}

	s := NewScheduler(a, summaries, &SchedulerConfig{RetentionDays: 90})
	if err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	for _, governor := range []string{"rate", "spend"} {
		got, err := a.Summaries(ctx, governor, time.Time{}, 10)
		if err != nil {
			t.Fatalf("Summaries(%s): %v", governor, err)
		}
		if len(got) != 1 {
			t.Fatalf("governor %s: got %d summaries, want 1", governor, len(got))
		}
	}
}

func TestSchedulerSweepPersistsEvents(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)

	events := []window.UsageEvent{
		{ID: uuid.NewString(), Timestamp: time.Now().UTC().Add(-time.Minute), Amount: 1},
		{ID: uuid.NewString(), Timestamp: time.Now().UTC(), Amount: 2},
	}
	source := func(context.Context) map[string][]window.UsageEvent {
		return map[string][]window.UsageEvent{"rate": events}
	}

	s := NewScheduler(a, func(context.Context) ([]WindowSummary, error) {
		return nil, nil
	}, &SchedulerConfig{RetentionDays: 90}, WithEventSource(source))

	// Two sweeps over the same ring contents must not duplicate rows.
	for i := 0; i < 2; i++ {
		if err := s.Sweep(ctx); err != nil {
			t.Fatalf("Sweep: %v", err)
		}
	}

	got, err := a.Events(ctx, "rate", time.Time{}, 10)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("got %d events, want %d", len(got), len(events))
	}
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	a := newTestArchive(t)
	s := NewScheduler(a, func(context.Context) ([]WindowSummary, error) {
		return nil, nil
	}, &SchedulerConfig{SweepSchedule: "not a schedule"})

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("invalid cron expression should be rejected")
	}
}

func TestSchedulerEmptyScheduleIsNoop(t *testing.T) {
	a := newTestArchive(t)
	s := NewScheduler(a, func(context.Context) ([]WindowSummary, error) {
		return nil, nil
	}, &SchedulerConfig{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should stay idle without a schedule")
	}
	if s.NextRun() != nil {
		t.Fatal("idle scheduler should have no next run")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	a := newTestArchive(t)
	s := NewScheduler(a, func(context.Context) ([]WindowSummary, error) {
		return nil, nil
	}, &SchedulerConfig{SweepSchedule: "0 3 * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should be running after Start")
	}
	if s.NextRun() == nil {
		t.Fatal("running scheduler should report a next run")
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for s.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not stop after context cancellation")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
