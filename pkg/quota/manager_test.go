package quota

import (
	"context"
	"testing"
	"time"

	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/rate"
	"legalis-hq/themis/pkg/quota/spend"
	"legalis-hq/themis/pkg/quota/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(ManagerConfig{
		Rate: rate.Config{HardLimit: 10},
		Spend: spend.Config{
			DailyLimit:   spend.FromDollars(50),
			MonthlyLimit: spend.FromDollars(500),
			PerEventMax:  spend.FromDollars(5),
		},
		Store: store.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerAdmitAndRecord(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if !m.MayCallProvider(ctx) {
		t.Fatal("fresh manager should admit provider calls")
	}
	for i := 0; i < 10; i++ {
		if err := m.RecordProviderCall(ctx, 1); err != nil {
			t.Fatalf("RecordProviderCall %d: %v", i, err)
		}
	}
	if m.MayCallProvider(ctx) {
		t.Fatal("manager should deny once the hard limit is consumed")
	}
}

func TestManagerInferenceGate(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	res := m.CheckInferenceBudget(ctx, spend.FromDollars(1))
	if !res.CanProceed {
		t.Fatalf("fresh manager denied inference: %s", res.Message)
	}

	// Per-event ceiling is $5; a $6 estimate is denied outright.
	res = m.CheckInferenceBudget(ctx, spend.FromDollars(6))
	if res.CanProceed {
		t.Fatal("estimate above per-event ceiling should be denied")
	}

	if err := m.RecordInferenceSpend(ctx, spend.FromDollars(2), map[string]string{"model": "test"}); err != nil {
		t.Fatalf("RecordInferenceSpend: %v", err)
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := snap.Spend.Daily; got != spend.FromDollars(2) {
		t.Fatalf("daily spend = %s, want $2.00", got)
	}
}

func TestManagerSnapshotWorstStatus(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	// Push the rate governor to critical (9/10 = 90%) while spend stays
	// healthy; the combined status must follow the worse governor.
	if err := m.RecordProviderCall(ctx, 9); err != nil {
		t.Fatalf("RecordProviderCall: %v", err)
	}

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Rate.Status != health.StatusCritical {
		t.Fatalf("rate status = %v, want critical", snap.Rate.Status)
	}
	if snap.Spend.Status != health.StatusHealthy {
		t.Fatalf("spend status = %v, want healthy", snap.Spend.Status)
	}
	if snap.Status != health.StatusCritical {
		t.Fatalf("combined status = %v, want critical", snap.Status)
	}
	if len(snap.Recommendations) == 0 {
		t.Fatal("critical snapshot should carry recommendations")
	}
}

func TestManagerProviderRejectionBlocks(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if !m.MayCallProvider(ctx) {
		t.Fatal("should admit before rejection")
	}
	resetAt := time.Now().Add(30 * time.Minute)
	if err := m.ReportProviderRejection(ctx, resetAt); err != nil {
		t.Fatalf("ReportProviderRejection: %v", err)
	}
	if m.MayCallProvider(ctx) {
		t.Fatal("provider rejection must deny further calls")
	}

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Status != health.StatusBlocked {
		t.Fatalf("combined status = %v, want blocked", snap.Status)
	}

	if err := m.ResetRateWindow(ctx); err != nil {
		t.Fatalf("ResetRateWindow: %v", err)
	}
	if !m.MayCallProvider(ctx) {
		t.Fatal("admin reset should clear the provider block")
	}
}

func TestManagerResetDailySpendKeepsMonthly(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.RecordInferenceSpend(ctx, spend.FromDollars(3), nil); err != nil {
		t.Fatalf("RecordInferenceSpend: %v", err)
	}
	if err := m.ResetDailySpend(ctx); err != nil {
		t.Fatalf("ResetDailySpend: %v", err)
	}

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Spend.Daily != 0 {
		t.Fatalf("daily after reset = %s, want $0.00", snap.Spend.Daily)
	}
	if snap.Spend.Monthly != spend.FromDollars(3) {
		t.Fatalf("monthly after daily reset = %s, want $3.00", snap.Spend.Monthly)
	}
}

func TestManagerRejectsBadConfig(t *testing.T) {
	_, err := NewManager(ManagerConfig{
		Rate: rate.Config{HardLimit: 0},
		Spend: spend.Config{
			DailyLimit:   spend.FromDollars(50),
			MonthlyLimit: spend.FromDollars(500),
		},
	})
	if err == nil {
		t.Fatal("zero hard limit should be rejected")
	}
	if !IsConfigError(err) {
		t.Fatalf("want ConfigError, got %T: %v", err, err)
	}
}
