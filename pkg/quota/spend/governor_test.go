package spend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/store"
)

var testNow = time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func(context.Context) time.Time {
	return func(context.Context) time.Time { return t }
}

func newTestGovernor(t *testing.T, cfg Config) (*Governor, *store.MemoryStore) {
	t.Helper()

	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	g, err := New(s, cfg, WithClockFunc(fixedClock(testNow)))
	if err != nil {
		t.Fatalf("failed to create governor: %v", err)
	}
	return g, s
}

func defaultConfig() Config {
	return Config{
		DailyLimit:   FromDollars(50),
		MonthlyLimit: FromDollars(500),
		PerEventMax:  FromDollars(5),
	}
}

func TestNew_Validation(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	if _, err := New(s, Config{DailyLimit: 0, MonthlyLimit: FromDollars(100)}); err == nil {
		t.Error("expected error for zero daily limit")
	}
	if _, err := New(s, Config{DailyLimit: FromDollars(10), MonthlyLimit: -1}); err == nil {
		t.Error("expected error for negative monthly limit")
	}
	if _, err := New(s, Config{DailyLimit: FromDollars(10), MonthlyLimit: FromDollars(100), PerEventMax: -1}); err == nil {
		t.Error("expected error for negative per-event max")
	}
}

func TestGovernor_DailyGateBindsBeforeMonthly(t *testing.T) {
	// Monthly headroom alone would permit the call; the daily window denies it.
	g, _ := newTestGovernor(t, Config{
		DailyLimit:   FromDollars(50),
		MonthlyLimit: FromDollars(500),
	})
	ctx := context.Background()

	if err := g.RecordSpend(ctx, FromDollars(45), nil); err != nil {
		t.Fatalf("RecordSpend failed: %v", err)
	}

	res := g.CheckBudget(ctx, FromDollars(10))
	if res.CanProceed {
		t.Errorf("expected denial: $45 + $10 exceeds $50 daily limit (message: %s)", res.Message)
	}

	// A smaller estimate that fits the day is admitted.
	if res := g.CheckBudget(ctx, FromDollars(5)); !res.CanProceed {
		t.Errorf("expected admission for $5 (message: %s)", res.Message)
	}
}

func TestGovernor_MonthlyGate(t *testing.T) {
	g, _ := newTestGovernor(t, Config{
		DailyLimit:   FromDollars(500),
		MonthlyLimit: FromDollars(100),
	})
	ctx := context.Background()

	g.RecordSpend(ctx, FromDollars(95), nil)

	if res := g.CheckBudget(ctx, FromDollars(10)); res.CanProceed {
		t.Errorf("expected monthly denial (message: %s)", res.Message)
	}
}

func TestGovernor_PerEventMax(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())

	res := g.CheckBudget(context.Background(), FromDollars(6))
	if res.CanProceed {
		t.Errorf("expected denial above per-event max (message: %s)", res.Message)
	}
}

func TestGovernor_NegativeEstimate(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())
	if res := g.CheckBudget(context.Background(), FromDollars(-1)); res.CanProceed {
		t.Error("expected denial for negative estimate")
	}
}

func TestGovernor_CheckThenRecordExact(t *testing.T) {
	// checkBudget(x) then recordSpend(x) moves daily by exactly x, across
	// thousands of sub-cent increments.
	g, _ := newTestGovernor(t, Config{
		DailyLimit:   FromDollars(100),
		MonthlyLimit: FromDollars(1000),
	})
	ctx := context.Background()

	increment := FromDollars(0.003)
	for i := 0; i < 10_000; i++ {
		if res := g.CheckBudget(ctx, increment); !res.CanProceed {
			t.Fatalf("unexpected denial at iteration %d: %s", i, res.Message)
		}
		if err := g.RecordSpend(ctx, increment, nil); err != nil {
			t.Fatalf("RecordSpend failed at iteration %d: %v", i, err)
		}
	}

	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bd.Daily != FromDollars(30) {
		t.Errorf("drift: expected exactly $30.00, got %s (%d micros)", bd.Daily, bd.Daily.Micros())
	}
	if bd.Monthly != FromDollars(30) {
		t.Errorf("drift: expected exactly $30.00 monthly, got %s", bd.Monthly)
	}
	if bd.RequestCount != 10_000 {
		t.Errorf("expected 10000 requests, got %d", bd.RequestCount)
	}
}

func TestGovernor_ConcurrentRecordSpend(t *testing.T) {
	g, _ := newTestGovernor(t, Config{
		DailyLimit:   FromDollars(100000),
		MonthlyLimit: FromDollars(100000),
	})
	ctx := context.Background()

	const goroutines = 20
	const perGoroutine = 50
	each := FromDollars(0.01)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if err := g.RecordSpend(ctx, each, nil); err != nil {
					t.Errorf("RecordSpend failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Amount(int64(each) * goroutines * perGoroutine)
	if bd.Daily != want {
		t.Errorf("lost updates: expected %s, got %s", want, bd.Daily)
	}
	if bd.Monthly != want {
		t.Errorf("lost monthly updates: expected %s, got %s", want, bd.Monthly)
	}
}

func TestGovernor_ProjectedMonthly(t *testing.T) {
	// April has 30 days; testNow is April 10 at noon, so 10 days have
	// elapsed for run-rate purposes. $100 spent projects to $300.
	g, _ := newTestGovernor(t, Config{
		DailyLimit:   FromDollars(1000),
		MonthlyLimit: FromDollars(10000),
	})
	ctx := context.Background()

	if err := g.RecordSpend(ctx, FromDollars(100), nil); err != nil {
		t.Fatal(err)
	}

	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bd.ProjectedMonthly != FromDollars(300) {
		t.Errorf("expected projected monthly $300.00, got %s", bd.ProjectedMonthly)
	}
}

func TestGovernor_ResetDailyLeavesMonthly(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())
	ctx := context.Background()

	g.RecordSpend(ctx, FromDollars(4), nil)
	g.RecordSpend(ctx, FromDollars(3), nil)

	if err := g.ResetDailyCosts(ctx); err != nil {
		t.Fatalf("ResetDailyCosts failed: %v", err)
	}

	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bd.Daily != 0 {
		t.Errorf("expected daily 0 after reset, got %s", bd.Daily)
	}
	if bd.Monthly != FromDollars(7) {
		t.Errorf("expected monthly unchanged at $7.00, got %s", bd.Monthly)
	}
}

func TestGovernor_WarningLevels(t *testing.T) {
	g, _ := newTestGovernor(t, Config{
		DailyLimit:   FromDollars(100),
		MonthlyLimit: FromDollars(10000),
	})
	ctx := context.Background()

	res := g.CheckBudget(ctx, FromDollars(1))
	if res.WarningLevel != health.StatusHealthy {
		t.Errorf("expected healthy at zero spend, got %s", res.WarningLevel)
	}

	g.RecordSpend(ctx, FromDollars(80), nil)
	res = g.CheckBudget(ctx, FromDollars(1))
	if !res.CanProceed || res.WarningLevel != health.StatusWarning {
		t.Errorf("expected admitted with warning at 80%%, got proceed=%v level=%s", res.CanProceed, res.WarningLevel)
	}

	g.RecordSpend(ctx, FromDollars(12), nil)
	res = g.CheckBudget(ctx, FromDollars(1))
	if !res.CanProceed || res.WarningLevel != health.StatusCritical {
		t.Errorf("expected admitted with critical at 92%%, got proceed=%v level=%s", res.CanProceed, res.WarningLevel)
	}
}

func TestGovernor_RecordAboveMaxIsLoggedNotDropped(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())
	ctx := context.Background()

	// $8 exceeds the $5 per-event max, but the money is already spent.
	if err := g.RecordSpend(ctx, FromDollars(8), nil); err != nil {
		t.Fatalf("RecordSpend failed: %v", err)
	}

	bd, _ := g.CostBreakdown(ctx)
	if bd.Daily != FromDollars(8) {
		t.Errorf("expected overdraft recorded, got %s", bd.Daily)
	}
}

// failingStore always errors; it models a store outage.
type failingStore struct{}

var errDown = errors.New("store timeout")

func (failingStore) AtomicIncrement(context.Context, string, int64) (int64, error) {
	return 0, errDown
}
func (failingStore) Get(context.Context, string) (int64, bool, error) { return 0, false, errDown }
func (failingStore) SetWithExpiry(context.Context, string, int64, time.Duration) error {
	return errDown
}
func (failingStore) Close() error { return nil }

func TestGovernor_FailsOpenOnStoreOutage(t *testing.T) {
	g, err := New(failingStore{}, defaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	res := g.CheckBudget(context.Background(), FromDollars(1))
	if !res.CanProceed {
		t.Error("expected fail-open admission during store outage")
	}
	if res.WarningLevel != health.StatusWarning {
		t.Errorf("expected warning level on fail-open, got %s", res.WarningLevel)
	}
}

// monthDownStore passes day-window writes through but fails any increment
// touching a monthly key, modeling a partial outage mid-recording.
type monthDownStore struct {
	*store.MemoryStore
}

func (s monthDownStore) AtomicIncrement(ctx context.Context, key string, amount int64) (int64, error) {
	if strings.Contains(key, ":month:") {
		return 0, errDown
	}
	return s.MemoryStore.AtomicIncrement(ctx, key, amount)
}

func TestGovernor_RecordSpendKeepsDailyOnMonthlyFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	t.Cleanup(func() { mem.Close() })

	g, err := New(monthDownStore{mem}, defaultConfig(), WithClockFunc(fixedClock(testNow)))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err = g.RecordSpend(ctx, FromDollars(2), nil)
	if !errors.Is(err, errDown) {
		t.Fatalf("expected the monthly store failure to surface, got %v", err)
	}

	// The daily write is not rolled back; the stricter gate keeps its
	// conservative count while the caller retries the recording.
	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatalf("CostBreakdown: %v", err)
	}
	if bd.Daily != FromDollars(2) {
		t.Errorf("daily spend = %s, want %s", bd.Daily, FromDollars(2))
	}
}

func TestGovernor_RecentRecords(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())
	ctx := context.Background()

	g.RecordSpend(ctx, FromDollars(1), map[string]string{"matter": "42"})
	g.RecordSpend(ctx, FromDollars(2), nil)

	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(bd.RecentRecords) != 2 {
		t.Fatalf("expected 2 recent records, got %d", len(bd.RecentRecords))
	}
	// Newest first.
	if bd.RecentRecords[0].Amount != FromDollars(2).Micros() {
		t.Errorf("unexpected newest record: %+v", bd.RecentRecords[0])
	}
	if bd.RecentRecords[1].Metadata["matter"] != "42" {
		t.Errorf("metadata lost: %+v", bd.RecentRecords[1])
	}
}

func TestGovernor_UpdateConfig(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())
	ctx := context.Background()

	g.RecordSpend(ctx, FromDollars(40), nil)

	if err := g.UpdateConfig(Config{
		DailyLimit:   FromDollars(41),
		MonthlyLimit: FromDollars(500),
	}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	if res := g.CheckBudget(ctx, FromDollars(2)); res.CanProceed {
		t.Error("expected denial under tightened daily limit")
	}
	if res := g.CheckBudget(ctx, FromDollars(1)); !res.CanProceed {
		t.Error("expected admission within tightened daily limit")
	}

	if err := g.UpdateConfig(Config{DailyLimit: -5, MonthlyLimit: FromDollars(10)}); err == nil {
		t.Error("expected validation error")
	}
}

func TestGovernor_AverageCost(t *testing.T) {
	g, _ := newTestGovernor(t, defaultConfig())
	ctx := context.Background()

	g.RecordSpend(ctx, FromDollars(2), nil)
	g.RecordSpend(ctx, FromDollars(4), nil)

	bd, err := g.CostBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bd.AverageCostPerRequest != FromDollars(3) {
		t.Errorf("expected average $3.00, got %s", bd.AverageCostPerRequest)
	}
}
