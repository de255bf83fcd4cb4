package window

import (
	"sync"
	"testing"
	"time"
)

func TestEventLog_AppendAndRecent(t *testing.T) {
	l := NewEventLog(10)

	base := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		l.Append(base.Add(time.Duration(i)*time.Second), int64(i+1), nil)
	}

	recent := l.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}

	// Newest first.
	if recent[0].Amount != 3 || recent[2].Amount != 1 {
		t.Errorf("unexpected order: %+v", recent)
	}

	for _, ev := range recent {
		if ev.ID == "" {
			t.Error("event missing ID")
		}
	}
}

func TestEventLog_EvictsOldestFirst(t *testing.T) {
	l := NewEventLog(3)

	now := time.Now()
	for i := int64(1); i <= 5; i++ {
		l.Append(now, i, nil)
	}

	if l.Len() != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", l.Len())
	}

	recent := l.Recent(0)
	// 1 and 2 were evicted; 5 is newest.
	want := []int64{5, 4, 3}
	for i, w := range want {
		if recent[i].Amount != w {
			t.Errorf("recent[%d].Amount = %d, want %d", i, recent[i].Amount, w)
		}
	}
}

func TestEventLog_RecentLimit(t *testing.T) {
	l := NewEventLog(10)
	now := time.Now()
	for i := int64(1); i <= 6; i++ {
		l.Append(now, i, nil)
	}

	recent := l.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].Amount != 6 || recent[1].Amount != 5 {
		t.Errorf("unexpected events: %+v", recent)
	}
}

func TestEventLog_Last(t *testing.T) {
	l := NewEventLog(3)

	if _, ok := l.Last(); ok {
		t.Error("empty log should have no last event")
	}

	l.Append(time.Now(), 7, map[string]string{"op": "search"})
	ev, ok := l.Last()
	if !ok || ev.Amount != 7 {
		t.Errorf("unexpected last event: %+v ok=%v", ev, ok)
	}
	if ev.Metadata["op"] != "search" {
		t.Errorf("metadata lost: %+v", ev.Metadata)
	}
}

func TestEventLog_ConcurrentAppends(t *testing.T) {
	l := NewEventLog(64)

	const writers = 20
	const perWriter = 100

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				l.Append(time.Now(), 1, nil)
			}
		}()
	}
	wg.Wait()

	// The ring stays exactly at capacity and every retained entry is intact.
	if l.Len() != 64 {
		t.Fatalf("expected full ring of 64, got %d", l.Len())
	}
	for _, ev := range l.Recent(0) {
		if ev.ID == "" || ev.Amount != 1 {
			t.Fatalf("corrupted entry after concurrent appends: %+v", ev)
		}
	}
}
