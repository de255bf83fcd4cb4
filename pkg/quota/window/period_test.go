package window

import (
	"testing"
	"time"
)

func TestPeriod_Bounds(t *testing.T) {
	at := time.Date(2026, time.March, 15, 14, 37, 22, 0, time.UTC)

	tests := []struct {
		period Period
		start  time.Time
		end    time.Time
	}{
		{
			PeriodHour,
			time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC),
			time.Date(2026, time.March, 15, 15, 0, 0, 0, time.UTC),
		},
		{
			PeriodDay,
			time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			PeriodMonth,
			time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := tt.period.Bounds(at)
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Errorf("Bounds = [%s, %s), want [%s, %s)", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestPeriod_BoundsIdempotent(t *testing.T) {
	// Two timestamps in the same period yield identical bounds.
	a := time.Date(2026, time.March, 15, 14, 0, 1, 0, time.UTC)
	b := time.Date(2026, time.March, 15, 14, 59, 59, 0, time.UTC)

	aStart, aEnd := PeriodHour.Bounds(a)
	bStart, bEnd := PeriodHour.Bounds(b)
	if !aStart.Equal(bStart) || !aEnd.Equal(bEnd) {
		t.Errorf("same-period bounds differ: [%s,%s) vs [%s,%s)", aStart, aEnd, bStart, bEnd)
	}

	// The next second crosses into a new window.
	c := time.Date(2026, time.March, 15, 15, 0, 0, 0, time.UTC)
	cStart, _ := PeriodHour.Bounds(c)
	if !cStart.Equal(aEnd) {
		t.Errorf("next window start %s, want %s", cStart, aEnd)
	}
}

func TestPeriod_BoundsMonthRollover(t *testing.T) {
	// December rolls into January of the next year.
	at := time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC)
	start, end := PeriodMonth.Bounds(at)

	if !start.Equal(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start %s", start)
	}
	if !end.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end %s", end)
	}
}

func TestPeriod_Key(t *testing.T) {
	at := time.Date(2026, time.March, 5, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		period Period
		want   string
	}{
		{PeriodHour, "rate:hour:2026030509"},
		{PeriodDay, "spend:day:20260305"},
		{PeriodMonth, "spend:month:202603"},
	}

	prefixes := map[Period]string{PeriodHour: "rate", PeriodDay: "spend", PeriodMonth: "spend"}
	for _, tt := range tests {
		if got := tt.period.Key(prefixes[tt.period], at); got != tt.want {
			t.Errorf("Key(%s) = %q, want %q", tt.period, got, tt.want)
		}
	}
}

func TestPeriod_KeyStableWithinWindow(t *testing.T) {
	a := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.March, 5, 9, 59, 59, 0, time.UTC)
	if PeriodHour.Key("rate", a) != PeriodHour.Key("rate", b) {
		t.Error("keys within the same hour window differ")
	}

	c := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	if PeriodHour.Key("rate", a) == PeriodHour.Key("rate", c) {
		t.Error("keys across hour windows collide")
	}
}

func TestPeriod_Valid(t *testing.T) {
	for _, p := range []Period{PeriodHour, PeriodDay, PeriodMonth} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if Period("week").Valid() {
		t.Error("week should be invalid")
	}
}
