package window

import (
	"fmt"
	"time"
)

// Period identifies the kind of accounting window.
type Period string

const (
	// PeriodHour is a fixed hourly window.
	PeriodHour Period = "hour"

	// PeriodDay is a UTC calendar day.
	PeriodDay Period = "day"

	// PeriodMonth is a UTC calendar month.
	PeriodMonth Period = "month"
)

// Bounds returns the start and end of the window containing t.
//
// The result is a pure function of t: two callers with timestamps inside the
// same period always get identical bounds, which is what makes rollover
// race-free across processes.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	switch p {
	case PeriodHour:
		start = t.Truncate(time.Hour)
		return start, start.Add(time.Hour)
	case PeriodDay:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	case PeriodMonth:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		panic(fmt.Sprintf("unknown period %q", string(p)))
	}
}

// Key returns the counter-store key for the window containing t, namespaced
// under prefix. Keys embed the formatted window start, so every window gets
// its own counter and superseded counters are simply left behind.
func (p Period) Key(prefix string, t time.Time) string {
	t = t.UTC()
	switch p {
	case PeriodHour:
		return fmt.Sprintf("%s:hour:%s", prefix, t.Format("2006010215"))
	case PeriodDay:
		return fmt.Sprintf("%s:day:%s", prefix, t.Format("20060102"))
	case PeriodMonth:
		return fmt.Sprintf("%s:month:%s", prefix, t.Format("200601"))
	default:
		panic(fmt.Sprintf("unknown period %q", string(p)))
	}
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodHour, PeriodDay, PeriodMonth:
		return true
	}
	return false
}
