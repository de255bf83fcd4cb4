package health

import "time"

// TimeToExhaustion linearly extrapolates how long the remaining capacity
// will last at the observed velocity (units consumed per second).
//
// The second return value is false when no meaningful estimate exists:
// capacity is already exhausted, or velocity is zero (nothing is being
// consumed, so the window will roll over before exhaustion).
func TimeToExhaustion(remaining float64, velocityPerSecond float64) (time.Duration, bool) {
	if remaining <= 0 || velocityPerSecond <= 0 {
		return 0, false
	}
	seconds := remaining / velocityPerSecond
	return time.Duration(seconds * float64(time.Second)), true
}

// ProjectedTotal extrapolates the period-end total from the amount consumed
// so far and the fraction of the period elapsed.
//
// This is an explicitly linear run-rate approximation, not a forecast. When
// almost no time has elapsed the run rate is meaningless, so the consumed
// amount itself is returned.
func ProjectedTotal(consumed float64, elapsed, period time.Duration) float64 {
	if elapsed <= 0 || period <= 0 {
		return consumed
	}
	if elapsed >= period {
		return consumed
	}
	return consumed * float64(period) / float64(elapsed)
}

// Velocity returns the average consumption rate (units per second) over the
// elapsed portion of a window. Returns 0 when no time has elapsed.
func Velocity(consumed float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return consumed / elapsed.Seconds()
}
