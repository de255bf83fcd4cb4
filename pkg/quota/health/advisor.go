package health

import (
	"fmt"
	"time"
)

// Observation is the numeric snapshot the recommendation engine works from.
// All fields describe one governor's current window.
type Observation struct {
	// Status is the classified health tier.
	Status Status

	// UtilizationPercent is consumed capacity as a percentage of the limit.
	UtilizationPercent float64

	// Remaining is the capacity left in the window, in the governor's units
	// (calls for the rate governor, dollars for the spend governor).
	Remaining float64

	// ResetIn is how long until the current window rolls over.
	ResetIn time.Duration

	// TimeToExhaustion is the linear estimate of when capacity runs out.
	// Only meaningful when HasExhaustionEstimate is true.
	TimeToExhaustion time.Duration

	// HasExhaustionEstimate reports whether TimeToExhaustion is valid.
	HasExhaustionEstimate bool
}

// Recommendations maps an observation onto an ordered list of advisory
// strings. Identical observations always yield identical output in the same
// order; selection and ordering are the contract, phrasing is presentation.
//
// The list is ordered most-urgent-first so dashboards can truncate safely.
func Recommendations(obs Observation) []string {
	var out []string

	switch obs.Status {
	case StatusBlocked:
		out = append(out,
			"stop issuing calls and wait for the window to reset",
			fmt.Sprintf("window resets in %s", formatDuration(obs.ResetIn)),
		)
	case StatusCritical:
		out = append(out,
			"pause non-essential work until the window resets",
			fmt.Sprintf("only %.0f%% headroom remains", 100-obs.UtilizationPercent),
		)
	case StatusWarning:
		out = append(out,
			"slow down: defer work that can wait for the next window",
		)
	case StatusHealthy:
		out = append(out, "usage is within normal bounds")
	}

	// Exhaustion-before-reset is worth calling out at any tier short of
	// blocked, since it predicts a future block.
	if obs.Status != StatusBlocked && obs.HasExhaustionEstimate && obs.TimeToExhaustion < obs.ResetIn {
		out = append(out, fmt.Sprintf(
			"at the current rate capacity runs out in %s, before the window resets",
			formatDuration(obs.TimeToExhaustion),
		))
	}

	return out
}

// formatDuration renders durations at minute precision for advisories.
// Sub-minute remainders round up so "resets in 0s" never appears while time
// actually remains.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	rounded := d.Round(time.Minute)
	if rounded < d {
		rounded += time.Minute
	}
	if rounded < time.Minute {
		rounded = time.Minute
	}
	return rounded.String()
}
