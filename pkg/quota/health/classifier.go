package health

import "fmt"

// Status is an ordered health tier for a quota governor.
//
// The ordering is meaningful: a higher value is always worse. Callers may
// compare statuses directly (s >= StatusCritical) when deciding whether to
// alert.
type Status int

const (
	// StatusHealthy means utilization is comfortably below the warning
	// threshold.
	StatusHealthy Status = iota

	// StatusWarning means utilization has crossed the warning threshold.
	StatusWarning

	// StatusCritical means utilization has crossed the critical threshold.
	StatusCritical

	// StatusBlocked means admission is currently denied, either because the
	// limit is exhausted or because an authoritative external signal said so.
	StatusBlocked
)

// String returns the lowercase name used in snapshots, logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	case StatusBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so Status serializes as its
// name in JSON snapshots.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for the snapshot API.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "healthy":
		*s = StatusHealthy
	case "warning":
		*s = StatusWarning
	case "critical":
		*s = StatusCritical
	case "blocked":
		*s = StatusBlocked
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Thresholds configures the numeric tier boundaries for one governor.
// Values are percentages of the configured limit.
type Thresholds struct {
	// WarningPercent is the lower bound of the warning tier.
	WarningPercent float64

	// CriticalPercent is the lower bound of the critical tier.
	CriticalPercent float64
}

// DefaultThresholds returns the standard 75/90 tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{WarningPercent: 75, CriticalPercent: 90}
}

// Classify maps utilization onto a Status.
//
// The blocked flag is evaluated first and short-circuits regardless of the
// numeric percentage: an authoritative block at 12% utilization is still
// blocked. Utilization at or above 100% is likewise blocked even if no flag
// was set.
func Classify(utilizationPercent float64, blocked bool, t Thresholds) Status {
	if blocked {
		return StatusBlocked
	}
	switch {
	case utilizationPercent >= 100:
		return StatusBlocked
	case utilizationPercent >= t.CriticalPercent:
		return StatusCritical
	case utilizationPercent >= t.WarningPercent:
		return StatusWarning
	default:
		return StatusHealthy
	}
}
