package quota

import (
	"errors"
	"fmt"

	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/rate"
	"legalis-hq/themis/pkg/quota/spend"
	"legalis-hq/themis/pkg/quota/store"
)

// Governor names for keys, metrics labels and snapshot routing.
const (
	// GovernorRate is the judicial-records call-quota governor.
	GovernorRate = "rate"

	// GovernorSpend is the AI-inference spend governor.
	GovernorSpend = "spend"
)

// Snapshot is the combined read-only view served to administrative and
// alerting consumers.
type Snapshot struct {
	// Rate is the call-quota governor's state.
	Rate rate.UsageStats `json:"rate"`

	// Spend is the spend governor's state.
	Spend spend.CostBreakdown `json:"spend"`

	// Status is the worse of the two governors' tiers.
	Status health.Status `json:"status"`

	// Recommendations are the ordered advisories for the worse governor.
	Recommendations []string `json:"recommendations"`
}

// ErrStoreUnavailable aliases the store sentinel so callers can branch on
// it without importing the store package.
var ErrStoreUnavailable = store.ErrUnavailable

// ConfigError reports malformed static configuration. It is fatal at
// startup and never retried.
type ConfigError struct {
	// Field is the offending configuration field.
	Field string

	// Err is the underlying validation failure.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
