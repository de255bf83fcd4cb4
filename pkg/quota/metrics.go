package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the quota core.
type Metrics struct {
	admissionChecks *prometheus.CounterVec
	admissionDenied *prometheus.CounterVec
	usageRecorded   *prometheus.CounterVec
	utilization     *prometheus.GaugeVec
	statusTier      *prometheus.GaugeVec
	overrides       *prometheus.CounterVec
	storeFailures   prometheus.Counter
	checkDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors, registered on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		admissionChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "themis_quota_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"governor", "result"},
		),

		admissionDenied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "themis_quota_admission_denied_total",
				Help: "Total number of admission denials",
			},
			[]string{"governor", "reason"},
		),

		usageRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "themis_quota_usage_recorded_total",
				Help: "Total usage recorded, in governor-native units (calls or micro-dollars)",
			},
			[]string{"governor"},
		),

		utilization: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "themis_quota_window_utilization_percent",
				Help: "Current window utilization as a percentage of the limit",
			},
			[]string{"governor", "window"},
		),

		statusTier: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "themis_quota_status_tier",
				Help: "Current health tier (0=healthy 1=warning 2=critical 3=blocked)",
			},
			[]string{"governor"},
		),

		overrides: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "themis_quota_overrides_total",
				Help: "Administrative resets and authoritative provider overrides",
			},
			[]string{"governor", "kind"},
		),

		storeFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "themis_quota_store_failures_total",
				Help: "Counter store failures surfaced to governors after retry",
			},
		),

		checkDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "themis_quota_check_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"governor"},
		),
	}
}

// RecordAdmission records one admission check and its outcome.
func (m *Metrics) RecordAdmission(governor string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.admissionChecks.WithLabelValues(governor, result).Inc()
}

// RecordDenial records a denial with its reason label.
func (m *Metrics) RecordDenial(governor, reason string) {
	m.admissionDenied.WithLabelValues(governor, reason).Inc()
}

// RecordUsage records consumed units.
func (m *Metrics) RecordUsage(governor string, amount int64) {
	m.usageRecorded.WithLabelValues(governor).Add(float64(amount))
}

// UpdateUtilization updates the utilization gauge for one window.
func (m *Metrics) UpdateUtilization(governor, windowName string, percent float64) {
	m.utilization.WithLabelValues(governor, windowName).Set(percent)
}

// UpdateStatus updates the health-tier gauge.
func (m *Metrics) UpdateStatus(governor string, tier int) {
	m.statusTier.WithLabelValues(governor).Set(float64(tier))
}

// RecordOverride records an administrative reset or provider override.
func (m *Metrics) RecordOverride(governor, kind string) {
	m.overrides.WithLabelValues(governor, kind).Inc()
}

// RecordStoreFailure records a store failure that reached a governor.
func (m *Metrics) RecordStoreFailure() {
	m.storeFailures.Inc()
}

// RecordCheckDuration records the latency of one admission check.
func (m *Metrics) RecordCheckDuration(governor string, seconds float64) {
	m.checkDuration.WithLabelValues(governor).Observe(seconds)
}
