// Package health turns raw quota numbers into a graded health signal.
//
// It contains three pure pieces:
//
//   - Classify maps utilization and an absolute blocked flag onto an
//     ordered Status (healthy < warning < critical < blocked).
//   - TimeToExhaustion and ProjectedTotal perform linear run-rate
//     extrapolation over the remaining window.
//   - Recommendations produces a deterministic, ordered list of advisory
//     strings for operator tooling and alerts.
//
// Nothing in this package touches the counter store or wall-clock time;
// callers pass in everything the functions need, which keeps the decision
// logic trivially testable.
package health
