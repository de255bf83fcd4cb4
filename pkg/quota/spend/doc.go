// Package spend enforces the monetary ceiling on pay-per-call AI inference.
//
// The governor wraps two independent nested windows, a UTC calendar day and
// a UTC calendar month, each with its own limit. CheckBudget is a strict
// pre-admission gate: inference cost is non-refundable once the call is
// made, so the estimate is checked against both windows (and the per-event
// maximum) before the call is issued. RecordSpend runs afterwards with the
// provider's reported actual cost, which may differ from the estimate.
//
// All accumulation uses integer micro-dollars (Amount); floating point
// appears only at presentation time. Thousands of sub-cent increments
// therefore sum exactly.
//
// Unlike the rate governor, this one fails open: when the counter store is
// unreachable, CheckBudget permits the call and logs a throttled warning.
// Blocking the whole analytics pipeline on a transient accounting outage is
// judged worse than occasionally permitting one extra call.
package spend
