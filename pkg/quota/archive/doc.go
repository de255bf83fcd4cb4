// Package archive persists quota usage history to SQLite for audit and
// billing reconciliation.
//
// The counter store holds only the live windows; once a window rolls over
// its totals are gone. The archive keeps two durable tables: individual
// usage events as they are recorded, and per-window summaries captured by a
// scheduled sweep. A cron-driven Scheduler runs the sweep and prunes events
// past the retention horizon.
package archive
