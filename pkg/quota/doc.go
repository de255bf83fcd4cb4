// Package quota coordinates the two quota governors that gate the
// platform's externally imposed ceilings: the judicial-records provider's
// fixed hourly call quota and the AI-inference spend ceiling.
//
// # Architecture
//
// The package is organized into sub-packages:
//
//   - store: the CounterStore contract and backends (memory, Redis, SQLite)
//   - window: window identity, atomic accounting, recent-events log
//   - rate: the hourly call-quota governor (fails closed)
//   - spend: the daily/monthly spend governor (fails open with a warning)
//   - health: classification, projection, recommendations
//   - archive: durable period summaries and usage history
//
// The Manager at this level wires both governors to one shared store,
// instruments them with Prometheus metrics, and serves the snapshot and
// recommendation views the administrative and alerting surfaces pull from.
//
// # Admission protocol
//
// A caller about to issue an external call asks the relevant governor
// first, issues the call only on permission, and reports actual usage back
// afterwards:
//
//	if mgr.Rate().IsRateLimited(ctx) {
//	    return errDeferred // back off, do not call the provider
//	}
//	resp, err := client.Search(ctx, q) // external collaborator
//	if reachedProvider(resp, err) {
//	    mgr.Rate().Consume(ctx, 1)
//	}
//
// Quota exhaustion is a normal control-flow result the caller branches on,
// never an error. Errors are reserved for malformed configuration and
// irrecoverable store failures.
package quota
