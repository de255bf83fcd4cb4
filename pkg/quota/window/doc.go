// Package window implements the accounting layer under the quota governors:
// deterministic window identity, atomic usage recording, and a bounded
// recent-events log.
//
// # Window identity
//
// A window's identity is derived from the timestamp, not from process state:
// the hourly window containing t is the interval [truncate(t, 1h),
// truncate(t, 1h)+1h), and calendar day and month windows are derived the
// same way from the UTC calendar. Because the identity is a pure function of
// time, concurrent callers racing on a rollover all compute the same next
// window; rollover needs no locking and creates no divergent windows.
//
// Each window maps to its own counter-store key, so "rollover" is nothing
// more than the clock moving the key derivation to a fresh counter. A window
// is never deleted, only superseded.
//
// # Clock
//
// Accountants read time from the counter store when the backend exposes a
// shared clock (Redis TIME), falling back to local UTC otherwise. Multiple
// processes therefore agree on window identity despite local clock skew.
package window
