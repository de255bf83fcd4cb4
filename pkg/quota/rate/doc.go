// Package rate enforces the fixed hourly call quota imposed by the external
// judicial-records provider.
//
// The governor wraps one hourly window accountant. Callers check
// IsRateLimited before issuing the external call and Consume only after the
// call actually reached the provider; a call that failed before leaving the
// process is never counted, while a call that reached the provider and failed
// downstream still counts once.
//
// Two properties distinguish this governor from the spend governor:
//
//   - It fails closed. If the counter store is unreachable, admission is
//     denied: under-counting calls against a hard provider ceiling risks
//     provider-side throttling or suspension, which is strictly worse than
//     a transient local stall.
//   - The provider's live response is authoritative. If the provider rejects
//     a call for rate limiting while local accounting reads healthy, the
//     governor records the block (with the provider-declared reset time) in
//     the shared store so every process observes it. Local accounting is a
//     prediction; the provider is ground truth.
package rate
