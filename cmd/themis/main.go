// Themis is a quota governance service for legal-tech workloads.
//
// It governs two external budgets: the fixed-rate judicial-records API
// quota and the AI-inference spend ceiling. Admission decisions are made
// against shared counters in a pluggable store, so any number of stateless
// processes converge on the same answer.
//
// Usage:
//
//	# Start the admin server with default configuration
//	themis run
//
//	# Start with a custom configuration file
//	themis run --config /etc/themis/themis.yaml
//
//	# Show the current quota state
//	themis status
//
//	# Reset the current rate window (admin override)
//	themis reset --rate
//
//	# Validate a configuration file
//	themis validate
package main

func main() {
	Execute()
}
