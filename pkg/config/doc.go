// Package config defines the Themis configuration, loaded from YAML with
// environment variable overrides.
//
// The loading sequence is fixed: parse the file, apply defaults, apply
// THEMIS_* environment overrides, validate. Validation failures are fatal;
// a process must never start governing quota with a zero or negative limit.
// A Watcher can re-load the file on change and push the new limits into the
// running governors without a restart.
package config
