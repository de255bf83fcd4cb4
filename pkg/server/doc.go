// Package server provides the HTTP admin surface for the quota governors.
//
// The server exposes read-only quota state (current windows, spend
// breakdown, recommendations, archived history), the administrative
// overrides (window resets, provider rejection reports), the health probe
// and the Prometheus metrics endpoint. It is an operator surface, not a
// data path: admission checks happen in-process through quota.Manager, not
// over HTTP.
package server
