// Package rate enforces fixed-window request admission in front of the
// API's sensitive endpoints.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. A bucket
// is keyed by (route class, client identity) under the rl: prefix and is
// discarded by Redis when its window expires. The increment is a single
// Redis command, so two concurrent requests can never both take the last
// remaining slot in a window.
//
// The policy table (class -> limit/window) is data, kept apart from request
// dispatch; handlers compose it through the admission middleware.
package rate
