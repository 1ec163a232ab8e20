// Package internal contains helper utilities that are intentionally private to
// goSessions, including identifier generation and token digest helpers.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//   - limiters — the account lockout guard
//   - metrics — lock-free counters and latency histograms
//   - rate — Redis-backed fixed-window rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSessions API.
//   - Be imported by any package outside the goSessions module.
package internal
