// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive authentication workflows.
//
// # Window semantics
//
// Fixed-window counters: keys carry the window start timestamp, so a
// new window always begins from zero. INCR + conditional EXPIRE on
// first hit. Exceeding a window's budget arms a separate block key that
// outlives the window. Key prefixes:
//   - rl:  — window counters (endpoint, subject, window start)
//   - rlb: — block markers (endpoint, subject)
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goSessions module.
package rate
