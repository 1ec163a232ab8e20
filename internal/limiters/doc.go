// Package limiters implements domain-specific abuse policies layered
// on top of raw counters: currently the persistent account lockout
// guard. Unlike the fixed-window limiter in internal/rate, lockout
// state lives on the caller's user record so it survives Redis flushes
// and follows the account across deployments.
//
// # What this package must NOT do
//
//   - Talk to Redis directly.
//   - Be imported outside the goSessions module.
package limiters
