// Package goSessions provides an embeddable authentication session engine with
// JWT access tokens, rotating refresh tokens tracked as family/generation
// chains, replay detection with whole-family revocation, and Redis-backed
// session controls.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSessions is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, SessionInfo, MetricsSnapshot, etc.). All
// internal coordination — flow orchestration, session encoding, rate limiting,
// audit dispatch — lives under internal/ and is never exported. The session,
// refresh, blacklist, jwt, and password packages are importable for callers
// that embed their own orchestration, but the Engine is the supported entry
// point.
//
// # What this package must NOT do
//
//   - Expose Redis clients, Lua scripts, or encoding details in its public API.
//   - Own user records: credential storage, lockout counters, and the token
//     version live behind the caller's [UserProvider].
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Rotation contract
//
// Refresh is a compare-and-swap on the presented token's ledger row: of N
// concurrent rotations exactly one succeeds and every loser observes a reuse,
// which revokes the whole family. A replayed token therefore ends the chain
// for attacker and victim alike.
package goSessions
