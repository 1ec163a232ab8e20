// Package refresh implements the Redis-backed refresh-token ledger:
// one hash row per issued refresh token, a per-family index of every
// token ever minted in a rotation chain, and an atomic compare-and-swap
// consume that marks a token used and mints its successor in a single
// Redis round trip.
//
// The consume CAS is what makes reuse detection sound under
// concurrency: of N racing refresh calls presenting the same token,
// exactly one observes an unused row and wins; every other call sees
// the used marker and reports a replay.
//
// # Architecture boundaries
//
// This package owns refresh-token persistence and the at-most-once
// consume guarantee. It does not parse JWTs, apply account policy, or
// decide what a replay means; callers map its sentinel errors onto
// their own revocation responses.
//
// # What this package must NOT do
//
//   - Verify token signatures or claims.
//   - Trigger session deactivation or blacklisting.
//   - Emit audit events or metrics.
package refresh
