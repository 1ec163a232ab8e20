// Package session provides the Redis-backed session record store:
// a versioned binary codec for session rows plus save, lookup,
// soft-deactivation, and family/user index maintenance.
//
// # Architecture boundaries
//
// This package owns the session row format and its Redis layout. It
// does not know about JWTs, refresh-token rotation rules, or account
// state; callers hand it fully-populated [Session] values and decide
// when a row becomes inactive or compromised.
//
// # What this package must NOT do
//
//   - Parse or validate tokens.
//   - Decide revocation policy.
//   - Emit audit events or metrics.
package session
