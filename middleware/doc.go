// Package middleware exposes an HTTP guard built on top of
// goSessions.Engine access-token validation.
//
// [Guard] reads the Authorization header, calls Engine.ValidateAccess with the
// request's client address attached, and injects the validated [goSessions.AuthResult]
// into the request context for downstream handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.ValidateAccess.
package middleware
