package goSessions

import (
	"io"

	internalaudit "github.com/RKessler93/goSessions/internal/audit"
)

// AuditEvent is the event model delivered to audit sinks. One event is
// emitted per authentication decision; a detected reuse additionally
// emits a family_revoked event describing the cascade.
type AuditEvent = internalaudit.Event

// AuditSink receives emitted audit events. Implementations must be safe
// for concurrent use; the dispatcher calls Emit from a single goroutine
// but sinks may be shared across engines.
type AuditSink = internalaudit.Sink

// NoOpSink defines a public type used by goSessions APIs.
//
// NoOpSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink defines a public type used by goSessions APIs.
//
// ChannelSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink defines a public type used by goSessions APIs.
//
// JSONWriterSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
//
// NewChannelSink may return an error when input validation, dependency calls, or security checks fail.
// NewChannelSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
//
// NewJSONWriterSink may return an error when input validation, dependency calls, or security checks fail.
// NewJSONWriterSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// Audit event type names. Stable strings: downstream pipelines key on
// them.
const (
	// EventLoginSuccess is an exported constant or variable used by the session engine.
	EventLoginSuccess = "login_success"
	// EventLoginFailure is an exported constant or variable used by the session engine.
	EventLoginFailure = "login_failure"
	// EventLoginRateLimited is an exported constant or variable used by the session engine.
	EventLoginRateLimited = "login_rate_limited"
	// EventLoginLockedOut is an exported constant or variable used by the session engine.
	EventLoginLockedOut = "login_locked_out"
	// EventLockoutTriggered is an exported constant or variable used by the session engine.
	EventLockoutTriggered = "lockout_triggered"
	// EventRefreshSuccess is an exported constant or variable used by the session engine.
	EventRefreshSuccess = "refresh_success"
	// EventRefreshFailure is an exported constant or variable used by the session engine.
	EventRefreshFailure = "refresh_failure"
	// EventRefreshRateLimited is an exported constant or variable used by the session engine.
	EventRefreshRateLimited = "refresh_rate_limited"
	// EventReuseDetected is an exported constant or variable used by the session engine.
	EventReuseDetected = "refresh_reuse_detected"
	// EventFamilyRevoked is an exported constant or variable used by the session engine.
	EventFamilyRevoked = "family_revoked"
	// EventLogout is an exported constant or variable used by the session engine.
	EventLogout = "logout"
	// EventLogoutAll is an exported constant or variable used by the session engine.
	EventLogoutAll = "logout_all"
	// EventAccountUnlocked is an exported constant or variable used by the session engine.
	EventAccountUnlocked = "account_unlocked"
)
