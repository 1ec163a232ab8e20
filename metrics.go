package goSessions

import internalmetrics "github.com/RKessler93/goSessions/internal/metrics"

// MetricID defines a public type used by goSessions APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant or variable used by the session engine.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the session engine.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the session engine.
	MetricLoginRateLimited = internalmetrics.MetricLoginRateLimited
	// MetricLoginLockedOut is an exported constant or variable used by the session engine.
	MetricLoginLockedOut = internalmetrics.MetricLoginLockedOut
	// MetricLockoutTriggered is an exported constant or variable used by the session engine.
	MetricLockoutTriggered = internalmetrics.MetricLockoutTriggered
	// MetricRefreshSuccess is an exported constant or variable used by the session engine.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the session engine.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricRefreshRateLimited is an exported constant or variable used by the session engine.
	MetricRefreshRateLimited = internalmetrics.MetricRefreshRateLimited
	// MetricReuseDetected is an exported constant or variable used by the session engine.
	MetricReuseDetected = internalmetrics.MetricReuseDetected
	// MetricFamilyRevoked is an exported constant or variable used by the session engine.
	MetricFamilyRevoked = internalmetrics.MetricFamilyRevoked
	// MetricStaleTokenVersion is an exported constant or variable used by the session engine.
	MetricStaleTokenVersion = internalmetrics.MetricStaleTokenVersion
	// MetricSessionCreated is an exported constant or variable used by the session engine.
	MetricSessionCreated = internalmetrics.MetricSessionCreated
	// MetricSessionInvalidated is an exported constant or variable used by the session engine.
	MetricSessionInvalidated = internalmetrics.MetricSessionInvalidated
	// MetricLogout is an exported constant or variable used by the session engine.
	MetricLogout = internalmetrics.MetricLogout
	// MetricLogoutAll is an exported constant or variable used by the session engine.
	MetricLogoutAll = internalmetrics.MetricLogoutAll
	// MetricTokenBlacklisted is an exported constant or variable used by the session engine.
	MetricTokenBlacklisted = internalmetrics.MetricTokenBlacklisted
	// MetricBlacklistPurged is an exported constant or variable used by the session engine.
	MetricBlacklistPurged = internalmetrics.MetricBlacklistPurged
	// MetricValidateSuccess is an exported constant or variable used by the session engine.
	MetricValidateSuccess = internalmetrics.MetricValidateSuccess
	// MetricValidateFailure is an exported constant or variable used by the session engine.
	MetricValidateFailure = internalmetrics.MetricValidateFailure
	// MetricValidateLatency is an exported constant or variable used by the session engine.
	MetricValidateLatency = internalmetrics.MetricValidateLatency
)

// MetricsSnapshot defines a public type used by goSessions APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot = internalmetrics.Snapshot

// MetricBucketBoundsMillis returns the upper bounds, in milliseconds,
// of the fixed validation-latency histogram buckets. The final bucket
// is unbounded.
func MetricBucketBoundsMillis() []int64 {
	return internalmetrics.BucketBoundsMillis()
}
