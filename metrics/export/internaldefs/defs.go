package internaldefs

import (
	goSessions "github.com/RKessler93/goSessions"
)

// CounterDef defines a public type used by goSessions APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goSessions.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goSessions APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goSessions.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session engine.
var CounterDefs = []CounterDef{
	{ID: goSessions.MetricLoginSuccess, Name: "gosessions_login_success_total", Help: "Successful login attempts."},
	{ID: goSessions.MetricLoginFailure, Name: "gosessions_login_failure_total", Help: "Failed login attempts."},
	{ID: goSessions.MetricLoginRateLimited, Name: "gosessions_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goSessions.MetricLoginLockedOut, Name: "gosessions_login_locked_out_total", Help: "Login attempts rejected while locked out."},
	{ID: goSessions.MetricLockoutTriggered, Name: "gosessions_lockout_triggered_total", Help: "Automatic account lockouts."},
	{ID: goSessions.MetricRefreshSuccess, Name: "gosessions_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goSessions.MetricRefreshFailure, Name: "gosessions_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: goSessions.MetricRefreshRateLimited, Name: "gosessions_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: goSessions.MetricReuseDetected, Name: "gosessions_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: goSessions.MetricFamilyRevoked, Name: "gosessions_family_revoked_total", Help: "Token family revocation cascades."},
	{ID: goSessions.MetricStaleTokenVersion, Name: "gosessions_stale_token_version_total", Help: "Tokens rejected by the version check."},
	{ID: goSessions.MetricSessionCreated, Name: "gosessions_session_created_total", Help: "Created sessions."},
	{ID: goSessions.MetricSessionInvalidated, Name: "gosessions_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: goSessions.MetricLogout, Name: "gosessions_logout_total", Help: "Single-session logout operations."},
	{ID: goSessions.MetricLogoutAll, Name: "gosessions_logout_all_total", Help: "Logout-all operations."},
	{ID: goSessions.MetricTokenBlacklisted, Name: "gosessions_token_blacklisted_total", Help: "Access tokens added to the blacklist."},
	{ID: goSessions.MetricBlacklistPurged, Name: "gosessions_blacklist_purged_total", Help: "Blacklist index purge sweeps that removed entries."},
	{ID: goSessions.MetricValidateSuccess, Name: "gosessions_validate_success_total", Help: "Successful access-token validations."},
	{ID: goSessions.MetricValidateFailure, Name: "gosessions_validate_failure_total", Help: "Failed access-token validations."},
}

// HistogramDefs is an exported constant or variable used by the session engine.
var HistogramDefs = []HistogramDef{
	{ID: goSessions.MetricValidateLatency, Name: "gosessions_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
