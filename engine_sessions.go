package goSessions

import (
	"context"
	"strconv"

	"github.com/RKessler93/goSessions/blacklist"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
)

// ActiveSessions describes the activesessions operation and its observable behavior.
//
// ActiveSessions lists the live session rows for a user. Rows come
// back in index order; ordering is left to the caller.
//
// ActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveSessions(ctx context.Context, userUUID string) ([]SessionInfo, error) {
	rows, err := e.sessions.ActiveForUser(ctx, userUUID)
	if err != nil {
		return nil, ErrInternal
	}
	infos := make([]SessionInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, sessionInfoFromRow(row))
	}
	return infos, nil
}

// InvalidateSession describes the invalidatesession operation and its observable behavior.
//
// InvalidateSession deactivates one session row by its ID and
// blacklists the matching access token for the access TTL. The refresh
// chain is left intact; use [Engine.Logout] or
// [Engine.InvalidateAllSessions] to kill chains.
//
// InvalidateSession may return an error when input validation, dependency calls, or security checks fail.
// InvalidateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.Deactivate(ctx, sessionID); err != nil {
		return ErrInternal
	}
	if err := e.blacklist.Add(ctx, sessionID, blacklist.TypeAccess, "session_invalidated", e.now().Add(e.config.JWT.AccessTTL)); err != nil {
		return ErrInternal
	}
	e.metricInc(internalmetrics.MetricSessionInvalidated)
	return nil
}

// InvalidateAllSessions describes the invalidateallsessions operation and its observable behavior.
//
// InvalidateAllSessions bumps the user's token version and deactivates
// every indexed session row. The version bump is the load-bearing half:
// any token minted before it fails validation even if its row slipped
// past the index sweep.
//
// InvalidateAllSessions may return an error when input validation, dependency calls, or security checks fail.
// InvalidateAllSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) InvalidateAllSessions(ctx context.Context, userUUID string) (int, error) {
	newVersion, err := e.userProvider.IncrementTokenVersion(ctx, userUUID)
	if err != nil {
		return 0, ErrInternal
	}

	marked, err := e.sessions.DeactivateAllForUser(ctx, userUUID)
	if err != nil {
		return marked, ErrInternal
	}

	e.metricInc(internalmetrics.MetricLogoutAll)
	e.emitAudit(ctx, EventLogoutAll, true, "", userUUID, "", nil, func() map[string]string {
		return map[string]string{
			"sessions_invalidated": strconv.Itoa(marked),
			"token_version":        strconv.FormatUint(uint64(newVersion), 10),
		}
	})
	return marked, nil
}

// InvalidateDeviceSessions describes the invalidatedevicesessions operation and its observable behavior.
//
// InvalidateDeviceSessions deactivates every active session a user
// holds on one device. Tokens from those sessions still fail strict
// validation via the inactive rows.
//
// InvalidateDeviceSessions may return an error when input validation, dependency calls, or security checks fail.
// InvalidateDeviceSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) InvalidateDeviceSessions(ctx context.Context, userUUID, deviceID string) (int, error) {
	marked, err := e.sessions.DeactivateForDevice(ctx, userUUID, deviceID)
	if err != nil {
		return marked, ErrInternal
	}
	for i := 0; i < marked; i++ {
		e.metricInc(internalmetrics.MetricSessionInvalidated)
	}
	return marked, nil
}

// UnlockAccount describes the unlockaccount operation and its observable behavior.
//
// UnlockAccount clears the lockout stamp and the consecutive failure
// counter. Administrative override for the automatic lockout guard.
//
// UnlockAccount may return an error when input validation, dependency calls, or security checks fail.
// UnlockAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UnlockAccount(ctx context.Context, userUUID string) error {
	if err := e.userProvider.SetLockout(ctx, userUUID, nil); err != nil {
		return ErrInternal
	}
	if err := e.userProvider.ResetLoginAttempts(ctx, userUUID); err != nil {
		return ErrInternal
	}
	e.emitAudit(ctx, EventAccountUnlocked, true, "", userUUID, "", nil, nil)
	return nil
}

// PurgeBlacklist describes the purgeblacklist operation and its observable behavior.
//
// PurgeBlacklist removes expired entries from the blacklist index and
// returns the number trimmed. Entry keys expire on their own; this
// sweep only compacts the index ZSET.
//
// PurgeBlacklist may return an error when input validation, dependency calls, or security checks fail.
// PurgeBlacklist does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PurgeBlacklist(ctx context.Context) (int, error) {
	purged, err := e.blacklist.PurgeExpired(ctx)
	if err != nil {
		return 0, ErrInternal
	}
	if purged > 0 {
		e.metricInc(internalmetrics.MetricBlacklistPurged)
	}
	return purged, nil
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport may return an error when input validation, dependency calls, or security checks fail.
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport(ctx context.Context) SecurityReport {
	blacklisted, err := e.blacklist.Count(ctx)
	if err != nil {
		blacklisted = -1
	}

	return SecurityReport{
		LockoutEnabled:        e.config.Lockout.Enabled,
		LockoutThreshold:      e.config.Lockout.Threshold,
		LockoutDuration:       e.config.Lockout.Duration,
		LoginThrottleEnabled:  e.config.RateLimit.EnableLoginThrottle,
		IPThrottleEnabled:     e.config.RateLimit.EnableIPThrottle,
		RefreshThrottle:       e.config.RateLimit.EnableRefreshThrottle,
		RefreshRotation:       true,
		ReuseDetection:        true,
		AccessTTL:             e.config.JWT.AccessTTL,
		RefreshTTL:            e.config.JWT.RefreshTTL,
		PasswordUpgradeOnUse:  e.config.Password.UpgradeOnLogin,
		AuditEnabled:          e.config.Audit.Enabled,
		MetricsEnabled:        e.config.Metrics.Enabled,
		BlacklistedTokenCount: blacklisted,
	}
}
