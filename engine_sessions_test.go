package goSessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestActiveSessionsReflectsDeviceContext(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()
	user := seedUser(t, up, "alice", "correct-pass-123")

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	phoneCtx := WithDeviceInfo(WithDeviceID(WithClientIP(ctx, "10.0.0.1"), "dev-phone"), "Phone 15")
	if _, err := engine.Login(phoneCtx, "alice", "correct-pass-123"); err != nil {
		t.Fatalf("phone Login failed: %v", err)
	}
	laptopCtx := WithDeviceID(ctx, "dev-laptop")
	if _, err := engine.Login(laptopCtx, "alice", "correct-pass-123"); err != nil {
		t.Fatalf("laptop Login failed: %v", err)
	}

	sessions, err := engine.ActiveSessions(ctx, user.UUID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	byDevice := make(map[string]SessionInfo, len(sessions))
	for _, s := range sessions {
		byDevice[s.DeviceID] = s
	}
	phone, ok := byDevice["dev-phone"]
	if !ok {
		t.Fatalf("missing phone session in %+v", sessions)
	}
	if phone.DeviceInfo != "Phone 15" || phone.IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected phone session metadata: %+v", phone)
	}
	if phone.LoginMethod != "password" {
		t.Fatalf("expected default login method, got %q", phone.LoginMethod)
	}
	if _, ok := byDevice["dev-laptop"]; !ok {
		t.Fatalf("missing laptop session in %+v", sessions)
	}
}

func TestInvalidateSessionBlocksItsAccessToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()
	seedUser(t, up, "alice", "correct-pass-123")

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	login, err := engine.Login(ctx, "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.InvalidateSession(ctx, login.SessionID); err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, login.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestInvalidateAllSessionsBumpsTokenVersion(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()
	user := seedUser(t, up, "alice", "correct-pass-123")

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	first, err := engine.Login(ctx, "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("first Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "correct-pass-123"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}

	n, err := engine.InvalidateAllSessions(ctx, user.UUID)
	if err != nil {
		t.Fatalf("InvalidateAllSessions failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 invalidated sessions, got %d", n)
	}
	if up.incrementVersionCalls != 1 {
		t.Fatalf("expected one version bump, got %d", up.incrementVersionCalls)
	}
	if got := up.user(user.UUID).TokenVersion; got != 1 {
		t.Fatalf("expected token version 1, got %d", got)
	}

	sessions, err := engine.ActiveSessions(ctx, user.UUID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sessions))
	}

	// Outstanding refresh tokens carry the old version and die on use.
	if _, err := engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrStaleTokenVersion) {
		t.Fatalf("expected ErrStaleTokenVersion, got %v", err)
	}

	// A fresh login works and carries the new version.
	relogin, err := engine.Login(ctx, "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("re-Login failed: %v", err)
	}
	if _, err := engine.ValidateAccess(ctx, relogin.AccessToken); err != nil {
		t.Fatalf("ValidateAccess after re-login failed: %v", err)
	}
}

func TestInvalidateDeviceSessions(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()
	user := seedUser(t, up, "alice", "correct-pass-123")

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	phone, err := engine.Login(WithDeviceID(ctx, "dev-phone"), "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("phone Login failed: %v", err)
	}
	laptop, err := engine.Login(WithDeviceID(ctx, "dev-laptop"), "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("laptop Login failed: %v", err)
	}

	n, err := engine.InvalidateDeviceSessions(ctx, user.UUID, "dev-phone")
	if err != nil {
		t.Fatalf("InvalidateDeviceSessions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 invalidated session, got %d", n)
	}

	if _, err := engine.ValidateAccess(ctx, phone.AccessToken); !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("expected ErrSessionInactive for phone, got %v", err)
	}
	if _, err := engine.ValidateAccess(ctx, laptop.AccessToken); err != nil {
		t.Fatalf("expected laptop session untouched, got %v", err)
	}
}

func TestPurgeBlacklistTrimsLapsedIndexEntries(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()
	seedUser(t, up, "alice", "correct-pass-123")

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	login, err := engine.Login(ctx, "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := engine.Logout(ctx, login.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	report := engine.SecurityReport(ctx)
	if report.BlacklistedTokenCount != 1 {
		t.Fatalf("expected 1 blacklisted token, got %d", report.BlacklistedTokenCount)
	}

	// A live entry is not purged.
	n, err := engine.PurgeBlacklist(ctx)
	if err != nil {
		t.Fatalf("PurgeBlacklist failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing purged, got %d", n)
	}

	// Seed a lapsed index entry the way an expired token leaves one behind.
	lapsed := time.Now().Add(-time.Hour).Unix()
	if err := rdb.ZAdd(ctx, "gs:blx", redis.Z{Score: float64(lapsed), Member: "old-jti"}).Err(); err != nil {
		t.Fatalf("seed lapsed entry failed: %v", err)
	}

	n, err = engine.PurgeBlacklist(ctx)
	if err != nil {
		t.Fatalf("PurgeBlacklist failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged entry, got %d", n)
	}
	if got := engine.SecurityReport(ctx).BlacklistedTokenCount; got != 1 {
		t.Fatalf("expected live entry to survive, got %d", got)
	}
}

func TestSecurityReportMirrorsConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()

	cfg := newTestConfig(t)
	cfg.Lockout.Threshold = 7
	cfg.Lockout.Duration = 45 * time.Minute
	cfg.RateLimit.EnableIPThrottle = true
	cfg.Metrics.Enabled = true

	engine := newTestEngine(t, rdb, up, clock, cfg)
	defer engine.Close()

	report := engine.SecurityReport(ctx)
	if !report.LockoutEnabled || report.LockoutThreshold != 7 || report.LockoutDuration != 45*time.Minute {
		t.Fatalf("unexpected lockout posture: %+v", report)
	}
	if !report.LoginThrottleEnabled || !report.IPThrottleEnabled || !report.RefreshThrottle {
		t.Fatalf("unexpected throttle posture: %+v", report)
	}
	if !report.RefreshRotation || !report.ReuseDetection {
		t.Fatalf("rotation and reuse detection are always on: %+v", report)
	}
	if report.AccessTTL != cfg.JWT.AccessTTL || report.RefreshTTL != cfg.JWT.RefreshTTL {
		t.Fatalf("unexpected TTLs: %+v", report)
	}
	if !report.MetricsEnabled || report.AuditEnabled {
		t.Fatalf("unexpected observability posture: %+v", report)
	}
	if report.BlacklistedTokenCount != 0 {
		t.Fatalf("expected empty blacklist, got %d", report.BlacklistedTokenCount)
	}
}
