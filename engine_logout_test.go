package goSessions

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutKillsTokenSessionAndFamily(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()
	user := seedUser(t, up, "alice", "correct-pass-123")

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	login, err := engine.Login(ctx, "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(ctx, login.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, login.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
	if _, err := engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected sibling refresh token revoked, got %v", err)
	}

	sessions, err := engine.ActiveSessions(ctx, user.UUID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sessions))
	}
}

func TestLogoutLeavesOtherSessionsAlone(t *testing.T) {
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
	second, err := engine.Login(ctx, "alice", "correct-pass-123")
	if err != nil {
		t.Fatalf("second Login failed: %v", err)
	}

	if err := engine.Logout(ctx, first.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, second.AccessToken); err != nil {
		t.Fatalf("expected second session untouched, got %v", err)
	}
	if _, err := engine.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("expected second family untouched, got %v", err)
	}

	sessions, err := engine.ActiveSessions(ctx, user.UUID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one surviving session, got %d", len(sessions))
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
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
		t.Fatalf("first Logout failed: %v", err)
	}
	if err := engine.Logout(ctx, login.AccessToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
}

func TestLogoutMalformedToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	up := newMockUserProvider()

	engine := newTestEngine(t, rdb, up, clock, newTestConfig(t))
	defer engine.Close()

	if err := engine.Logout(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
