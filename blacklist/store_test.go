package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBlacklistTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "gs")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestAddAndContains(t *testing.T) {
	store, _, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-1", TypeAccess, "logout", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}

	blocked, err := store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !blocked {
		t.Fatal("expected jti-1 to be blocked")
	}

	blocked, err = store.Contains(ctx, "jti-other")
	if err != nil {
		t.Fatalf("contains other: %v", err)
	}
	if blocked {
		t.Fatal("expected jti-other to be unblocked")
	}
}

func TestGetReturnsRecordedEntry(t *testing.T) {
	store, _, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	expiresAt := time.Now().Add(10 * time.Minute)
	if err := store.Add(ctx, "jti-1", TypeRefresh, "compromised", expiresAt); err != nil {
		t.Fatalf("add: %v", err)
	}

	entry, err := store.Get(ctx, "jti-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry for jti-1")
	}
	if entry.TokenType != TypeRefresh {
		t.Fatalf("expected token type %q, got %q", TypeRefresh, entry.TokenType)
	}
	if entry.Reason != "compromised" {
		t.Fatalf("expected reason %q, got %q", "compromised", entry.Reason)
	}
	if entry.ExpiresAt.Unix() != expiresAt.Unix() {
		t.Fatalf("expected expiry %v, got %v", expiresAt.Unix(), entry.ExpiresAt.Unix())
	}

	entry, err = store.Get(ctx, "jti-unknown")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry for unknown jti, got %+v", entry)
	}
}

func TestAddPastExpiryIsNoOp(t *testing.T) {
	store, _, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-dead", TypeAccess, "logout", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("add past expiry: %v", err)
	}

	blocked, err := store.Contains(ctx, "jti-dead")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if blocked {
		t.Fatal("expired token must not be added")
	}
}

func TestEntryExpiresWithToken(t *testing.T) {
	store, mr, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-1", TypeAccess, "rotated", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	blocked, err := store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if blocked {
		t.Fatal("entry must expire with the token")
	}
}

func TestPurgeExpiredTrimsIndex(t *testing.T) {
	store, _, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-soon", TypeAccess, "logout", time.Now().Add(time.Second)); err != nil {
		t.Fatalf("add soon: %v", err)
	}
	if err := store.Add(ctx, "jti-later", TypeAccess, "logout", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("add later: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 index entries, got %d", count)
	}

	// Nothing expired yet.
	removed, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 purged, got %d", removed)
	}

	time.Sleep(1100 * time.Millisecond)

	removed, err = store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged, got %d", removed)
	}

	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("count after purge: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", count)
	}
}
