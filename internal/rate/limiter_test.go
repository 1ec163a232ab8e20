package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, cfg), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func loginConfig() Config {
	return Config{
		EnableLoginThrottle: true,
		MaxLoginAttempts:    3,
		LoginWindow:         time.Minute,
		LoginBlockDuration:  5 * time.Minute,
	}
}

func TestLoginWithinBudget(t *testing.T) {
	limiter, _, done := newLimiterTest(t, loginConfig())
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}

	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after budget exhausted, got %v", err)
	}
}

func TestEveryCheckConsumesAnAttempt(t *testing.T) {
	limiter, _, done := newLimiterTest(t, loginConfig())
	defer done()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", want, err)
		}
		attempts, err := limiter.LoginAttempts(ctx, "alice")
		if err != nil {
			t.Fatalf("login attempts: %v", err)
		}
		if attempts != want {
			t.Fatalf("expected %d attempts consumed, got %d", want, attempts)
		}
	}
}

func TestExceedingBudgetArmsBlock(t *testing.T) {
	limiter, mr, done := newLimiterTest(t, loginConfig())
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on over-budget check, got %v", err)
	}

	// The block outlives the window.
	mr.FastForward(2 * time.Minute)
	limiter.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected block to survive window rollover, got %v", err)
	}

	// After the block duration only, attempts resume.
	mr.FastForward(5 * time.Minute)
	limiter.WithClock(func() time.Time { return time.Now().Add(7 * time.Minute) })
	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected clean slate after block expiry, got %v", err)
	}
}

func TestWindowRolloverResetsCounter(t *testing.T) {
	limiter, _, done := newLimiterTest(t, loginConfig())
	defer done()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).Truncate(time.Minute)
	limiter.WithClock(func() time.Time { return base })

	for i := 0; i < 2; i++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}

	// Next window: counter starts fresh because the key carries the
	// window start.
	limiter.WithClock(func() time.Time { return base.Add(time.Minute) })
	attempts, err := limiter.LoginAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("login attempts: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected fresh window, got %d attempts", attempts)
	}
}

func TestIPThrottleIndependentOfIdentity(t *testing.T) {
	cfg := loginConfig()
	cfg.EnableIPThrottle = true
	limiter, _, done := newLimiterTest(t, cfg)
	defer done()
	ctx := context.Background()

	// Different identities, same IP: the IP budget is shared.
	for i, identity := range []string{"a", "b", "c"} {
		if err := limiter.CheckLogin(ctx, identity, "10.0.0.1"); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}

	if err := limiter.CheckLogin(ctx, "d", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected shared IP budget to limit, got %v", err)
	}
	if err := limiter.CheckLogin(ctx, "e", "10.0.0.2"); err != nil {
		t.Fatalf("expected other IP unaffected, got %v", err)
	}
}

func TestRefreshThrottle(t *testing.T) {
	limiter, _, done := newLimiterTest(t, Config{
		EnableRefreshThrottle: true,
		MaxRefreshAttempts:    2,
		RefreshWindow:         time.Minute,
		RefreshBlockDuration:  time.Minute,
	})
	defer done()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRefresh(ctx, "fam-1"); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if err := limiter.CheckRefresh(ctx, "fam-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Other families are unaffected.
	if err := limiter.CheckRefresh(ctx, "fam-2"); err != nil {
		t.Fatalf("expected fam-2 unaffected, got %v", err)
	}
}

func TestDisabledThrottlesAreNoOps(t *testing.T) {
	limiter, _, done := newLimiterTest(t, Config{})
	defer done()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := limiter.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := limiter.CheckRefresh(ctx, "fam-1"); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
}
