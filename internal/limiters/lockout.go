package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LockoutConfig holds configuration for the automatic account lockout guard.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration // 0 = manual unlock only
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// LockoutDeps wires the guard to the caller's user store. The counter
// and lockout timestamp live on the user record, not in Redis, so a
// cache flush cannot reset an attacker's failure count.
type LockoutDeps struct {
	// IncrementAttempts adds one consecutive failure and returns the
	// new count.
	IncrementAttempts func(ctx context.Context, userUUID string) (int, error)

	// ResetAttempts zeroes the consecutive failure count.
	ResetAttempts func(ctx context.Context, userUUID string) error

	// SetLockout stamps the lockout expiry on the user record.
	SetLockout func(ctx context.Context, userUUID string, until time.Time) error

	// ClearLockout removes any lockout stamp from the user record.
	ClearLockout func(ctx context.Context, userUUID string) error
}

// LockoutGuard tracks persistent failed login attempts and triggers
// account lockout when the configured threshold is reached.
type LockoutGuard struct {
	config LockoutConfig
	deps   LockoutDeps
	now    func() time.Time
}

// NewLockoutGuard creates a new lockout guard.
func NewLockoutGuard(cfg LockoutConfig, deps LockoutDeps) *LockoutGuard {
	return &LockoutGuard{config: cfg, deps: deps, now: time.Now}
}

// WithClock overrides the guard's time source. Test hook.
func (g *LockoutGuard) WithClock(now func() time.Time) *LockoutGuard {
	g.now = now
	return g
}

// IsLockedOut reports whether a lockout stamp is still in force.
// A nil stamp or one in the past means the account may attempt login;
// the stale counter is only cleared by an explicit success.
func (g *LockoutGuard) IsLockedOut(lockoutUntil *time.Time) bool {
	if !g.config.Enabled || lockoutUntil == nil {
		return false
	}
	return g.now().Before(*lockoutUntil)
}

// RecordFailure increments the failure counter for a user and stamps
// the lockout expiry when the threshold is reached. Returns true when
// this failure locked the account.
func (g *LockoutGuard) RecordFailure(ctx context.Context, userUUID string) (bool, error) {
	if !g.config.Enabled || userUUID == "" {
		return false, nil
	}

	count, err := g.deps.IncrementAttempts(ctx, userUUID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count < g.config.Threshold {
		return false, nil
	}

	until := g.now().Add(g.config.Duration)
	if g.config.Duration <= 0 {
		// Manual unlock only: stamp far enough out that it never
		// lapses on its own.
		until = g.now().Add(100 * 365 * 24 * time.Hour)
	}
	if err := g.deps.SetLockout(ctx, userUUID, until); err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return true, nil
}

// RecordSuccess clears the failure counter and any lockout stamp after
// a successful login or a manual unlock. Lockout expiry alone never
// clears the counter.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, userUUID string) error {
	if !g.config.Enabled || userUUID == "" {
		return nil
	}

	if err := g.deps.ResetAttempts(ctx, userUUID); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if g.deps.ClearLockout != nil {
		if err := g.deps.ClearLockout(ctx, userUUID); err != nil {
			return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}
	return nil
}
