package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	EnableRefreshThrottle bool

	MaxLoginAttempts   int
	LoginWindow        time.Duration
	LoginBlockDuration time.Duration

	MaxRefreshAttempts   int
	RefreshWindow        time.Duration
	RefreshBlockDuration time.Duration
}

// Limiter enforces fixed-window rate limits for login and refresh
// operations using Redis counters. Windows are keyed by their start
// timestamp; exceeding a window's budget arms a block marker that
// rejects the subject until it expires, even after the window rolls
// over.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// WithClock overrides the limiter's time source. Test hook.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func windowKey(endpoint, kind, subject string, windowStart int64) string {
	return "rl:" + endpoint + ":" + kind + ":" + subject + ":" + strconv.FormatInt(windowStart, 10)
}

func blockKey(endpoint, kind, subject string) string {
	return "rlb:" + endpoint + ":" + kind + ":" + subject
}

// CheckLogin consumes one login attempt for the identifier+IP pair.
// Every request counts against the window budget whether or not the
// credentials turn out to be valid. Blocked subjects and over-budget
// windows receive [ErrRateLimited]; exceeding the budget arms a block
// marker that outlives the window itself.
func (l *Limiter) CheckLogin(ctx context.Context, identity, ip string) error {
	if !l.config.EnableLoginThrottle {
		return nil
	}

	if err := l.checkBlocked(ctx, blockKey("login", "u", identity)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkBlocked(ctx, blockKey("login", "ip", ip)); err != nil {
			return err
		}
	}

	err := l.recordSubject(ctx, "login", "u", identity,
		l.config.MaxLoginAttempts, l.config.LoginWindow, l.config.LoginBlockDuration)
	if err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		return l.recordSubject(ctx, "login", "ip", ip,
			l.config.MaxLoginAttempts, l.config.LoginWindow, l.config.LoginBlockDuration)
	}

	return nil
}

// CheckRefresh consumes one refresh attempt for the family. Returns
// [ErrRateLimited] when the family is blocked or over budget.
func (l *Limiter) CheckRefresh(ctx context.Context, familyID string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	if err := l.checkBlocked(ctx, blockKey("refresh", "f", familyID)); err != nil {
		return err
	}

	return l.recordSubject(ctx, "refresh", "f", familyID,
		l.config.MaxRefreshAttempts, l.config.RefreshWindow, l.config.RefreshBlockDuration)
}

// LoginAttempts returns the current-window attempt counter for an
// identifier. Missing keys return zero and do not reveal account
// existence.
func (l *Limiter) LoginAttempts(ctx context.Context, identity string) (int, error) {
	key := windowKey("login", "u", identity, l.windowStart(l.config.LoginWindow))
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) windowStart(window time.Duration) int64 {
	if window <= 0 {
		window = time.Minute
	}
	return l.now().Truncate(window).Unix()
}

func (l *Limiter) checkBlocked(ctx context.Context, key string) error {
	n, err := l.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n == 1 {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) recordSubject(
	ctx context.Context,
	endpoint, kind, subject string,
	maxAttempts int,
	window, blockDuration time.Duration,
) error {
	key := windowKey(endpoint, kind, subject, l.windowStart(window))

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(maxAttempts) {
		block := blockKey(endpoint, kind, subject)
		if err := l.redis.Set(ctx, block, "1", blockDuration).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return ErrRateLimited
	}

	return nil
}
