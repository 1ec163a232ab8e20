package goSessions

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/RKessler93/goSessions/internal/audit"
	"github.com/RKessler93/goSessions/internal/limiters"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
	"github.com/RKessler93/goSessions/internal/rate"
	"github.com/RKessler93/goSessions/blacklist"
	"github.com/RKessler93/goSessions/jwt"
	"github.com/RKessler93/goSessions/password"
	"github.com/RKessler93/goSessions/refresh"
	"github.com/RKessler93/goSessions/session"
)

// Builder assembles an [Engine] from its dependencies. Builders are
// single-use: Build may be called once.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config       Config
	configSet    bool
	redis        redis.UniversalClient
	userProvider UserProvider
	auditSink    AuditSink
	now          func() time.Time
	built        bool
}

// New returns a [Builder] preloaded with the default configuration.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		now:    time.Now,
	}
}

// WithConfig replaces the default configuration. The config is cloned;
// later mutation of cfg does not affect the engine.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	b.configSet = true
	return b
}

// WithRedis sets the Redis client backing the session, refresh, and
// blacklist stores and the rate limiter. Required.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the caller's user database integration. Required.
//
// WithUserProvider may return an error when input validation, dependency calls, or security checks fail.
// WithUserProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserProvider(provider UserProvider) *Builder {
	b.userProvider = provider
	return b
}

// WithAuditSink sets the destination for audit events. Ignored unless
// Config.Audit.Enabled is true.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine's time source. Test hook.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// WithMetricsEnabled toggles metric collection without replacing the
// whole config.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles validation latency histograms. Implies
// nothing unless metrics are enabled.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the assembled dependencies and returns the [Engine].
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := b.config

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	jwtManager = jwtManager.WithClock(b.now)

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	prefix := cfg.Session.RedisPrefix

	limiter := rate.New(b.redis, rate.Config{
		EnableLoginThrottle:   cfg.RateLimit.EnableLoginThrottle,
		EnableIPThrottle:      cfg.RateLimit.EnableIPThrottle,
		EnableRefreshThrottle: cfg.RateLimit.EnableRefreshThrottle,
		MaxLoginAttempts:      cfg.RateLimit.MaxLoginAttempts,
		LoginWindow:           cfg.RateLimit.LoginWindow,
		LoginBlockDuration:    cfg.RateLimit.LoginBlockDuration,
		MaxRefreshAttempts:    cfg.RateLimit.MaxRefreshAttempts,
		RefreshWindow:         cfg.RateLimit.RefreshWindow,
		RefreshBlockDuration:  cfg.RateLimit.RefreshBlockDuration,
	}).WithClock(b.now)

	provider := b.userProvider
	lockout := limiters.NewLockoutGuard(limiters.LockoutConfig{
		Enabled:   cfg.Lockout.Enabled,
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}, limiters.LockoutDeps{
		IncrementAttempts: provider.IncrementLoginAttempts,
		ResetAttempts:     provider.ResetLoginAttempts,
		SetLockout: func(ctx context.Context, userUUID string, until time.Time) error {
			stamp := until
			return provider.SetLockout(ctx, userUUID, &stamp)
		},
		ClearLockout: func(ctx context.Context, userUUID string) error {
			return provider.SetLockout(ctx, userUUID, nil)
		},
	}).WithClock(b.now)

	var dispatcher *internalaudit.Dispatcher
	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = internalaudit.NoOpSink{}
		}
		dispatcher = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			CriticalEvents: []string{
				EventReuseDetected,
				EventFamilyRevoked,
				EventLockoutTriggered,
			},
		}, sink)
	}

	engine := &Engine{
		config:       cfg,
		userProvider: provider,
		jwt:          jwtManager,
		password:     hasher,
		sessions:     session.NewStore(b.redis, prefix),
		refreshes:    refresh.NewStore(b.redis, prefix),
		blacklist:    blacklist.NewStore(b.redis, prefix),
		limiter:      limiter,
		lockout:      lockout,
		audit:        dispatcher,
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:       cfg.Metrics.Enabled,
			EnableLatency: cfg.Metrics.Enabled && cfg.Metrics.EnableLatencyHistograms,
		}),
		now: b.now,
	}

	b.built = true
	return engine, nil
}
