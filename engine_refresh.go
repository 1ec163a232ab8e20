package goSessions

import (
	"context"
	"time"

	"github.com/RKessler93/goSessions/blacklist"
	"github.com/RKessler93/goSessions/internal"
	"github.com/RKessler93/goSessions/internal/flows"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
	"github.com/RKessler93/goSessions/refresh"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh rotates a refresh-token chain by one generation: the presented
// token is consumed atomically and a successor pair is issued. Exactly
// one of N concurrent calls with the same token succeeds; the others
// receive [ErrTokenReused] after the whole family has been revoked.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	result := flows.RunRefresh(ctx, refreshToken, e.refreshDeps())
	if result.Failure != flows.RefreshFailureNone {
		return nil, e.refreshFailureToError(result)
	}
	return &RefreshResult{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		SessionID:        result.SessionID,
		FamilyID:         result.FamilyID,
		Generation:       result.Generation,
		AccessExpiresAt:  result.AccessExpiresAt,
		RefreshExpiresAt: result.RefreshExpiresAt,
	}, nil
}

// refreshFailureToError maps flow failure kinds onto the public error
// surface. Infrastructure failures collapse to [ErrInternal].
func (e *Engine) refreshFailureToError(result flows.RefreshResult) error {
	switch result.Failure {
	case flows.RefreshFailureParse:
		return ErrTokenInvalid
	case flows.RefreshFailureTokenExpired:
		return ErrTokenExpired
	case flows.RefreshFailureRateLimited:
		return ErrRefreshRateLimited
	case flows.RefreshFailureUnknown:
		return ErrUnknownToken
	case flows.RefreshFailureRevoked:
		return ErrTokenRevoked
	case flows.RefreshFailureReuse:
		return ErrTokenReused
	case flows.RefreshFailureMismatch:
		return ErrTokenInvalid
	case flows.RefreshFailureStaleVersion:
		return ErrStaleTokenVersion
	case flows.RefreshFailureAccountStatus:
		if result.Err != nil {
			return result.Err
		}
		return ErrAccountInactive
	case flows.RefreshFailureLockedOut:
		return ErrAccountLocked
	case flows.RefreshFailureUserLookup:
		return ErrUserNotFound
	default:
		return ErrInternal
	}
}

func (e *Engine) refreshDeps() flows.RefreshDeps {
	return flows.RefreshDeps{
		ParseRefresh:   e.parseRefreshClaims,
		IsExpiredError: isExpiredError,

		RateLimiter: e.limiter,

		IsBlacklisted: e.blacklist.Contains,

		GetRecord: e.refreshes.Get,
		Consume:   e.refreshes.Consume,

		RevokeFamily:             e.refreshes.RevokeFamily,
		DeactivateFamilySessions: e.sessions.DeactivateFamily,

		TokenUnknown:  refresh.ErrTokenUnknown,
		FamilyRevoked: refresh.ErrFamilyRevoked,
		TokenReused:   refresh.ErrTokenReused,
		TokenExpired:  refresh.ErrTokenExpired,
		HashMismatch:  refresh.ErrHashMismatch,

		GetUserByUUID:      e.getFlowUserByUUID,
		AccountStatusError: flowAccountStatusError,
		IsLockedOut:        e.lockout.IsLockedOut,

		HashToken:    internal.HashToken,
		NewJTI:       internal.NewJTI,
		IssueAccess:  e.issueAccess,
		IssueRefresh: e.issueRefresh,

		RefreshLifetime: func() time.Duration { return e.config.JWT.RefreshTTL },

		GetSession:        e.sessions.Get,
		SaveSession:       e.sessions.Save,
		DeactivateSession: e.sessions.Deactivate,
		BlacklistAccess: func(ctx context.Context, jti string) error {
			return e.blacklist.Add(ctx, jti, blacklist.TypeAccess, "rotated", e.now().Add(e.config.JWT.AccessTTL))
		},

		ClientIPFromContext: clientIPFromContext,
		Now:                 e.now,

		MetricInc: func(id int) { e.metricInc(internalmetrics.MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.warn,

		Metrics: flows.RefreshMetrics{
			RefreshSuccess:     int(internalmetrics.MetricRefreshSuccess),
			RefreshFailure:     int(internalmetrics.MetricRefreshFailure),
			RefreshRateLimited: int(internalmetrics.MetricRefreshRateLimited),
			ReuseDetected:      int(internalmetrics.MetricReuseDetected),
			FamilyRevoked:      int(internalmetrics.MetricFamilyRevoked),
			StaleTokenVersion:  int(internalmetrics.MetricStaleTokenVersion),
			SessionCreated:     int(internalmetrics.MetricSessionCreated),
			TokenBlacklisted:   int(internalmetrics.MetricTokenBlacklisted),
		},
		Events: flows.RefreshEvents{
			RefreshSuccess:     EventRefreshSuccess,
			RefreshFailure:     EventRefreshFailure,
			RefreshRateLimited: EventRefreshRateLimited,
			ReuseDetected:      EventReuseDetected,
			FamilyRevoked:      EventFamilyRevoked,
		},
		Errors: flows.RefreshErrors{
			EngineNotReady: ErrEngineNotReady,
			RateLimited:    ErrRefreshRateLimited,
			AccountLocked:  ErrAccountLocked,
		},
	}
}

func (e *Engine) parseRefreshClaims(tokenStr string) (flows.RefreshClaims, error) {
	claims, err := e.jwt.ParseRefresh(tokenStr)
	if err != nil {
		return flows.RefreshClaims{}, err
	}
	return flows.RefreshClaims{
		JTI:      claims.JTI(),
		UserID:   claims.UID,
		UserUUID: claims.UUID,
		Version:  claims.Ver,
	}, nil
}
