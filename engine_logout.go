package goSessions

import (
	"context"
	"time"

	"github.com/RKessler93/goSessions/blacklist"
	"github.com/RKessler93/goSessions/internal/flows"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout ends the session behind an access token: the token is
// blacklisted for its remaining validity, the session row is
// deactivated, and the sibling refresh chain is revoked. Logout is
// idempotent; repeating it with the same token succeeds.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	result := flows.RunLogout(ctx, accessToken, e.logoutDeps())
	switch result.Failure {
	case flows.LogoutFailureNone:
		return nil
	case flows.LogoutFailureParse:
		return parseErrorToSentinel(result.Err)
	default:
		return ErrInternal
	}
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		ParseAccess: e.jwt.ParseAccess,

		GetSession:        e.sessions.Get,
		SessionNil:        sessionNotFoundError,
		DeactivateSession: e.sessions.Deactivate,

		BlacklistAccess: func(ctx context.Context, jti string, expiresAt time.Time) error {
			return e.blacklist.Add(ctx, jti, blacklist.TypeAccess, "logout", expiresAt)
		},
		RevokeFamily: e.refreshes.RevokeFamily,

		MetricInc: func(id int) { e.metricInc(internalmetrics.MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.warn,

		MetricLogout:           int(internalmetrics.MetricLogout),
		MetricTokenBlacklisted: int(internalmetrics.MetricTokenBlacklisted),
		EventLogout:            EventLogout,
	}
}
