package flows

import (
	"context"
	"errors"
	"time"

	"github.com/RKessler93/goSessions/jwt"
	"github.com/RKessler93/goSessions/session"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureParse
	LogoutFailureInfra
)

// LogoutResult carries logout outcome metadata.
type LogoutResult struct {
	Failure  LogoutFailureKind
	Err      error
	UserID   string
	UserUUID string
	// SessionFound is false when logout ran against an already-dead
	// session; the call still succeeds.
	SessionFound bool
	RevokedTokens int
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseAccess func(string) (*jwt.Claims, error)

	GetSession        func(context.Context, string) (*session.Session, error)
	SessionNil        error
	DeactivateSession func(context.Context, string) error

	BlacklistAccess func(context.Context, string, time.Time) error
	RevokeFamily    func(context.Context, string) (int, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	MetricLogout           int
	MetricTokenBlacklisted int
	EventLogout            string
}

// RunLogout ends the session behind an access token: the token is
// blacklisted for its remaining validity, the session row is
// deactivated, and the whole refresh chain is revoked so the sibling
// refresh token dies with it. Idempotent: a second logout with the same
// token is a success no-op.
func RunLogout(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	claims, err := deps.ParseAccess(accessToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureParse, Err: err}
	}

	if deps.BlacklistAccess != nil {
		if err := deps.BlacklistAccess(ctx, claims.JTI(), claims.ExpiresAt.Time); err != nil {
			return LogoutResult{Failure: LogoutFailureInfra, Err: err, UserID: claims.UID, UserUUID: claims.UUID}
		}
		deps.MetricInc(deps.MetricTokenBlacklisted)
	}

	result := LogoutResult{UserID: claims.UID, UserUUID: claims.UUID}

	sess, err := deps.GetSession(ctx, claims.JTI())
	if err != nil {
		if deps.SessionNil != nil && errors.Is(err, deps.SessionNil) {
			// Already gone. The blacklist entry above still guarantees
			// the token is dead.
			deps.MetricInc(deps.MetricLogout)
			deps.EmitAudit(ctx, deps.EventLogout, true, claims.UID, claims.UUID, claims.JTI(), nil, nil)
			return result
		}
		result.Failure = LogoutFailureInfra
		result.Err = err
		return result
	}
	result.SessionFound = true

	if err := deps.DeactivateSession(ctx, claims.JTI()); err != nil {
		result.Failure = LogoutFailureInfra
		result.Err = err
		return result
	}

	if deps.RevokeFamily != nil {
		n, err := deps.RevokeFamily(ctx, sess.FamilyID)
		if err != nil {
			deps.Warn("goSessions: logout family revocation failed")
		} else {
			result.RevokedTokens = n
		}
	}

	deps.MetricInc(deps.MetricLogout)
	deps.EmitAudit(ctx, deps.EventLogout, true, claims.UID, claims.UUID, claims.JTI(), nil, func() map[string]string {
		return map[string]string{
			"family_id": sess.FamilyID,
		}
	})
	return result
}
