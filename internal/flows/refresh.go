package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/RKessler93/goSessions/refresh"
	"github.com/RKessler93/goSessions/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureParse
	RefreshFailureTokenExpired
	RefreshFailureRateLimited
	RefreshFailureUnknown
	RefreshFailureRevoked
	RefreshFailureReuse
	RefreshFailureMismatch
	RefreshFailureStaleVersion
	RefreshFailureAccountStatus
	RefreshFailureLockedOut
	RefreshFailureUserLookup
	RefreshFailureIssue
	RefreshFailurePersist
	RefreshFailureInfra
)

// RefreshClaims is the flow-local view of a parsed refresh token.
type RefreshClaims struct {
	JTI      string
	UserID   string
	UserUUID string
	Version  uint32
}

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error

	UserID   string
	UserUUID string

	SessionID  string
	FamilyID   string
	Generation uint32

	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	// Cascade counts populated when a reuse triggered family revocation.
	RevokedTokens   int
	RevokedSessions int
}

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess     int
	RefreshFailure     int
	RefreshRateLimited int
	ReuseDetected      int
	FamilyRevoked      int
	StaleTokenVersion  int
	SessionCreated     int
	TokenBlacklisted   int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess     string
	RefreshFailure     string
	RefreshRateLimited string
	ReuseDetected      string
	FamilyRevoked      string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady error
	RateLimited    error
	AccountLocked  error
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, familyID string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh   func(string) (RefreshClaims, error)
	IsExpiredError func(error) bool

	RateLimiter RefreshRateLimiter

	IsBlacklisted func(context.Context, string) (bool, error)

	GetRecord func(context.Context, string) (*refresh.Record, error)
	Consume   func(context.Context, string, [32]byte, *refresh.Record, time.Duration) (*refresh.Record, error)

	RevokeFamily             func(context.Context, string) (int, error)
	DeactivateFamilySessions func(context.Context, string) (int, error)

	// Ledger sentinels, passed in so the flow can classify Consume
	// failures without importing the store.
	TokenUnknown  error
	FamilyRevoked error
	TokenReused   error
	TokenExpired  error
	HashMismatch  error

	GetUserByUUID      func(context.Context, string) (LoginUserRecord, error)
	AccountStatusError func(uint8) error
	IsLockedOut        func(*time.Time) bool

	HashToken    func(string) [32]byte
	NewJTI       func() (string, error)
	IssueAccess  func(LoginUserRecord, string) (string, time.Time, error)
	IssueRefresh func(LoginUserRecord, string) (string, time.Time, error)

	RefreshLifetime func() time.Duration

	GetSession        func(context.Context, string) (*session.Session, error)
	SaveSession       func(context.Context, *session.Session, time.Duration) error
	DeactivateSession func(context.Context, string) error
	BlacklistAccess   func(context.Context, string) error

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

func (deps *RefreshDeps) applyDefaults() {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.IsExpiredError == nil {
		deps.IsExpiredError = func(error) bool { return false }
	}
}

// RunRefresh executes one rotation of a refresh-token chain: validate the
// presented token, consume its ledger row via CAS, and issue the successor
// pair. A replayed token triggers whole-family revocation before returning.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	deps.applyDefaults()
	if deps.ParseRefresh == nil ||
		deps.GetRecord == nil ||
		deps.Consume == nil ||
		deps.GetUserByUUID == nil ||
		deps.AccountStatusError == nil ||
		deps.HashToken == nil ||
		deps.NewJTI == nil ||
		deps.IssueAccess == nil ||
		deps.IssueRefresh == nil ||
		deps.RefreshLifetime == nil ||
		deps.SaveSession == nil {
		return RefreshResult{Failure: RefreshFailureInfra, Err: deps.Errors.EngineNotReady}
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		if deps.IsExpiredError(err) {
			return refreshFail(ctx, RefreshResult{Failure: RefreshFailureTokenExpired, Err: err}, "token_expired", deps)
		}
		return refreshFail(ctx, RefreshResult{Failure: RefreshFailureParse, Err: err}, "parse_failed", deps)
	}

	// An administratively blacklisted refresh token is dead regardless of
	// its ledger state.
	if deps.IsBlacklisted != nil {
		blocked, err := deps.IsBlacklisted(ctx, claims.JTI)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureInfra, Err: err}
		}
		if blocked {
			return refreshFail(ctx, RefreshResult{
				Failure:  RefreshFailureRevoked,
				UserID:   claims.UserID,
				UserUUID: claims.UserUUID,
			}, "token_blacklisted", deps)
		}
	}

	rec, err := deps.GetRecord(ctx, claims.JTI)
	if err != nil {
		if deps.TokenUnknown != nil && errors.Is(err, deps.TokenUnknown) {
			return refreshFail(ctx, RefreshResult{
				Failure:  RefreshFailureUnknown,
				Err:      err,
				UserID:   claims.UserID,
				UserUUID: claims.UserUUID,
			}, "token_unknown", deps)
		}
		return RefreshResult{Failure: RefreshFailureInfra, Err: err}
	}

	result := RefreshResult{
		UserID:   rec.UserID,
		UserUUID: rec.UserUUID,
		FamilyID: rec.FamilyID,
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, rec.FamilyID); err != nil {
			deps.MetricInc(deps.Metrics.RefreshRateLimited)
			deps.EmitAudit(ctx, deps.Events.RefreshRateLimited, false, rec.UserID, rec.UserUUID, "", deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{
					"family_id": rec.FamilyID,
				}
			})
			result.Failure = RefreshFailureRateLimited
			result.Err = deps.Errors.RateLimited
			return result
		}
	}

	if rec.Revoked {
		result.Failure = RefreshFailureRevoked
		result.Err = deps.FamilyRevoked
		return refreshFail(ctx, result, "family_revoked", deps)
	}
	if rec.Used {
		return runReuseCascade(ctx, rec, result, deps)
	}
	if rec.TokenHash != deps.HashToken(refreshToken) {
		result.Failure = RefreshFailureMismatch
		result.Err = deps.HashMismatch
		return refreshFail(ctx, result, "hash_mismatch", deps)
	}

	user, err := deps.GetUserByUUID(ctx, rec.UserUUID)
	if err != nil {
		result.Failure = RefreshFailureUserLookup
		result.Err = err
		return refreshFail(ctx, result, "user_lookup_failed", deps)
	}
	if deps.IsLockedOut != nil && deps.IsLockedOut(user.LockoutUntil) {
		result.Failure = RefreshFailureLockedOut
		result.Err = deps.Errors.AccountLocked
		return refreshFail(ctx, result, "account_locked", deps)
	}
	if statusErr := deps.AccountStatusError(user.Status); statusErr != nil {
		result.Failure = RefreshFailureAccountStatus
		result.Err = statusErr
		return refreshFail(ctx, result, "account_status", deps)
	}
	if claims.Version != user.TokenVersion {
		deps.MetricInc(deps.Metrics.StaleTokenVersion)
		result.Failure = RefreshFailureStaleVersion
		return refreshFail(ctx, result, "stale_token_version", deps)
	}

	newAccessJTI, err := deps.NewJTI()
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return refreshFail(ctx, result, "access_jti_generation", deps)
	}
	newRefreshJTI, err := deps.NewJTI()
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return refreshFail(ctx, result, "refresh_jti_generation", deps)
	}

	accessToken, accessExpiresAt, err := deps.IssueAccess(user, newAccessJTI)
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return refreshFail(ctx, result, "issue_access_failed", deps)
	}
	newRefreshToken, refreshExpiresAt, err := deps.IssueRefresh(user, newRefreshJTI)
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return refreshFail(ctx, result, "issue_refresh_failed", deps)
	}

	successor := &refresh.Record{
		JTI:       newRefreshJTI,
		UserID:    rec.UserID,
		UserUUID:  rec.UserUUID,
		FamilyID:  rec.FamilyID,
		TokenHash: deps.HashToken(newRefreshToken),
		DeviceID:  rec.DeviceID,
		AccessJTI: newAccessJTI,
		ExpiresAt: refreshExpiresAt.Unix(),
	}

	minted, err := deps.Consume(ctx, claims.JTI, deps.HashToken(refreshToken), successor, deps.RefreshLifetime())
	if err != nil {
		switch {
		case deps.TokenReused != nil && errors.Is(err, deps.TokenReused):
			// Lost the CAS race: someone else consumed this token
			// between our read and the swap. Same response as a replay.
			return runReuseCascade(ctx, rec, result, deps)
		case deps.FamilyRevoked != nil && errors.Is(err, deps.FamilyRevoked):
			result.Failure = RefreshFailureRevoked
			result.Err = err
			return refreshFail(ctx, result, "family_revoked", deps)
		case deps.TokenExpired != nil && errors.Is(err, deps.TokenExpired):
			result.Failure = RefreshFailureTokenExpired
			result.Err = err
			return refreshFail(ctx, result, "token_expired", deps)
		case deps.HashMismatch != nil && errors.Is(err, deps.HashMismatch):
			result.Failure = RefreshFailureMismatch
			result.Err = err
			return refreshFail(ctx, result, "hash_mismatch", deps)
		case deps.TokenUnknown != nil && errors.Is(err, deps.TokenUnknown):
			result.Failure = RefreshFailureUnknown
			result.Err = err
			return refreshFail(ctx, result, "token_unknown", deps)
		default:
			result.Failure = RefreshFailureInfra
			result.Err = err
			return result
		}
	}

	// Carry device context forward from the superseded session row.
	var deviceInfo, loginMethod string
	if deps.GetSession != nil {
		if oldSess, err := deps.GetSession(ctx, rec.AccessJTI); err == nil {
			deviceInfo = oldSess.DeviceInfo
			loginMethod = oldSess.LoginMethod
		}
	}

	now := deps.Now()
	sess := &session.Session{
		JTI:             newAccessJTI,
		RefreshJTI:      newRefreshJTI,
		UserID:          rec.UserID,
		UserUUID:        rec.UserUUID,
		FamilyID:        rec.FamilyID,
		Generation:      minted.Generation,
		DeviceID:        rec.DeviceID,
		DeviceInfo:      deviceInfo,
		IPAddress:       deps.ClientIPFromContext(ctx),
		LoginMethod:     loginMethod,
		TokenVersion:    user.TokenVersion,
		Active:          true,
		CreatedAt:       now.Unix(),
		LastUsedAt:      now.Unix(),
		AccessExpiresAt: accessExpiresAt.Unix(),
		ExpiresAt:       refreshExpiresAt.Unix(),
	}
	if err := deps.SaveSession(ctx, sess, deps.RefreshLifetime()); err != nil {
		result.Failure = RefreshFailurePersist
		result.Err = err
		return refreshFail(ctx, result, "session_save_failed", deps)
	}

	if deps.DeactivateSession != nil {
		if err := deps.DeactivateSession(ctx, rec.AccessJTI); err != nil {
			deps.Warn("goSessions: superseded session deactivation failed")
		}
	}

	// The sibling access token of a rotated refresh token is blacklisted
	// only past generation 1: a chain's first access token dies by
	// expiry alone.
	if deps.BlacklistAccess != nil && rec.ParentJTI != "" && rec.AccessJTI != "" {
		if err := deps.BlacklistAccess(ctx, rec.AccessJTI); err != nil {
			deps.Warn("goSessions: superseded access blacklisting failed")
		} else {
			deps.MetricInc(deps.Metrics.TokenBlacklisted)
		}
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, rec.UserID, rec.UserUUID, newAccessJTI, nil, func() map[string]string {
		return map[string]string{
			"family_id":  rec.FamilyID,
			"generation": strconv.FormatUint(uint64(minted.Generation), 10),
		}
	})

	result.Failure = RefreshFailureNone
	result.SessionID = newAccessJTI
	result.Generation = minted.Generation
	result.AccessToken = accessToken
	result.RefreshToken = newRefreshToken
	result.AccessExpiresAt = accessExpiresAt
	result.RefreshExpiresAt = refreshExpiresAt
	return result
}

// runReuseCascade revokes the whole family in response to a replayed
// token: every ledger row gets the revoked marker and every session row
// is deactivated and flagged compromised.
func runReuseCascade(ctx context.Context, rec *refresh.Record, result RefreshResult, deps RefreshDeps) RefreshResult {
	deps.MetricInc(deps.Metrics.ReuseDetected)
	deps.EmitAudit(ctx, deps.Events.ReuseDetected, false, rec.UserID, rec.UserUUID, "", deps.TokenReused, func() map[string]string {
		return map[string]string{
			"family_id":  rec.FamilyID,
			"generation": strconv.FormatUint(uint64(rec.Generation), 10),
		}
	})

	var revokedTokens, revokedSessions int
	if deps.RevokeFamily != nil {
		n, err := deps.RevokeFamily(ctx, rec.FamilyID)
		if err != nil {
			deps.Warn("goSessions: family ledger revocation failed")
		} else {
			revokedTokens = n
		}
	}
	if deps.DeactivateFamilySessions != nil {
		n, err := deps.DeactivateFamilySessions(ctx, rec.FamilyID)
		if err != nil {
			deps.Warn("goSessions: family session deactivation failed")
		} else {
			revokedSessions = n
		}
	}

	deps.MetricInc(deps.Metrics.FamilyRevoked)
	deps.EmitAudit(ctx, deps.Events.FamilyRevoked, false, rec.UserID, rec.UserUUID, "", nil, func() map[string]string {
		return map[string]string{
			"family_id":        rec.FamilyID,
			"revoked_tokens":   strconv.Itoa(revokedTokens),
			"revoked_sessions": strconv.Itoa(revokedSessions),
		}
	})

	deps.MetricInc(deps.Metrics.RefreshFailure)
	result.Failure = RefreshFailureReuse
	result.Err = deps.TokenReused
	result.RevokedTokens = revokedTokens
	result.RevokedSessions = revokedSessions
	return result
}

func refreshFail(ctx context.Context, result RefreshResult, reason string, deps RefreshDeps) RefreshResult {
	deps.MetricInc(deps.Metrics.RefreshFailure)
	deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, result.UserID, result.UserUUID, "", result.Err, func() map[string]string {
		meta := map[string]string{
			"reason": reason,
		}
		if result.FamilyID != "" {
			meta["family_id"] = result.FamilyID
		}
		return meta
	})
	return result
}
