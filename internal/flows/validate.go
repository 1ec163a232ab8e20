package flows

import (
	"context"
	"errors"
	"time"

	"github.com/RKessler93/goSessions/jwt"
	"github.com/RKessler93/goSessions/session"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureParse
	ValidateFailureTokenExpired
	ValidateFailureBlacklisted
	ValidateFailureSessionNotFound
	ValidateFailureSessionInactive
	ValidateFailureStaleVersion
	ValidateFailureStatus
	ValidateFailureInfra
)

// ValidateResult returns either claims/session success payload or classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
	Session *session.Session
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	ParseAccess    func(string) (*jwt.Claims, error)
	IsExpiredError func(error) bool

	IsBlacklisted func(context.Context, string) (bool, error)

	// GetSession is optional: nil skips the strict session check and
	// validation stays stateless past the blacklist.
	GetSession func(context.Context, string) (*session.Session, error)
	SessionNil error

	// GetUserVersion is optional: nil skips the per-user token version
	// check. Touch updates the session's last-used stamp; best-effort.
	GetUserVersion     func(context.Context, string) (uint32, error)
	AccountStatusError func(uint8) error
	GetUserStatus      func(context.Context, string) (uint8, error)
	TouchSession       func(context.Context, string, int64) error

	Now func() time.Time

	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)

	MetricValidateSuccess int
	MetricValidateFailure int
	MetricValidateLatency int
}

// RunValidate executes access-token validation: signature and claims,
// blacklist membership, session liveness, and token version.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	start := deps.Now()
	result := runValidate(ctx, tokenStr, deps)
	if deps.ObserveLatency != nil {
		deps.ObserveLatency(deps.MetricValidateLatency, deps.Now().Sub(start))
	}
	if result.Failure == ValidateFailureNone {
		deps.MetricInc(deps.MetricValidateSuccess)
	} else {
		deps.MetricInc(deps.MetricValidateFailure)
	}
	return result
}

func runValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		if deps.IsExpiredError != nil && deps.IsExpiredError(err) {
			return ValidateResult{Failure: ValidateFailureTokenExpired, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureParse, Err: err}
	}

	if deps.IsBlacklisted != nil {
		blocked, err := deps.IsBlacklisted(ctx, claims.JTI())
		if err != nil {
			return ValidateResult{Failure: ValidateFailureInfra, Err: err}
		}
		if blocked {
			return ValidateResult{Failure: ValidateFailureBlacklisted, Claims: claims}
		}
	}

	var sess *session.Session
	if deps.GetSession != nil {
		sess, err = deps.GetSession(ctx, claims.JTI())
		if err != nil {
			if deps.SessionNil != nil && errors.Is(err, deps.SessionNil) {
				return ValidateResult{Failure: ValidateFailureSessionNotFound, Err: err, Claims: claims}
			}
			return ValidateResult{Failure: ValidateFailureInfra, Err: err, Claims: claims}
		}
		if !sess.Active {
			return ValidateResult{Failure: ValidateFailureSessionInactive, Claims: claims, Session: sess}
		}
	}

	if deps.GetUserVersion != nil {
		version, err := deps.GetUserVersion(ctx, claims.UUID)
		if err != nil {
			return ValidateResult{Failure: ValidateFailureInfra, Err: err, Claims: claims}
		}
		if claims.Ver != version {
			return ValidateResult{Failure: ValidateFailureStaleVersion, Claims: claims, Session: sess}
		}
	}

	if deps.AccountStatusError != nil && deps.GetUserStatus != nil {
		status, err := deps.GetUserStatus(ctx, claims.UUID)
		if err != nil {
			return ValidateResult{Failure: ValidateFailureInfra, Err: err, Claims: claims}
		}
		if statusErr := deps.AccountStatusError(status); statusErr != nil {
			return ValidateResult{Failure: ValidateFailureStatus, Err: statusErr, Claims: claims, Session: sess}
		}
	}

	if deps.TouchSession != nil && sess != nil {
		_ = deps.TouchSession(ctx, claims.JTI(), deps.Now().Unix())
	}

	return ValidateResult{Claims: claims, Session: sess}
}
