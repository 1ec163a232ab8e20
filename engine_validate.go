package goSessions

import (
	"context"
	"time"

	"github.com/RKessler93/goSessions/internal/flows"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
)

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess verifies an access token end to end: signature and
// claims, blacklist membership, session liveness when strict validation
// is enabled, account status, and the per-user token version. A nil
// error means the bearer may proceed.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	result := flows.RunValidate(ctx, accessToken, e.validateDeps())
	if result.Failure != flows.ValidateFailureNone {
		return nil, validateFailureToError(result)
	}

	auth := &AuthResult{
		UserID:    result.Claims.UID,
		UserUUID:  result.Claims.UUID,
		Email:     result.Claims.Email,
		Roles:     result.Claims.Roles,
		SessionID: result.Claims.JTI(),
	}
	if result.Session != nil {
		auth.FamilyID = result.Session.FamilyID
	}
	return auth, nil
}

func validateFailureToError(result flows.ValidateResult) error {
	switch result.Failure {
	case flows.ValidateFailureParse:
		return ErrTokenInvalid
	case flows.ValidateFailureTokenExpired:
		return ErrTokenExpired
	case flows.ValidateFailureBlacklisted:
		return ErrTokenRevoked
	case flows.ValidateFailureSessionNotFound:
		return ErrSessionNotFound
	case flows.ValidateFailureSessionInactive:
		return ErrSessionInactive
	case flows.ValidateFailureStaleVersion:
		return ErrStaleTokenVersion
	case flows.ValidateFailureStatus:
		if result.Err != nil {
			return result.Err
		}
		return ErrAccountInactive
	default:
		return ErrInternal
	}
}

func (e *Engine) validateDeps() flows.ValidateDeps {
	deps := flows.ValidateDeps{
		ParseAccess:    e.jwt.ParseAccess,
		IsExpiredError: isExpiredError,

		IsBlacklisted: e.blacklist.Contains,

		GetUserVersion:     e.getUserVersion,
		AccountStatusError: flowAccountStatusError,
		GetUserStatus:      e.getUserStatus,

		Now: e.now,

		MetricInc:      func(id int) { e.metricInc(internalmetrics.MetricID(id)) },
		ObserveLatency: func(id int, d time.Duration) { e.metrics.Observe(internalmetrics.MetricID(id), d) },

		MetricValidateSuccess: int(internalmetrics.MetricValidateSuccess),
		MetricValidateFailure: int(internalmetrics.MetricValidateFailure),
		MetricValidateLatency: int(internalmetrics.MetricValidateLatency),
	}

	if e.config.Session.StrictValidation {
		deps.GetSession = e.sessions.Get
		deps.SessionNil = sessionNotFoundError
		if e.config.Session.TouchOnValidate {
			deps.TouchSession = e.touchSession
		}
	}

	return deps
}

func (e *Engine) getUserVersion(ctx context.Context, userUUID string) (uint32, error) {
	user, err := e.userProvider.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}

func (e *Engine) getUserStatus(ctx context.Context, userUUID string) (uint8, error) {
	user, err := e.userProvider.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return 0, err
	}
	return uint8(user.Status), nil
}

func (e *Engine) touchSession(ctx context.Context, jti string, lastUsedAt int64) error {
	return e.sessions.Touch(ctx, jti, clientIPFromContext(ctx), lastUsedAt)
}
