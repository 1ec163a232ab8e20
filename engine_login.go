package goSessions

import (
	"context"
	"time"

	"github.com/RKessler93/goSessions/internal"
	"github.com/RKessler93/goSessions/internal/flows"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
)

// Login describes the login operation and its observable behavior.
//
// Login verifies the caller's credentials and, on success, mints a new
// refresh family at generation 1 together with its access token. All
// credential failures collapse to [ErrInvalidCredentials]; throttling
// and lockout surface as [ErrLoginRateLimited] and [ErrAccountLocked].
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	deps := e.loginDeps()
	result, err := flows.RunLogin(ctx, identifier, pass, deps)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		SessionID:        result.SessionID,
		FamilyID:         result.FamilyID,
		Generation:       result.Generation,
		AccessExpiresAt:  result.AccessExpiresAt,
		RefreshExpiresAt: result.RefreshExpiresAt,
	}, nil
}

func (e *Engine) loginDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,

		ClientIPFromContext:    clientIPFromContext,
		DeviceIDFromContext:    deviceIDFromContext,
		DeviceInfoFromContext:  deviceInfoFromContext,
		LoginMethodFromContext: loginMethodFromContext,
		Now:                    e.now,
		AccountStatusError:     flowAccountStatusError,

		CheckLoginRate: e.limiter.CheckLogin,

		GetUserByIdentifier: e.getFlowUserByIdentifier,
		VerifyPassword:      e.password.Verify,

		PasswordNeedsUpgrade: e.password.NeedsUpgrade,
		HashPassword:         e.password.Hash,
		UpdatePasswordHash:   e.userProvider.UpdatePasswordHash,

		IsLockedOut:          e.lockout.IsLockedOut,
		RecordLockoutFailure: e.lockout.RecordFailure,
		RecordLockoutSuccess: e.lockout.RecordSuccess,

		NewFamilyID: internal.NewFamilyID,
		NewJTI:      internal.NewJTI,
		NewDeviceID: internal.NewDeviceID,

		IssueAccess:  e.issueAccess,
		IssueRefresh: e.issueRefresh,
		HashToken:    internal.HashToken,

		RefreshLifetime:     func() time.Duration { return e.config.JWT.RefreshTTL },
		CreateRefreshRecord: e.refreshes.Create,
		SaveSession:         e.sessions.Save,

		MetricInc: func(id int) { e.metricInc(internalmetrics.MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.warn,

		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(internalmetrics.MetricLoginSuccess),
			LoginFailure:     int(internalmetrics.MetricLoginFailure),
			LoginRateLimited: int(internalmetrics.MetricLoginRateLimited),
			LoginLockedOut:   int(internalmetrics.MetricLoginLockedOut),
			LockoutTriggered: int(internalmetrics.MetricLockoutTriggered),
			SessionCreated:   int(internalmetrics.MetricSessionCreated),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     EventLoginSuccess,
			LoginFailure:     EventLoginFailure,
			LoginRateLimited: EventLoginRateLimited,
			LoginLockedOut:   EventLoginLockedOut,
			LockoutTriggered: EventLockoutTriggered,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			RateLimited:        ErrLoginRateLimited,
			AccountLocked:      ErrAccountLocked,
		},
	}
	deps.IssueSessionTokens = func(ctx context.Context, identifier string, user flows.LoginUserRecord) (*flows.LoginResult, error) {
		return flows.RunIssueSessionTokens(ctx, identifier, user, deps)
	}
	return deps
}
