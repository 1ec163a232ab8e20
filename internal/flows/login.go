package flows

import (
	"context"
	"time"

	"github.com/RKessler93/goSessions/refresh"
	"github.com/RKessler93/goSessions/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	FamilyID         string
	Generation       uint32
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginUserRecord is a flow-local user model used by login and refresh flows.
type LoginUserRecord struct {
	UserID       string
	UUID         string
	Identifier   string
	PasswordHash string
	Roles        []string
	Status       uint8
	LockoutUntil *time.Time
	TokenVersion uint32
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginLockedOut   int
	LockoutTriggered int
	SessionCreated   int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	LoginLockedOut   string
	LockoutTriggered string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	RateLimited        error
	AccountLocked      error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool

	ClientIPFromContext    func(context.Context) string
	DeviceIDFromContext    func(context.Context) string
	DeviceInfoFromContext  func(context.Context) string
	LoginMethodFromContext func(context.Context) string
	Now                    func() time.Time
	AccountStatusError     func(status uint8) error

	CheckLoginRate func(context.Context, string, string) error

	GetUserByIdentifier func(context.Context, string) (LoginUserRecord, error)
	VerifyPassword      func(string, string) (bool, error)

	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)
	UpdatePasswordHash   func(context.Context, string, string) error

	IsLockedOut          func(*time.Time) bool
	RecordLockoutFailure func(context.Context, string) (bool, error)
	RecordLockoutSuccess func(context.Context, string) error

	IssueSessionTokens func(context.Context, string, LoginUserRecord) (*LoginResult, error)

	NewFamilyID func() (string, error)
	NewJTI      func() (string, error)
	NewDeviceID func() (string, error)

	IssueAccess  func(LoginUserRecord, string) (string, time.Time, error)
	IssueRefresh func(LoginUserRecord, string) (string, time.Time, error)
	HashToken    func(string) [32]byte

	RefreshLifetime     func() time.Duration
	CreateRefreshRecord func(context.Context, *refresh.Record, time.Duration) error
	SaveSession         func(context.Context, *session.Session, time.Duration) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (deps *LoginDeps) applyDefaults() {
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
	if deps.DeviceIDFromContext == nil {
		deps.DeviceIDFromContext = func(context.Context) string { return "" }
	}
	if deps.DeviceInfoFromContext == nil {
		deps.DeviceInfoFromContext = func(context.Context) string { return "" }
	}
	if deps.LoginMethodFromContext == nil {
		deps.LoginMethodFromContext = func(context.Context) string { return "" }
	}
}

// RunLogin executes credential verification, throttle and lockout policy,
// and delegates token issuance on success.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) (*LoginResult, error) {
	deps.applyDefaults()
	if deps.GetUserByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.AccountStatusError == nil ||
		deps.IssueSessionTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	// Every attempt consumes window budget up front, before credentials
	// are examined, so successful logins count too.
	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", "", "", deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, deps.Errors.RateLimited
		}
	}

	if password == "" {
		return nil, runFailLogin(ctx, identifier, LoginUserRecord{}, "empty_password", deps)
	}

	user, err := deps.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		// Unknown identifiers never touch lockout state: there is no
		// account to lock.
		return nil, runFailLogin(ctx, identifier, LoginUserRecord{}, "user_not_found", deps)
	}

	// Lockout is checked before the password so a locked account leaks
	// nothing about credential correctness.
	if deps.IsLockedOut != nil && deps.IsLockedOut(user.LockoutUntil) {
		deps.MetricInc(deps.Metrics.LoginLockedOut)
		deps.EmitAudit(ctx, deps.Events.LoginLockedOut, false, user.UserID, user.UUID, "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		return nil, deps.Errors.AccountLocked
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		if deps.RecordLockoutFailure != nil {
			locked, lockErr := deps.RecordLockoutFailure(ctx, user.UUID)
			if lockErr != nil {
				deps.Warn("goSessions: lockout failure tracking failed")
			} else if locked {
				deps.MetricInc(deps.Metrics.LockoutTriggered)
				deps.EmitAudit(ctx, deps.Events.LockoutTriggered, false, user.UserID, user.UUID, "", deps.Errors.AccountLocked, func() map[string]string {
					return map[string]string{
						"identifier": identifier,
					}
				})
			}
		}
		return nil, runFailLogin(ctx, identifier, user, "password_mismatch", deps)
	}

	if statusErr := deps.AccountStatusError(user.Status); statusErr != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, user.UUID, "", statusErr, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "account_status",
			}
		})
		return nil, statusErr
	}

	if deps.PasswordUpgradeOnLogin {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.UUID, upgradedHash); err != nil {
					deps.Warn("goSessions: password hash upgrade update failed")
				}
			} else {
				deps.Warn("goSessions: password hash upgrade generation failed")
			}
		}
	}
	password = ""

	return deps.IssueSessionTokens(ctx, identifier, user)
}

// runFailLogin returns the collapsed credential error. All credential
// failures look identical to callers.
func runFailLogin(
	ctx context.Context,
	identifier string,
	user LoginUserRecord,
	reason string,
	deps LoginDeps,
) error {
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, user.UUID, "", deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return deps.Errors.InvalidCredentials
}

// RunIssueSessionTokens mints a fresh token family after successful
// credential verification: generation-1 refresh ledger row, session
// record, and the access/refresh pair.
func RunIssueSessionTokens(
	ctx context.Context,
	identifier string,
	user LoginUserRecord,
	deps LoginDeps,
) (*LoginResult, error) {
	deps.applyDefaults()
	if deps.NewFamilyID == nil ||
		deps.NewJTI == nil ||
		deps.NewDeviceID == nil ||
		deps.IssueAccess == nil ||
		deps.IssueRefresh == nil ||
		deps.HashToken == nil ||
		deps.RefreshLifetime == nil ||
		deps.CreateRefreshRecord == nil ||
		deps.SaveSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	familyID, err := deps.NewFamilyID()
	if err != nil {
		return nil, runIssueFail(ctx, identifier, user, "", "family_id_generation", err, deps)
	}
	accessJTI, err := deps.NewJTI()
	if err != nil {
		return nil, runIssueFail(ctx, identifier, user, "", "access_jti_generation", err, deps)
	}
	refreshJTI, err := deps.NewJTI()
	if err != nil {
		return nil, runIssueFail(ctx, identifier, user, "", "refresh_jti_generation", err, deps)
	}

	deviceID := deps.DeviceIDFromContext(ctx)
	if deviceID == "" {
		deviceID, err = deps.NewDeviceID()
		if err != nil {
			return nil, runIssueFail(ctx, identifier, user, "", "device_id_generation", err, deps)
		}
	}

	accessToken, accessExpiresAt, err := deps.IssueAccess(user, accessJTI)
	if err != nil {
		return nil, runIssueFail(ctx, identifier, user, accessJTI, "issue_access_failed", err, deps)
	}
	refreshToken, refreshExpiresAt, err := deps.IssueRefresh(user, refreshJTI)
	if err != nil {
		return nil, runIssueFail(ctx, identifier, user, accessJTI, "issue_refresh_failed", err, deps)
	}

	now := deps.Now()
	refreshLifetime := deps.RefreshLifetime()

	rec := &refresh.Record{
		JTI:        refreshJTI,
		UserID:     user.UserID,
		UserUUID:   user.UUID,
		FamilyID:   familyID,
		Generation: 1,
		TokenHash:  deps.HashToken(refreshToken),
		DeviceID:   deviceID,
		AccessJTI:  accessJTI,
		IssuedAt:   now.Unix(),
		ExpiresAt:  refreshExpiresAt.Unix(),
	}
	if err := deps.CreateRefreshRecord(ctx, rec, refreshLifetime); err != nil {
		return nil, runIssueFail(ctx, identifier, user, accessJTI, "refresh_record_save_failed", err, deps)
	}

	sess := &session.Session{
		JTI:             accessJTI,
		RefreshJTI:      refreshJTI,
		UserID:          user.UserID,
		UserUUID:        user.UUID,
		FamilyID:        familyID,
		Generation:      1,
		DeviceID:        deviceID,
		DeviceInfo:      deps.DeviceInfoFromContext(ctx),
		IPAddress:       ip,
		LoginMethod:     deps.LoginMethodFromContext(ctx),
		TokenVersion:    user.TokenVersion,
		Active:          true,
		CreatedAt:       now.Unix(),
		LastUsedAt:      now.Unix(),
		AccessExpiresAt: accessExpiresAt.Unix(),
		ExpiresAt:       refreshExpiresAt.Unix(),
	}
	if err := deps.SaveSession(ctx, sess, refreshLifetime); err != nil {
		return nil, runIssueFail(ctx, identifier, user, accessJTI, "session_save_failed", err, deps)
	}

	if deps.RecordLockoutSuccess != nil {
		if err := deps.RecordLockoutSuccess(ctx, user.UUID); err != nil {
			deps.Warn("goSessions: lockout counter reset failed")
		}
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, user.UUID, accessJTI, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"family_id":  familyID,
		}
	})

	return &LoginResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		SessionID:        accessJTI,
		FamilyID:         familyID,
		Generation:       1,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func runIssueFail(
	ctx context.Context,
	identifier string,
	user LoginUserRecord,
	sessionID, reason string,
	cause error,
	deps LoginDeps,
) error {
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, user.UUID, sessionID, cause, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return cause
}
