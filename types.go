package goSessions

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive is an exported constant or variable used by the session engine.
	AccountActive AccountStatus = iota
	// AccountInactive is an exported constant or variable used by the session engine.
	AccountInactive
	// AccountSuspended is an exported constant or variable used by the session engine.
	AccountSuspended
)

// UserRecord is the account record returned by [UserProvider]. It carries
// the credential hash, account status, and the lockout and token-version
// state the engine maintains through provider callbacks.
type UserRecord struct {
	UserID       string
	UUID         string
	Identifier   string
	PasswordHash string
	Roles        []string
	Status       AccountStatus

	// LoginAttempts counts consecutive failed logins. Cleared only by an
	// explicit successful login, never by lockout expiry.
	LoginAttempts int
	// LockoutUntil is nil when the account is not locked out.
	LockoutUntil *time.Time

	// TokenVersion invalidates every outstanding token when bumped.
	TokenVersion uint32
}

// UserProvider is the interface callers must implement to integrate
// goSessions with their user database. Lockout counters and the token
// version live on the user row so a cache flush cannot reset them.
//
// All methods must be safe for concurrent use. Increment and reset
// operations are expected to be atomic at the storage layer.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByUUID(ctx context.Context, userUUID string) (UserRecord, error)

	// IncrementLoginAttempts adds one consecutive failure and returns
	// the new count.
	IncrementLoginAttempts(ctx context.Context, userUUID string) (int, error)
	ResetLoginAttempts(ctx context.Context, userUUID string) error

	// SetLockout stamps the lockout expiry. A nil until clears it.
	SetLockout(ctx context.Context, userUUID string, until *time.Time) error

	// IncrementTokenVersion bumps the account's token version and
	// returns the new value.
	IncrementTokenVersion(ctx context.Context, userUUID string) (uint32, error)

	UpdatePasswordHash(ctx context.Context, userUUID string, newHash string) error
}

// LoginResult is returned by [Engine.Login]. It carries the freshly
// minted token pair and the identifiers of the new session and family.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	FamilyID         string
	Generation       uint32
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RefreshResult is returned by [Engine.Refresh]. The generation is
// always exactly one above the consumed token's generation.
type RefreshResult struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	FamilyID         string
	Generation       uint32
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult is returned by [Engine.ValidateAccess] for a live token.
type AuthResult struct {
	UserID    string
	UserUUID  string
	Email     string
	Roles     []string
	SessionID string
	FamilyID  string
}

// SessionInfo is the read-only session view returned by
// [Engine.ActiveSessions].
type SessionInfo struct {
	SessionID   string
	FamilyID    string
	Generation  uint32
	DeviceID    string
	DeviceInfo  string
	IPAddress   string
	LoginMethod string
	CreatedAt   time.Time
	LastUsedAt  time.Time
	ExpiresAt   time.Time
}

// SecurityReport summarizes the engine's effective protection posture.
type SecurityReport struct {
	LockoutEnabled        bool
	LockoutThreshold      int
	LockoutDuration       time.Duration
	LoginThrottleEnabled  bool
	IPThrottleEnabled     bool
	RefreshThrottle       bool
	RefreshRotation       bool
	ReuseDetection        bool
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	PasswordUpgradeOnUse  bool
	AuditEnabled          bool
	MetricsEnabled        bool
	BlacklistedTokenCount int
}

// accountStatusToError maps a stored status onto the sentinel the
// public API exposes. AccountActive maps to nil.
func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountInactive:
		return ErrAccountInactive
	case AccountSuspended:
		return ErrAccountSuspended
	default:
		return ErrAccountInactive
	}
}
