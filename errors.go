package goSessions

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the session engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the session engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountLocked is an exported constant or variable used by the session engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is an exported constant or variable used by the session engine.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountSuspended is an exported constant or variable used by the session engine.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrLoginRateLimited is an exported constant or variable used by the session engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the session engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrTokenInvalid is an exported constant or variable used by the session engine.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is an exported constant or variable used by the session engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is an exported constant or variable used by the session engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenReused is an exported constant or variable used by the session engine.
	ErrTokenReused = errors.New("refresh token reuse detected")
	// ErrStaleTokenVersion is an exported constant or variable used by the session engine.
	ErrStaleTokenVersion = errors.New("token version is stale")
	// ErrUnknownToken is an exported constant or variable used by the session engine.
	ErrUnknownToken = errors.New("refresh token unknown")
	// ErrSessionNotFound is an exported constant or variable used by the session engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionInactive is an exported constant or variable used by the session engine.
	ErrSessionInactive = errors.New("session inactive")
	// ErrInternal is an exported constant or variable used by the session engine.
	ErrInternal = errors.New("internal backend failure")
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not fully configured")
	// ErrEngineClosed is an exported constant or variable used by the session engine.
	ErrEngineClosed = errors.New("engine closed")
)
