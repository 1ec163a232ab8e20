package goSessions

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/RKessler93/goSessions/internal/audit"
	"github.com/RKessler93/goSessions/internal/flows"
	"github.com/RKessler93/goSessions/internal/limiters"
	internalmetrics "github.com/RKessler93/goSessions/internal/metrics"
	"github.com/RKessler93/goSessions/internal/rate"
	"github.com/RKessler93/goSessions/blacklist"
	"github.com/RKessler93/goSessions/jwt"
	"github.com/RKessler93/goSessions/password"
	"github.com/RKessler93/goSessions/refresh"
	"github.com/RKessler93/goSessions/session"
)

// Engine is the authentication session engine. It owns the token
// codec, the Redis-backed session/refresh/blacklist stores, and the
// throttling and lockout guards, and exposes the login, refresh,
// validate, and logout operations on top of them.
//
// An Engine is safe for concurrent use. Construct one with [New] and
// the [Builder]; the zero value is not usable.
type Engine struct {
	config       Config
	userProvider UserProvider

	jwt      *jwt.Manager
	password *password.Argon2

	sessions  *session.Store
	refreshes *refresh.Store
	blacklist *blacklist.Store

	limiter *rate.Limiter
	lockout *limiters.LockoutGuard

	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics

	now func() time.Time
}

// Close drains the audit dispatcher. The engine must not be used after
// Close returns.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters and,
// when latency histograms are enabled, the validation latency buckets.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id internalmetrics.MetricID) {
	e.metrics.Inc(id)
}

// emitAudit builds and dispatches one audit event. metadata is lazy so
// disabled audit costs no map allocation.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID, userUUID, sessionID string,
	cause error,
	metadata func() map[string]string,
) {
	if e.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		UserUUID:  userUUID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
		if familyID, ok := event.Metadata["family_id"]; ok {
			event.FamilyID = familyID
		}
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) warn(string, ...any) {
	// The engine is a library: operational visibility is audit events
	// and metrics, not a logger it does not own.
}

// isExpiredError reports whether a token parse failure was an expiry.
func isExpiredError(err error) bool {
	return errors.Is(err, jwt.ErrExpired)
}

// parseErrorToSentinel collapses codec failures onto the public error
// surface.
func parseErrorToSentinel(err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

// userToFlow converts a provider record into the flow-local shape.
func userToFlow(user UserRecord) flows.LoginUserRecord {
	return flows.LoginUserRecord{
		UserID:       user.UserID,
		UUID:         user.UUID,
		Identifier:   user.Identifier,
		PasswordHash: user.PasswordHash,
		Roles:        user.Roles,
		Status:       uint8(user.Status),
		LockoutUntil: user.LockoutUntil,
		TokenVersion: user.TokenVersion,
	}
}

func (e *Engine) subjectFor(user flows.LoginUserRecord) jwt.Subject {
	return jwt.Subject{
		UserID:  user.UserID,
		UUID:    user.UUID,
		Email:   user.Identifier,
		Roles:   user.Roles,
		Version: user.TokenVersion,
	}
}

func (e *Engine) issueAccess(user flows.LoginUserRecord, jti string) (string, time.Time, error) {
	token, err := e.jwt.CreateAccess(e.subjectFor(user), jti)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, e.now().Add(e.config.JWT.AccessTTL), nil
}

func (e *Engine) issueRefresh(user flows.LoginUserRecord, jti string) (string, time.Time, error) {
	token, err := e.jwt.CreateRefresh(e.subjectFor(user), jti)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, e.now().Add(e.config.JWT.RefreshTTL), nil
}

func (e *Engine) getFlowUserByIdentifier(ctx context.Context, identifier string) (flows.LoginUserRecord, error) {
	user, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return flows.LoginUserRecord{}, err
	}
	return userToFlow(user), nil
}

func (e *Engine) getFlowUserByUUID(ctx context.Context, userUUID string) (flows.LoginUserRecord, error) {
	user, err := e.userProvider.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return flows.LoginUserRecord{}, err
	}
	return userToFlow(user), nil
}

func flowAccountStatusError(status uint8) error {
	return accountStatusToError(AccountStatus(status))
}

// sessionNotFoundError is the store sentinel for missing session rows.
// The session store surfaces redis.Nil for absent or expired rows.
var sessionNotFoundError = redis.Nil

func sessionInfoFromRow(sess *session.Session) SessionInfo {
	return SessionInfo{
		SessionID:   sess.JTI,
		FamilyID:    sess.FamilyID,
		Generation:  sess.Generation,
		DeviceID:    sess.DeviceID,
		DeviceInfo:  sess.DeviceInfo,
		IPAddress:   sess.IPAddress,
		LoginMethod: sess.LoginMethod,
		CreatedAt:   time.Unix(sess.CreatedAt, 0),
		LastUsedAt:  time.Unix(sess.LastUsedAt, 0),
		ExpiresAt:   time.Unix(sess.ExpiresAt, 0),
	}
}
