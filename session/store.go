package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the session engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionCorrupt is returned when a stored session blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session blob corrupt")

// Store is a Redis-backed session record store. It persists one binary
// row per access token, indexed by user and by refresh family, and
// supports soft deactivation that keeps rows resident for forensics.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(jti string) string {
	return s.prefix + ":sess:" + jti
}

func (s *Store) userKey(userUUID string) string {
	return s.prefix + ":us:" + userUUID
}

func (s *Store) familyKey(familyID string) string {
	return s.prefix + ":fs:" + familyID
}

// Save persists a [Session] row to Redis with the given TTL and adds it
// to the user and family index sets. Index sets carry the same TTL so
// that fully-expired families leave no residue.
//
//	Performance: 5 Redis commands in one transaction.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.JTI)
	userKey := s.userKey(sess.UserUUID)
	familyKey := s.familyKey(sess.FamilyID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, userKey, sess.JTI)
		pipe.Expire(ctx, userKey, ttl)
		pipe.SAdd(ctx, familyKey, sess.JTI)
		pipe.Expire(ctx, familyKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session row by access-token ID. Returns redis.Nil
// when the row does not exist or has passed its stored expiry.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, jti string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, errors.Join(ErrSessionCorrupt, err)
	}

	if time.Now().Unix() > sess.ExpiresAt {
		return nil, redis.Nil
	}

	return sess, nil
}

// Touch updates the row's last-used timestamp and, when ip is
// non-empty, the last-seen client address, preserving the TTL.
func (s *Store) Touch(ctx context.Context, jti, ip string, lastUsedAt int64) error {
	return s.rewrite(ctx, jti, func(sess *Session) {
		sess.LastUsedAt = lastUsedAt
		if ip != "" {
			sess.IPAddress = ip
		}
	})
}

// Deactivate marks a session row inactive without deleting it. The row
// keeps its TTL so it remains inspectable until the refresh lifetime
// ends. The row is removed from the user index so active-session
// listings stay cheap.
func (s *Store) Deactivate(ctx context.Context, jti string) error {
	sess, err := s.Get(ctx, jti)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	if err := s.rewrite(ctx, jti, func(row *Session) {
		row.Active = false
	}); err != nil {
		return err
	}

	if err := s.redis.SRem(ctx, s.userKey(sess.UserUUID), jti).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeactivateFamily marks every session row in a refresh family as
// inactive and compromised, keeping each row's TTL. It is the session
// half of a family revocation cascade and returns the number of rows
// marked.
//
//	Performance: 1 SMEMBERS + 3 commands per row.
func (s *Store) DeactivateFamily(ctx context.Context, familyID string) (int, error) {
	jtis, err := s.redis.SMembers(ctx, s.familyKey(familyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	marked := 0
	for _, jti := range jtis {
		sess, err := s.Get(ctx, jti)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return marked, err
		}

		if err := s.rewrite(ctx, jti, func(row *Session) {
			row.Active = false
			row.Compromised = true
		}); err != nil {
			return marked, err
		}

		if err := s.redis.SRem(ctx, s.userKey(sess.UserUUID), jti).Err(); err != nil {
			return marked, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		marked++
	}

	return marked, nil
}

// DeactivateAllForUser marks every indexed session row for a user as
// inactive and clears the user index. Rows keep their TTLs.
//
// ATOMICITY NOTE: this operation is NOT fully atomic. A session created
// between the index read and the final index delete will not be
// captured by this call. Callers that bump the user's token version
// alongside this call are not affected: the stray row's tokens fail the
// version check regardless.
func (s *Store) DeactivateAllForUser(ctx context.Context, userUUID string) (int, error) {
	userKey := s.userKey(userUUID)

	jtis, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	marked := 0
	for _, jti := range jtis {
		if err := s.rewrite(ctx, jti, func(row *Session) {
			row.Active = false
		}); err != nil {
			return marked, err
		}
		marked++
	}

	if err := s.redis.Del(ctx, userKey).Err(); err != nil {
		return marked, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return marked, nil
}

// DeactivateForDevice marks every active session row a user holds on
// one device as inactive. Returns the number of rows marked.
func (s *Store) DeactivateForDevice(ctx context.Context, userUUID, deviceID string) (int, error) {
	sessions, err := s.ActiveForUser(ctx, userUUID)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, sess := range sessions {
		if sess.DeviceID != deviceID {
			continue
		}
		if err := s.Deactivate(ctx, sess.JTI); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// ActiveForUser returns the decoded active session rows for a user.
// Rows that expired or were deactivated since indexing are skipped.
//
//	Performance: 1 SMEMBERS + 1 pipelined GET batch.
func (s *Store) ActiveForUser(ctx context.Context, userUUID string) ([]*Session, error) {
	jtis, err := s.redis.SMembers(ctx, s.userKey(userUUID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(jtis) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(jtis))
	for i, jti := range jtis {
		cmds[i] = pipe.Get(ctx, s.key(jti))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(jtis))
	nowUnix := time.Now().Unix()
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		sess, decErr := Decode(data)
		if decErr != nil {
			return nil, errors.Join(ErrSessionCorrupt, decErr)
		}
		if !sess.Active || nowUnix > sess.ExpiresAt {
			continue
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

// ActiveSessionCount returns the number of indexed session IDs for a user.
func (s *Store) ActiveSessionCount(ctx context.Context, userUUID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userUUID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// rewrite applies mutate to a stored row and writes it back with the
// remaining TTL preserved. Rows whose TTL already lapsed are left alone.
func (s *Store) rewrite(ctx context.Context, jti string, mutate func(*Session)) error {
	key := s.key(jti)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return errors.Join(ErrSessionCorrupt, err)
	}
	mutate(sess)

	encoded, err := Encode(sess)
	if err != nil {
		return err
	}

	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, key, encoded, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
