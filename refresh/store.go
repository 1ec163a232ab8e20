package refresh

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the session engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrTokenUnknown is returned when no ledger row exists for the presented token.
var ErrTokenUnknown = errors.New("refresh token unknown")

// ErrFamilyRevoked is returned when the presented token's row carries the revoked marker.
var ErrFamilyRevoked = errors.New("refresh token family revoked")

// ErrTokenReused is returned when the presented token was already consumed.
var ErrTokenReused = errors.New("refresh token reused")

// ErrTokenExpired is returned when the presented token's row has passed its expiry.
var ErrTokenExpired = errors.New("refresh token expired")

// ErrHashMismatch is returned when the presented token does not match the stored hash.
var ErrHashMismatch = errors.New("refresh token hash mismatch")

const (
	consumeStatusUnknown  int64 = 0
	consumeStatusRevoked  int64 = 1
	consumeStatusReused   int64 = 2
	consumeStatusExpired  int64 = 3
	consumeStatusMismatch int64 = 4
	consumeStatusConsumed int64 = 5
)

const consumeScript = `
local row_key = KEYS[1]
local successor_key = KEYS[2]
local family_key = KEYS[3]

local now_unix = tonumber(ARGV[1])
local provided_hash = ARGV[2]

if redis.call("EXISTS", row_key) == 0 then
  return {0}
end
if redis.call("HGET", row_key, "revoked") == "1" then
  return {1}
end
if redis.call("HGET", row_key, "used") == "1" then
  return {2}
end

local expires_at = tonumber(redis.call("HGET", row_key, "expiresAt"))
if not expires_at or expires_at <= now_unix then
  return {3}
end

if redis.call("HGET", row_key, "tokenHash") ~= provided_hash then
  return {4}
end

redis.call("HSET", row_key, "used", "1", "usedAt", ARGV[1])

local generation = tonumber(redis.call("HGET", row_key, "generation")) or 0
local next_generation = generation + 1

redis.call("HSET", successor_key,
  "userID", ARGV[3],
  "userUUID", ARGV[4],
  "familyID", ARGV[5],
  "generation", tostring(next_generation),
  "tokenHash", ARGV[6],
  "deviceID", ARGV[7],
  "parentJTI", ARGV[8],
  "accessJTI", ARGV[9],
  "issuedAt", ARGV[1],
  "expiresAt", ARGV[10],
  "used", "0",
  "revoked", "0",
  "usedAt", "0",
  "revokedAt", "0")
redis.call("PEXPIRE", successor_key, tonumber(ARGV[11]))

redis.call("SADD", family_key, ARGV[12])
redis.call("PEXPIRE", family_key, tonumber(ARGV[11]))

return {5, next_generation}
`

var consumeLua = redis.NewScript(consumeScript)

// Store is the Redis-backed refresh-token ledger.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a refresh ledger [Store] backed by the given Redis
// client. prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(jti string) string {
	return s.prefix + ":rt:" + jti
}

func (s *Store) familyKey(familyID string) string {
	return s.prefix + ":fam:" + familyID
}

// Create writes a fresh ledger row and registers it in its family
// index. Used for generation-1 tokens at login; rotated successors are
// written by [Store.Consume] instead.
//
//	Performance: 4 Redis commands in one transaction.
func (s *Store) Create(ctx context.Context, rec *Record, ttl time.Duration) error {
	rowKey := s.key(rec.JTI)
	familyKey := s.familyKey(rec.FamilyID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rowKey, rowFields(rec))
		pipe.PExpire(ctx, rowKey, ttl)
		pipe.SAdd(ctx, familyKey, rec.JTI)
		pipe.PExpire(ctx, familyKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves a ledger row by token ID. Returns [ErrTokenUnknown]
// when no row exists.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) Get(ctx context.Context, jti string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(jti)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrTokenUnknown
	}
	return recordFromFields(jti, fields)
}

// Consume atomically marks the row for jti as used and mints the
// successor row in the same Redis round trip. successor carries the
// caller-chosen JTI, token hash, and access JTI; its Generation,
// ParentJTI, and IssuedAt are assigned here and the completed record is
// returned.
//
// Exactly one of N concurrent calls presenting the same token succeeds;
// the rest receive [ErrTokenReused]. Other failure sentinels:
// [ErrTokenUnknown], [ErrFamilyRevoked], [ErrTokenExpired],
// [ErrHashMismatch].
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: the CAS is the sole writer of the used marker.
func (s *Store) Consume(
	ctx context.Context,
	jti string,
	providedHash [32]byte,
	successor *Record,
	ttl time.Duration,
) (*Record, error) {
	now := time.Now()

	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(jti), s.key(successor.JTI), s.familyKey(successor.FamilyID)},
		now.Unix(),
		hex.EncodeToString(providedHash[:]),
		successor.UserID,
		successor.UserUUID,
		successor.FamilyID,
		hex.EncodeToString(successor.TokenHash[:]),
		successor.DeviceID,
		jti,
		successor.AccessJTI,
		successor.ExpiresAt,
		ttl.Milliseconds(),
		successor.JTI,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusUnknown:
		return nil, ErrTokenUnknown
	case consumeStatusRevoked:
		return nil, ErrFamilyRevoked
	case consumeStatusReused:
		return nil, ErrTokenReused
	case consumeStatusExpired:
		return nil, ErrTokenExpired
	case consumeStatusMismatch:
		return nil, ErrHashMismatch
	case consumeStatusConsumed:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing consume script generation", ErrRedisUnavailable)
		}
		generation, ok := parts[1].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: invalid consume script generation", ErrRedisUnavailable)
		}
		out := *successor
		out.Generation = uint32(generation)
		out.ParentJTI = jti
		out.IssuedAt = now.Unix()
		return &out, nil
	default:
		return nil, fmt.Errorf("%w: unknown consume script status", ErrRedisUnavailable)
	}
}

// RevokeFamily marks every ledger row in a family as revoked, keeping
// the rows resident for forensics. Returns the number of rows marked.
//
//	Performance: 1 SMEMBERS + 1 pipelined HSET batch.
func (s *Store) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	jtis, err := s.redis.SMembers(ctx, s.familyKey(familyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(jtis) == 0 {
		return 0, nil
	}

	nowUnix := time.Now().Unix()
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, jti := range jtis {
			pipe.HSet(ctx, s.key(jti), "revoked", "1", "revokedAt", nowUnix)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(jtis), nil
}

// FamilyMembers returns the token IDs ever minted in a family.
func (s *Store) FamilyMembers(ctx context.Context, familyID string) ([]string, error) {
	jtis, err := s.redis.SMembers(ctx, s.familyKey(familyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return jtis, nil
}

func rowFields(rec *Record) map[string]interface{} {
	return map[string]interface{}{
		"userID":     rec.UserID,
		"userUUID":   rec.UserUUID,
		"familyID":   rec.FamilyID,
		"generation": strconv.FormatUint(uint64(rec.Generation), 10),
		"tokenHash":  hex.EncodeToString(rec.TokenHash[:]),
		"deviceID":   rec.DeviceID,
		"parentJTI":  rec.ParentJTI,
		"accessJTI":  rec.AccessJTI,
		"issuedAt":   rec.IssuedAt,
		"expiresAt":  rec.ExpiresAt,
		"used":       boolField(rec.Used),
		"revoked":    boolField(rec.Revoked),
		"usedAt":     rec.UsedAt,
		"revokedAt":  rec.RevokedAt,
	}
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func recordFromFields(jti string, fields map[string]string) (*Record, error) {
	rec := &Record{
		JTI:       jti,
		UserID:    fields["userID"],
		UserUUID:  fields["userUUID"],
		FamilyID:  fields["familyID"],
		DeviceID:  fields["deviceID"],
		ParentJTI: fields["parentJTI"],
		AccessJTI: fields["accessJTI"],
		Used:      fields["used"] == "1",
		Revoked:   fields["revoked"] == "1",
	}

	generation, err := strconv.ParseUint(fields["generation"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("corrupt ledger row %s: generation: %v", jti, err)
	}
	rec.Generation = uint32(generation)

	hash, err := hex.DecodeString(fields["tokenHash"])
	if err != nil || len(hash) != len(rec.TokenHash) {
		return nil, fmt.Errorf("corrupt ledger row %s: token hash", jti)
	}
	copy(rec.TokenHash[:], hash)

	for _, field := range []struct {
		name string
		dst  *int64
	}{
		{"issuedAt", &rec.IssuedAt},
		{"expiresAt", &rec.ExpiresAt},
		{"usedAt", &rec.UsedAt},
		{"revokedAt", &rec.RevokedAt},
	} {
		raw := fields[field.name]
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger row %s: %s: %v", jti, field.name, err)
		}
		*field.dst = v
	}

	return rec, nil
}
