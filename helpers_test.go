package goSessions

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/RKessler93/goSessions/password"
)

// testClock is a mutable time source shared by the engine and the test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testPasswordConfig keeps Argon2 cheap so the suite stays fast. The
// parameters still pass Config.Validate.
func testPasswordConfig() PasswordConfig {
	return PasswordConfig{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()

	pc := testPasswordConfig()
	h, err := password.NewArgon2(password.Config{
		Memory:      pc.Memory,
		Time:        pc.Time,
		Parallelism: pc.Parallelism,
		SaltLength:  pc.SaltLength,
		KeyLength:   pc.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.Password = testPasswordConfig()
	return cfg
}

func newTestEngine(t *testing.T, rdb *redis.Client, up UserProvider, clock *testClock, cfg Config) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

var errMockUserNotFound = errors.New("user not found")

// mockUserProvider is an in-memory UserProvider keyed by UUID.
type mockUserProvider struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string

	lookupErr     error
	incrementErr  error
	setLockoutErr error
	versionErr    error
	updateErr     error

	incrementVersionCalls int
	updateHashCalls       int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:        make(map[string]UserRecord),
		byIdentifier: make(map[string]string),
	}
}

func (m *mockUserProvider) putUser(user UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UUID] = user
	m.byIdentifier[user.Identifier] = user.UUID
}

func (m *mockUserProvider) user(uuid string) UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[uuid]
}

func (m *mockUserProvider) GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return UserRecord{}, m.lookupErr
	}
	uuid, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, errMockUserNotFound
	}
	return m.users[uuid], nil
}

func (m *mockUserProvider) GetUserByUUID(ctx context.Context, userUUID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return UserRecord{}, m.lookupErr
	}
	user, ok := m.users[userUUID]
	if !ok {
		return UserRecord{}, errMockUserNotFound
	}
	return user, nil
}

func (m *mockUserProvider) IncrementLoginAttempts(ctx context.Context, userUUID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementErr != nil {
		return 0, m.incrementErr
	}
	user, ok := m.users[userUUID]
	if !ok {
		return 0, errMockUserNotFound
	}
	user.LoginAttempts++
	m.users[userUUID] = user
	return user.LoginAttempts, nil
}

func (m *mockUserProvider) ResetLoginAttempts(ctx context.Context, userUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userUUID]
	if !ok {
		return errMockUserNotFound
	}
	user.LoginAttempts = 0
	m.users[userUUID] = user
	return nil
}

func (m *mockUserProvider) SetLockout(ctx context.Context, userUUID string, until *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setLockoutErr != nil {
		return m.setLockoutErr
	}
	user, ok := m.users[userUUID]
	if !ok {
		return errMockUserNotFound
	}
	user.LockoutUntil = until
	m.users[userUUID] = user
	return nil
}

func (m *mockUserProvider) IncrementTokenVersion(ctx context.Context, userUUID string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementVersionCalls++
	if m.versionErr != nil {
		return 0, m.versionErr
	}
	user, ok := m.users[userUUID]
	if !ok {
		return 0, errMockUserNotFound
	}
	user.TokenVersion++
	m.users[userUUID] = user
	return user.TokenVersion, nil
}

func (m *mockUserProvider) UpdatePasswordHash(ctx context.Context, userUUID string, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateHashCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userUUID]
	if !ok {
		return errMockUserNotFound
	}
	user.PasswordHash = newHash
	m.users[userUUID] = user
	return nil
}

var testUserSeq int

// seedUser hashes the password and registers a fresh active account.
func seedUser(t *testing.T, up *mockUserProvider, identifier, pass string) UserRecord {
	t.Helper()

	hash, err := newTestHasher(t).Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	testUserSeq++
	user := UserRecord{
		UserID:       "u" + strconv.Itoa(testUserSeq),
		UUID:         "uuid-" + strconv.Itoa(testUserSeq),
		Identifier:   identifier,
		PasswordHash: hash,
		Roles:        []string{"member"},
		Status:       AccountActive,
	}
	up.putUser(user)
	return user
}
