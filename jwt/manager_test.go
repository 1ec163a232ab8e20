package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func testSubject() Subject {
	return Subject{
		UserID:  "u1",
		UUID:    "uuid-1",
		Email:   "alice@example.com",
		Roles:   []string{"member"},
		Version: 1,
	}
}

func TestCreateAndParseRoundTrip(t *testing.T) {
	m := newHSManager(t)

	access, err := m.CreateAccess(testSubject(), "jti-a")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	refresh, err := m.CreateRefresh(testSubject(), "jti-r")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}

	ac, err := m.ParseAccess(access)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if ac.JTI() != "jti-a" || ac.UID != "u1" || ac.UUID != "uuid-1" || ac.Ver != 1 {
		t.Fatalf("unexpected access claims: %+v", ac)
	}
	if len(ac.Roles) != 1 || ac.Roles[0] != "member" {
		t.Fatalf("unexpected roles: %v", ac.Roles)
	}

	rc, err := m.ParseRefresh(refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if rc.JTI() != "jti-r" || rc.Kind != KindRefresh {
		t.Fatalf("unexpected refresh claims: %+v", rc)
	}
}

func TestParseRejectsKindCrossover(t *testing.T) {
	m := newHSManager(t)

	access, err := m.CreateAccess(testSubject(), "jti-a")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}

	refresh, err := m.CreateRefresh(testSubject(), "jti-r")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestParseExpiredClassification(t *testing.T) {
	m := newHSManager(t)
	past := time.Now().Add(-2 * time.Hour)
	m.WithClock(func() time.Time { return past })

	access, err := m.CreateAccess(testSubject(), "jti-a")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	m.WithClock(time.Now)
	if _, err := m.ParseAccess(access); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseBadSignatureClassification(t *testing.T) {
	m := newHSManager(t)

	other, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("other-secret"),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	forged, err := other.CreateAccess(testSubject(), "jti-a")
	if err != nil {
		t.Fatalf("create forged: %v", err)
	}
	if _, err := m.ParseAccess(forged); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestParseMalformedClassification(t *testing.T) {
	m := newHSManager(t)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, err := m.ParseAccess(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestParseRejectsMissingJTI(t *testing.T) {
	m := newHSManager(t)

	claims := Claims{
		UID:  "u1",
		Kind: KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
		},
	}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccess(signed); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for missing jti, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "jti",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1, "k2": pub2},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.CreateAccess(testSubject(), "jti-a")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(access); err != nil {
		t.Fatalf("expected known kid to verify: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "jti",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k9"
	bad, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccess(bad); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
}

func TestExpiryOf(t *testing.T) {
	m := newHSManager(t)

	refresh, err := m.CreateRefresh(testSubject(), "jti-r")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}

	exp, err := m.ExpiryOf(refresh)
	if err != nil {
		t.Fatalf("expiry of: %v", err)
	}
	want := time.Now().Add(time.Hour)
	if exp.Before(want.Add(-time.Minute)) || exp.After(want.Add(time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}

	if _, err := m.ExpiryOf("garbage"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Second, SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatal("expected refresh TTL <= access TTL to fail")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing hs256 key to fail")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: "rsa"}); err == nil {
		t.Fatal("expected unsupported method to fail")
	}
}
