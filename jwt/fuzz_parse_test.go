package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzParseRefresh exercises the refresh-token parser with arbitrary token
// strings. Goal: no panics; invalid inputs must be rejected with errors.
func FuzzParseRefresh(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
		RequireIAT:    true,
		MaxFutureIAT:  10 * time.Minute,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.CreateRefresh(Subject{UserID: "u1", UUID: "uuid-1", Version: 1}, "jti-seed")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJ1aWQiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.ParseRefresh(input)
		if err != nil {
			return
		}
		if claims == nil {
			t.Fatal("ParseRefresh returned nil claims without error")
		}
		if claims.ID == "" {
			t.Fatal("accepted token without jti")
		}
	})
}
