package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const deviceIDRawSize = 16

// NewJTI returns an unguessable token identifier for access and refresh
// tokens. JTIs are UUIDv4 strings so they stay readable in audit trails and
// blacklist keys.
func NewJTI() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewFamilyID returns the identifier shared by every refresh token descending
// from one login.
func NewFamilyID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewDeviceID returns a random device fingerprint, assigned when a login
// carries no caller-provided device identifier.
func NewDeviceID() (string, error) {
	var raw [deviceIDRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashToken returns the at-rest digest of a bearer token. Raw refresh tokens
// are never persisted; stores keep only this hash.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// ValidateID rejects identifiers that would break Redis key layouts.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("empty identifier")
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c == ':' || c == ' ' || c == '\n' || c == '\r' {
			return errors.New("invalid identifier character")
		}
	}
	return nil
}
