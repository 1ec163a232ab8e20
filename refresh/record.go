package refresh

// Record defines a public type used by goSessions APIs.
//
// A Record is one row in the refresh-token ledger. Rows are written
// once at issuance and mutated only by the consume CAS (used marker)
// and family revocation (revoked marker). The stored TokenHash is a
// SHA-256 of the raw token string; the token itself is never persisted.
type Record struct {
	// JTI is the refresh token's ID and the row's primary key.
	JTI string

	UserID   string
	UserUUID string

	// FamilyID groups every token minted in one rotation chain.
	FamilyID string

	// Generation is 1 for the login-issued token and increments by
	// exactly one per successful rotation.
	Generation uint32

	TokenHash [32]byte

	DeviceID string

	// ParentJTI is the token this row was rotated from. Empty for
	// generation 1.
	ParentJTI string

	// AccessJTI is the access token issued alongside this row.
	AccessJTI string

	IssuedAt  int64
	ExpiresAt int64

	Used    bool
	Revoked bool

	UsedAt    int64
	RevokedAt int64
}
