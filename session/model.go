package session

// Session defines a public type used by goSessions APIs.
//
// A Session row records one device login: the current access/refresh
// token pair identifiers, the refresh family it belongs to, and the
// client context captured at login. Rows are kept for the full refresh
// lifetime even after deactivation so that revocation cascades leave a
// forensic trail.
//
// Session instances are intended to be populated at creation and then
// treated as immutable unless documented otherwise.
type Session struct {
	// JTI is the access-token ID and the row's primary key.
	JTI        string
	RefreshJTI string

	UserID   string
	UserUUID string

	FamilyID   string
	Generation uint32

	DeviceID    string
	DeviceInfo  string
	IPAddress   string
	LoginMethod string

	TokenVersion uint32

	Active      bool
	Compromised bool

	CreatedAt       int64
	LastUsedAt      int64
	AccessExpiresAt int64
	ExpiresAt       int64
}
