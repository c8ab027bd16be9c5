package domain

import "time"

// TokenPair is what every successful auth operation returns: the
// short-lived signed access token plus the opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access token lifetime in seconds
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // non-null means the token is dead
	UserAgent string
	IPAddress string
}

// Active reports whether the token may still be redeemed at the given
// instant.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Expired reports whether the token is past its expiry, regardless of
// revocation state.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// DeviceContext carries the request metadata recorded with each issued
// refresh token.
type DeviceContext struct {
	UserAgent string
	IPAddress string
}
