package domain

import "time"

// PasswordResetToken is a single-use credential proving control of an
// email address. Lifecycle: ISSUED -> USED or ISSUED -> EXPIRED, both
// terminal. At most one unused, unexpired token exists per user; issuing
// a new one deletes the old.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string // fingerprint of the opaque value, raw token never stored
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Consumable reports whether the token may still be redeemed at the
// given instant.
func (t PasswordResetToken) Consumable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// Expired reports whether the token is past its expiry.
func (t PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
