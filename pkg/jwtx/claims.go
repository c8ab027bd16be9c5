package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Access tokens are stateless and should stay
// short-lived relative to the refresh window; both can be overridden via
// service configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 24 * time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims shared across services. Changes must
// stay additive to keep older verifiers working.
type Claims struct {
	jwt.RegisteredClaims

	// Username of the authenticated subject.
	Username string `json:"username,omitempty"`

	// Email of the authenticated subject.
	Email string `json:"email,omitempty"`

	// Roles is the comma-joined role names granted to the subject,
	// e.g. "user" or "user,admin".
	Roles string `json:"roles,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an end user.
func NewAccessClaims(
	subject, username, email string,
	roles []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		Email:    email,
		Roles:    strings.Join(roles, ","),
	}
}

// RoleList splits the comma-joined roles claim back into a slice.
func (c *Claims) RoleList() []string {
	if c.Roles == "" {
		return nil
	}
	parts := strings.Split(c.Roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
