package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures are distinct so callers can report expiry,
// signature, and structural problems separately.
var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// MinSecretBytes is the smallest HMAC secret the codec accepts. Anything
// shorter than the SHA-256 block makes brute force too cheap.
const MinSecretBytes = 32

// ErrWeakSecret reports a missing or too-short signing secret. It is
// surfaced at construction so misconfiguration is fatal at startup, never
// per-request.
var ErrWeakSecret = errors.New("jwtx: signing secret missing or shorter than 32 bytes")

// Codec issues and validates HS256-signed access tokens. Validation is
// pure: signature plus registered-claim checks, no external state.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec builds a Codec from a symmetric secret. The secret is held only
// by the issuing service.
func NewCodec(secret []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(secret) < MinSecretBytes {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &Codec{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// TTL returns the configured access-token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs claims for the given subject with expiry at now + TTL.
func (c *Codec) Issue(subject, username, email string, roles []string, now time.Time) (string, error) {
	claims := NewAccessClaims(subject, username, email, roles, c.ttl, c.issuer, now)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Validate parses and verifies a token string, returning its claims.
// Failures map to exactly one of ErrExpired, ErrInvalidSig, ErrIssuer or
// ErrMalformed.
func (c *Codec) Validate(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}

	return *claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
