package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/pkg/httpx"
	"github.com/edustack/auth/pkg/jwtx"
)

type contextKey int

const principalKey contextKey = iota

// withPrincipal attaches the caller identity to the request context.
func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

// AuthnMiddleware validates the bearer access token and threads the
// matching end-user principal into the request context. Requests without
// a valid token never reach the wrapped handler.
func AuthnMiddleware(codec *jwtx.Codec) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.ErrUnauthorized.WriteError(w)
				return
			}

			claims, err := codec.Validate(token)
			if err != nil {
				accessTokenError(err).WriteError(w)
				return
			}

			p := domain.EndUserPrincipal(claims.Subject, claims.Username, claims.Email, claims.RoleList())
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

// APIKeyMiddleware admits sibling services presenting the internal API
// key in the X-API-Key header. The compare is constant time, and callers
// are threaded through as the fixed internal-service principal.
func APIKeyMiddleware(apiKey string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				httpx.ErrUnauthorized.WriteError(w)
				return
			}

			p := domain.InternalServicePrincipal()
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func accessTokenError(err error) *httpx.APIError {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return httpx.ErrTokenExpired
	case errors.Is(err, jwtx.ErrInvalidSig):
		return httpx.ErrTokenInvalid
	default:
		return httpx.ErrTokenMalformed
	}
}
