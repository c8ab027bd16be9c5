package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/pkg/jwtx"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"Bearer ", "", false},
		{"Basic abc123", "", false},
		{"", "", false},
		{"abc123", "", false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		token, ok := bearerToken(r)
		assert.Equal(t, tc.ok, ok, "header %q", tc.header)
		assert.Equal(t, tc.token, token, "header %q", tc.header)
	}
}

func TestAuthnMiddleware_ThreadsPrincipal(t *testing.T) {
	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "edustack-auth", time.Hour)
	require.NoError(t, err)

	token, err := codec.Issue("user-1", "alice", "alice@example.com", []string{"user", "staff"}, time.Now())
	require.NoError(t, err)

	var got domain.Principal
	handler := AuthnMiddleware(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		got = p
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PrincipalEndUser, got.Kind)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []string{"user", "staff"}, got.Roles)
	assert.True(t, got.HasRole("staff"))
}

func TestAuthnMiddleware_RejectsExpired(t *testing.T) {
	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "edustack-auth", time.Hour)
	require.NoError(t, err)

	token, err := codec.Issue("user-1", "alice", "alice@example.com", nil, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	handler := AuthnMiddleware(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token_expired")
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := APIKeyMiddleware("sekret-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, domain.PrincipalInternalService, p.Kind)
		assert.True(t, p.HasRole(domain.InternalServiceRole))
		assert.False(t, p.IsEndUser())
	}))

	// Correct key.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Key", "sekret-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// Wrong key.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Key", "not-it")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Missing key.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyMiddleware_EmptyConfiguredKeyRejectsAll(t *testing.T) {
	handler := APIKeyMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Key", "")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
