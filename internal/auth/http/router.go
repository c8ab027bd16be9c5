// Package http holds the HTTP surface of the auth service: routing,
// middleware and request handlers.
package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/edustack/auth/api/auth" // swagger docs registration
	"github.com/edustack/auth/pkg/httpx"
	"github.com/edustack/auth/pkg/jwtx"
	"github.com/edustack/auth/pkg/slogx"
)

// RouterConfig carries everything the router needs to wire the routes.
type RouterConfig struct {
	Handlers *Handlers
	Codec    *jwtx.Codec
	Store    Pinger

	// InternalAPIKey guards the /v1/internal surface. Empty disables it.
	InternalAPIKey string

	// EnableSwagger mounts /swagger/ when true.
	EnableSwagger bool
}

// NewRouter builds the service mux. Rate limits are applied per endpoint
// class: strict on credential endpoints, moderate on token operations,
// lenient on health.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	h := cfg.Handlers
	authn := AuthnMiddleware(cfg.Codec)

	strict := httpx.RateLimitByIP(httpx.StrictLimit)
	moderate := httpx.RateLimitByIP(httpx.ModerateLimit)
	lenient := httpx.RateLimitByIP(httpx.LenientLimit)

	// Credential endpoints: strict limits, no authentication.
	mux.Handle("POST /v1/auth/register", httpx.Chain(http.HandlerFunc(h.Register), strict))
	mux.Handle("POST /v1/auth/login", httpx.Chain(http.HandlerFunc(h.Login), strict))
	mux.Handle("POST /v1/auth/password/forgot", httpx.Chain(http.HandlerFunc(h.ForgotPassword), strict))

	// Token operations.
	mux.Handle("POST /v1/auth/refresh", httpx.Chain(http.HandlerFunc(h.Refresh), moderate))
	mux.Handle("POST /v1/auth/logout", httpx.Chain(http.HandlerFunc(h.Logout), moderate))
	mux.Handle("POST /v1/auth/password/reset", httpx.Chain(http.HandlerFunc(h.ResetPassword), moderate))
	mux.Handle("POST /v1/auth/password/change", httpx.Chain(http.HandlerFunc(h.ChangePassword), moderate, authn))

	// Internal surface for sibling services.
	if cfg.InternalAPIKey != "" {
		apiKey := APIKeyMiddleware(cfg.InternalAPIKey)
		mux.Handle("GET /v1/internal/users/by-username", httpx.Chain(http.HandlerFunc(h.InternalGetUserByUsername), moderate, apiKey))
		mux.Handle("GET /v1/internal/users/{id}", httpx.Chain(http.HandlerFunc(h.InternalGetUser), moderate, apiKey))
		mux.Handle("PUT /v1/internal/users/{id}/enabled", httpx.Chain(http.HandlerFunc(h.InternalSetUserEnabled), moderate, apiKey))
	}

	// Health.
	mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(Livez), lenient))
	mux.Handle("GET /readyz", httpx.Chain(Readyz(cfg.Store), lenient))

	if cfg.EnableSwagger {
		mux.Handle("GET /swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	return slogx.HTTPMiddleware(slog.Default())(mux)
}
