package http

import (
	"context"
	"errors"

	"github.com/edustack/auth/internal/auth/service"
	"github.com/edustack/auth/pkg/httpx"
	"github.com/edustack/auth/pkg/slogx"
)

// serviceError maps service sentinels onto API error responses. Anything
// unrecognised is logged and reported as a plain server error so internal
// detail never leaks to clients.
func serviceError(ctx context.Context, err error) *httpx.APIError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return httpx.ErrInvalidCredentials
	case errors.Is(err, service.ErrUserExists):
		return httpx.ErrUserAlreadyExists
	case errors.Is(err, service.ErrUserNotFound):
		return httpx.ErrResourceNotFound
	case errors.Is(err, service.ErrAccountDisabled):
		return httpx.ErrAccountDisabled
	case errors.Is(err, service.ErrTokenExpired):
		return httpx.ErrTokenExpired
	case errors.Is(err, service.ErrTokenRevoked):
		return httpx.ErrTokenRevoked
	case errors.Is(err, service.ErrWeakPassword):
		return httpx.NewAPIError(400, httpx.ErrorCodeInvalidRequest, "password does not meet the minimum requirements")
	default:
		slogx.FromContext(ctx).Error("unhandled service error", "err", err)
		return httpx.ErrServerError
	}
}
