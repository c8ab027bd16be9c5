package service

import "errors"

// Sentinel errors returned by the services. The HTTP layer maps these to
// API error responses; nothing below the handlers knows about status
// codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked or unknown")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)
