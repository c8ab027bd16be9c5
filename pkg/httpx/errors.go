package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// API error codes returned to clients.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeUserAlreadyExists  = "user_already_exists"
	ErrorCodeResourceNotFound   = "resource_not_found"
	ErrorCodeAccountDisabled    = "account_disabled"
	ErrorCodeTokenExpired       = "token_expired"
	ErrorCodeTokenRevoked       = "token_revoked"
	ErrorCodeTokenMalformed     = "token_malformed"
	ErrorCodeTokenInvalid       = "token_invalid"
	ErrorCodeUnauthorized       = "unauthorized"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeServerError        = "server_error"
)

// APIError is the JSON error body every handler returns on failure. It
// implements the error interface so the client SDK can surface it as-is.
type APIError struct {
	// StatusCode is the HTTP status for this error, not serialized.
	StatusCode int `json:"-"`

	// Code is the machine-readable error code.
	Code string `json:"error"`

	// Description is a human-readable description of the error.
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request body is malformed or
	// missing required fields.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is returned when the identifier/password pair
	// does not verify. The description deliberately does not say which.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username/email or password",
	}

	// ErrUserAlreadyExists is returned when the username or email is taken.
	ErrUserAlreadyExists = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUserAlreadyExists,
		Description: "username or email is already registered",
	}

	// ErrResourceNotFound is returned when the referenced entity is absent.
	ErrResourceNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeResourceNotFound,
		Description: "requested resource was not found",
	}

	// ErrAccountDisabled is returned when credentials verify but the
	// account has been deactivated.
	ErrAccountDisabled = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountDisabled,
		Description: "account is disabled",
	}

	// ErrTokenExpired is returned when a refresh or reset token is past
	// its expiry.
	ErrTokenExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenExpired,
		Description: "token has expired, please authenticate again",
	}

	// ErrTokenRevoked is returned when a refresh or reset token has been
	// revoked or already used. Reuse of a rotated refresh token lands here.
	ErrTokenRevoked = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenRevoked,
		Description: "token has been revoked or already used",
	}

	// ErrTokenMalformed is returned when an access token is structurally
	// invalid.
	ErrTokenMalformed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenMalformed,
		Description: "token is malformed",
	}

	// ErrTokenInvalid is returned when an access token fails signature
	// verification.
	ErrTokenInvalid = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenInvalid,
		Description: "token signature verification failed",
	}

	// ErrUnauthorized is returned when no usable credential accompanies
	// the request.
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "missing or invalid credentials",
	}

	// ErrForbidden is returned when the caller's principal type or roles
	// do not permit the operation.
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "the authenticated principal may not perform this operation",
	}

	// ErrServerError is returned for unexpected internal failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError creates a custom APIError while keeping the standard shape.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}
