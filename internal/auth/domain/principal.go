package domain

import "slices"

// PrincipalKind discriminates the two caller identities the service
// recognises.
type PrincipalKind string

const (
	// PrincipalEndUser is a human caller authenticated by access token.
	PrincipalEndUser PrincipalKind = "end_user"

	// PrincipalInternalService is a sibling service authenticated by the
	// internal API key. It carries a fixed role and no user identity.
	PrincipalInternalService PrincipalKind = "internal_service"
)

// InternalServiceRole is granted to API-key-authenticated callers.
const InternalServiceRole = "internal-service"

// Principal is the tagged caller identity threaded explicitly through
// handlers, never stored in ambient global state. UserID, Username and
// Email are only set for end users.
type Principal struct {
	Kind     PrincipalKind
	UserID   string
	Username string
	Email    string
	Roles    []string
}

// EndUserPrincipal builds the principal for a verified access token.
func EndUserPrincipal(userID, username, email string, roles []string) Principal {
	return Principal{
		Kind:     PrincipalEndUser,
		UserID:   userID,
		Username: username,
		Email:    email,
		Roles:    roles,
	}
}

// InternalServicePrincipal builds the fixed principal granted to callers
// presenting the correct internal API key.
func InternalServicePrincipal() Principal {
	return Principal{
		Kind:  PrincipalInternalService,
		Roles: []string{InternalServiceRole},
	}
}

// HasRole reports whether the principal carries the named role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// IsEndUser reports whether the principal is a token-authenticated user.
func (p Principal) IsEndUser() bool { return p.Kind == PrincipalEndUser }
