package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/internal/auth/store"
	"github.com/edustack/auth/pkg/cryptox"
	"github.com/edustack/auth/pkg/idx"
	"github.com/edustack/auth/pkg/slogx"
)

// MinPasswordLength is the floor applied to every password the service
// accepts, at registration, change and reset.
const MinPasswordLength = 8

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// AuthResult bundles the issued token pair with the identity it was
// issued for, so handlers can build responses without a second lookup.
type AuthResult struct {
	Pair     domain.TokenPair
	UserID   string
	Username string
	Email    string
	Roles    []string
}

// AuthService orchestrates registration, login and the password
// lifecycle. It owns no token mechanics itself; those live in
// TokenService and ResetService.
type AuthService struct {
	store  store.Store
	tokens *TokenService
	resets *ResetService
}

func NewAuthService(st store.Store, tokens *TokenService, resets *ResetService) *AuthService {
	return &AuthService{
		store:  st,
		tokens: tokens,
		resets: resets,
	}
}

// RegisterParams carries the self-registration input.
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new enabled account with the default role and logs
// it straight in.
func (s *AuthService) Register(ctx context.Context, p RegisterParams, dev domain.DeviceContext) (AuthResult, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)

	if p.Username == "" || p.Email == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := ValidatePassword(p.Password); err != nil {
		return AuthResult{}, err
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Enabled:      true,
		Roles:        []string{domain.DefaultRole},
	}

	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return AuthResult{}, ErrUserExists
		}
		return AuthResult{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID, "username", user.Username)

	return s.issueFor(ctx, user, dev)
}

// Login verifies credentials and issues a token pair. The identifier may
// be a username or an email address; username wins when both match.
func (s *AuthService) Login(ctx context.Context, identifier, password string, dev domain.DeviceContext) (AuthResult, error) {
	user, err := s.lookupByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so missing users are not
			// distinguishable by response latency.
			_ = cryptox.VerifyPassword(password, dummyPasswordHash)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if !user.Enabled {
		return AuthResult{}, ErrAccountDisabled
	}

	// Sweep the user's quietly expired tokens while we are here.
	if err := s.tokens.RevokeExpired(ctx, user.ID); err != nil {
		slogx.FromContext(ctx).Warn("expired token sweep failed", "err", err, "user_id", user.ID)
	}

	return s.issueFor(ctx, user, dev)
}

// Refresh rotates a refresh token into a new pair. A token that has
// already been rotated is rejected outright.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, dev domain.DeviceContext) (AuthResult, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken, dev)
	if err != nil {
		return AuthResult{}, err
	}

	claims, err := s.tokens.codec.Validate(pair.AccessToken)
	if err != nil {
		return AuthResult{}, fmt.Errorf("validate freshly issued token: %w", err)
	}

	return AuthResult{
		Pair:     pair,
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.RoleList(),
	}, nil
}

// Logout revokes a single refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// ChangePassword swaps the password for an authenticated user after
// verifying the current one, then revokes every refresh token so other
// sessions must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := ValidatePassword(next); err != nil {
		return err
	}

	user, err := s.store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	newHash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.tokens.now().UTC()
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, user.ID, now)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", user.ID)
	return nil
}

// ForgotPassword starts the reset flow. It does not reveal whether the
// email has an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.resets.Request(ctx, email)
}

// ResetPassword completes the reset flow with a token from the email.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.resets.Consume(ctx, token, newPassword)
}

// GetUser returns a user by id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetUserByUsername returns a user by username (internal API surface).
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := s.store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// SetUserEnabled flips the account flag. Disabling also revokes every
// refresh token so existing sessions die with the account.
func (s *AuthService) SetUserEnabled(ctx context.Context, userID string, enabled bool) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetEnabled(ctx, userID, enabled); err != nil {
			return err
		}
		if !enabled {
			return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, s.tokens.now().UTC())
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *AuthService) issueFor(ctx context.Context, user domain.User, dev domain.DeviceContext) (AuthResult, error) {
	pair, err := s.tokens.Issue(ctx, user, dev)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		Pair:     pair,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.Roles,
	}, nil
}

func (s *AuthService) lookupByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := s.store.Users().GetUserByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	return s.store.Users().GetUserByEmail(ctx, identifier)
}

// dummyPasswordHash is a valid argon2id hash of a random throwaway value,
// verified against when the user does not exist.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
