package store

import (
	"context"
	"errors"
	"time"

	"github.com/edustack/auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories keep concerns tidy and make
// it obvious which operations participate in a transaction.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	PasswordResetTokens() PasswordResetTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn
	// returns an error and committing otherwise. This is the recommended
	// way to run multi-step operations that must be atomic, such as
	// refresh-token rotation and reset-token consumption.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos plus
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername resolves the login identifier's first form.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail resolves the login identifier's second form and the
	// forgot-password lookup. Matching is exact (case-sensitive).
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is a ULID provided by the app).
	// Returns ErrAlreadyExists when the username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetEnabled flips the enabled flag (admin deactivation path).
	SetEnabled(ctx context.Context, userID string, enabled bool) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken sets revoked_at, guarded on the token still
	// being unrevoked. Returns ErrNotFound when no live row matched,
	// which is how concurrent rotations of the same token lose the race.
	RevokeRefreshToken(ctx context.Context, hash string, at time.Time) error

	// RevokeAllUserRefreshTokens bulk-revokes every active token for a
	// user (password change/reset, admin deactivation).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string, at time.Time) error

	// ListActiveUserRefreshTokens returns unrevoked tokens for a user,
	// including any that have quietly expired.
	ListActiveUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	// DeleteExpiredRefreshTokens is housekeeping. It reports how many rows
	// were removed.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type PasswordResetTokens interface {
	// CreatePasswordResetToken stores a freshly issued reset token.
	CreatePasswordResetToken(ctx context.Context, t domain.PasswordResetToken) error

	// GetPasswordResetTokenByHash fetches a token by fingerprint when
	// redeeming, regardless of used/expired state.
	GetPasswordResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error)

	// MarkPasswordResetTokenUsed sets used_at, guarded on the token being
	// unused. Returns ErrNotFound when another consumer got there first.
	MarkPasswordResetTokenUsed(ctx context.Context, id string, at time.Time) error

	// DeleteUserPasswordResetTokens removes all reset tokens for a user.
	// Called before issuing so only one active token exists per user.
	DeleteUserPasswordResetTokens(ctx context.Context, userID string) error

	// DeleteExpiredPasswordResetTokens is housekeeping. It reports how many
	// rows were removed.
	DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error)
}
