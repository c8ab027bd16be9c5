package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/internal/auth/store"
	"github.com/edustack/auth/pkg/cryptox"
	"github.com/edustack/auth/pkg/idx"
	"github.com/edustack/auth/pkg/jwtx"
)

// TokenService owns the token lifecycle: signed access tokens via the
// codec, opaque refresh tokens persisted by fingerprint.
type TokenService struct {
	store      store.Store
	codec      *jwtx.Codec
	refreshTTL time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func NewTokenService(st store.Store, codec *jwtx.Codec, refreshTTL time.Duration) *TokenService {
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &TokenService{
		store:      st,
		codec:      codec,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue mints a fresh access+refresh pair for the user. The raw refresh
// token leaves the service exactly once, in the returned pair; only its
// fingerprint is stored.
func (s *TokenService) Issue(ctx context.Context, user domain.User, dev domain.DeviceContext) (domain.TokenPair, error) {
	now := s.now().UTC()

	access, err := s.codec.Issue(user.ID, user.Username, user.Email, user.Roles, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
		UserAgent: dev.UserAgent,
		IPAddress: dev.IPAddress,
	}
	if err := s.store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
	}, nil
}

// Redeem validates a raw refresh token and returns its stored record. An
// unknown or revoked token yields ErrTokenRevoked; an expired one is
// lazily revoked and yields ErrTokenExpired.
func (s *TokenService) Redeem(ctx context.Context, raw string) (domain.RefreshToken, error) {
	hash := cryptox.FingerprintToken(raw)

	record, err := s.store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrTokenRevoked
		}
		return domain.RefreshToken{}, err
	}

	if record.RevokedAt != nil {
		return domain.RefreshToken{}, ErrTokenRevoked
	}

	now := s.now().UTC()
	if record.Expired(now) {
		// Mark it terminally revoked so later lookups short-circuit.
		if err := s.store.RefreshTokens().RevokeRefreshToken(ctx, hash, now); err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, err
		}
		return domain.RefreshToken{}, ErrTokenExpired
	}

	return record, nil
}

// Rotate redeems a refresh token and replaces it with a fresh pair inside
// a single transaction. The guarded revoke means that when two rotations
// race on the same token, exactly one wins; the loser sees
// ErrTokenRevoked.
func (s *TokenService) Rotate(ctx context.Context, raw string, dev domain.DeviceContext) (domain.TokenPair, error) {
	record, err := s.Redeem(ctx, raw)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.store.Users().GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrTokenRevoked
		}
		return domain.TokenPair{}, err
	}
	if !user.Enabled {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	now := s.now().UTC()

	access, err := s.codec.Issue(user.ID, user.Username, user.Email, user.Roles, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	nextRaw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	next := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(nextRaw),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
		UserAgent: dev.UserAgent,
		IPAddress: dev.IPAddress,
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, record.TokenHash, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenRevoked
			}
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, next)
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: nextRaw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
	}, nil
}

// Revoke kills a single refresh token (logout). Unknown or already
// revoked tokens are reported as ErrTokenRevoked.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	err := s.store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(raw), s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return ErrTokenRevoked
	}
	return err
}

// RevokeAll kills every active refresh token for the user. Used after
// password changes, password resets and account deactivation.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, s.now().UTC())
}

// RevokeExpired lazily revokes any of the user's tokens that have passed
// their expiry without being revoked. Called on login so stale rows do
// not linger in the active set.
func (s *TokenService) RevokeExpired(ctx context.Context, userID string) error {
	now := s.now().UTC()

	tokens, err := s.store.RefreshTokens().ListActiveUserRefreshTokens(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if !t.Expired(now) {
			continue
		}
		if err := s.store.RefreshTokens().RevokeRefreshToken(ctx, t.TokenHash, now); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}
