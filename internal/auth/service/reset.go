package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/internal/auth/notify"
	"github.com/edustack/auth/internal/auth/store"
	"github.com/edustack/auth/pkg/cryptox"
	"github.com/edustack/auth/pkg/idx"
	"github.com/edustack/auth/pkg/slogx"
)

// DefaultResetTokenTTL is how long a password reset link stays valid.
const DefaultResetTokenTTL = 60 * time.Minute

// ResetService issues and consumes single-use password reset tokens.
type ResetService struct {
	store    store.Store
	notifier notify.Notifier
	ttl      time.Duration

	now func() time.Time

	// dispatch runs the notification send. Overridden in tests to make
	// delivery synchronous.
	dispatch func(fn func())
}

func NewResetService(st store.Store, notifier notify.Notifier, ttl time.Duration) *ResetService {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetService{
		store:    st,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
		dispatch: func(fn func()) { go fn() },
	}
}

// Request issues a reset token for the account behind the email and hands
// it to the notifier. It succeeds from the caller's view whether or not
// the account exists, so the endpoint cannot be used to probe for
// registered addresses.
func (s *ResetService) Request(ctx context.Context, email string) error {
	user, err := s.store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	record := domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	// One live token per user: wipe any earlier ones before inserting.
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResetTokens().DeleteUserPasswordResetTokens(ctx, user.ID); err != nil {
			return err
		}
		return tx.PasswordResetTokens().CreatePasswordResetToken(ctx, record)
	})
	if err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	// Delivery failures never undo the stored token; they are logged and
	// the user can request again.
	log := slogx.FromContext(ctx)
	s.dispatch(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		subject := "Password reset request"
		body := fmt.Sprintf(
			"Hello %s,\n\nA password reset was requested for your account. "+
				"Use the token below within %d minutes to choose a new password:\n\n%s\n\n"+
				"If you did not request this, you can ignore this message.",
			user.DisplayName(), int(s.ttl.Minutes()), raw,
		)
		if err := s.notifier.Send(sendCtx, user.Email, subject, body); err != nil {
			log.Error("reset notification delivery failed", "err", err, "user_id", user.ID)
		}
	})

	return nil
}

// Consume redeems a reset token and installs the new password. The whole
// operation runs in one transaction: mark the token used (guarded, so a
// token can only ever be consumed once), store the new hash, and revoke
// every refresh token the user holds.
func (s *ResetService) Consume(ctx context.Context, raw, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash := cryptox.FingerprintToken(raw)

	record, err := s.store.PasswordResetTokens().GetPasswordResetTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenRevoked
		}
		return err
	}

	now := s.now().UTC()

	if record.UsedAt != nil {
		return ErrTokenRevoked
	}
	if record.Expired(now) {
		// Terminal: even if the clock later moved back the token would
		// stay dead.
		if err := s.store.PasswordResetTokens().MarkPasswordResetTokenUsed(ctx, record.ID, now); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return ErrTokenExpired
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResetTokens().MarkPasswordResetTokenUsed(ctx, record.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenRevoked
			}
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, record.UserID, newHash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, record.UserID, now)
	})
}
