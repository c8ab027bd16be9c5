package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/edustack/auth/internal/auth/domain"
)

type resetTokensRepo struct {
	db dbtx
}

const resetTokenColumns = `id, user_id, token_hash, expires_at, used_at, created_at`

func (r *resetTokensRepo) CreatePasswordResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.TokenHash,
		t.ExpiresAt.UTC(),
		mapOptionalTime(t.UsedAt),
		t.CreatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *resetTokensRepo) GetPasswordResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+resetTokenColumns+` FROM password_reset_tokens WHERE token_hash = ?`, hash)

	var (
		t      domain.PasswordResetToken
		usedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}

	t.UsedAt = mapNullTimePtr(usedAt)
	return t, nil
}

// MarkPasswordResetTokenUsed flips used_at on an unused token. ErrNotFound
// means the token was already consumed, so a second consume of the same token
// loses the race cleanly.
func (r *resetTokensRepo) MarkPasswordResetTokenUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		at.UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *resetTokensRepo) DeleteUserPasswordResetTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *resetTokensRepo) DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
