package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, token_hash, issued_at, expires_at, revoked_at, user_agent, ip_address`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, issued_at, expires_at, revoked_at, user_agent, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.TokenHash,
		t.IssuedAt.UTC(),
		t.ExpiresAt.UTC(),
		mapOptionalTime(t.RevokedAt),
		mapStringNull(t.UserAgent),
		mapStringNull(t.IPAddress),
	)
	return mapConflict(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.RefreshToken{}, err
		}
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return scanRefreshToken(rows)
}

// RevokeRefreshToken marks a live token revoked. The revoked_at IS NULL guard
// makes the call fail with ErrNotFound when the token was already revoked, so
// concurrent rotations of the same token cannot both succeed.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		at.UTC(), hash)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		at.UTC(), userID)
	return err
}

func (r *refreshTokensRepo) ListActiveUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens
		 WHERE user_id = ? AND revoked_at IS NULL
		 ORDER BY issued_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		userAgent sql.NullString
		ipAddress sql.NullString
		revokedAt sql.NullTime
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.IssuedAt,
		&t.ExpiresAt,
		&revokedAt,
		&userAgent,
		&ipAddress,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.RevokedAt = mapNullTimePtr(revokedAt)
	t.UserAgent = mapNullString(userAgent)
	t.IPAddress = mapNullString(ipAddress)
	return t, nil
}
