package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, token, created_at, expires_at, used_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken, token.ID, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt, token.UsedAt)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return token, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

const markTokenUsed = `-- name: MarkTokenUsedIfNotUsed
UPDATE refresh_tokens
SET used_at = COALESCE(used_at, $2)
WHERE token = $1
RETURNING id, user_id, created_at, expires_at, used_at
`

// Return the token and mark it used
// Must be idempotent-hostile on purpose: a token that was used before keeps
// its original used_at and the call fails with apperrors.ErrRefreshTokenIsUsed
func (r *RefreshTokenRepo) GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	// Postgres keeps microseconds, so truncate before the equality check below
	now := time.Now().Truncate(time.Microsecond)

	rows, _ := r.DB.Query(ctx, markTokenUsed, tokenString, now)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		t := models.RefreshToken{Token: tokenString}
		err := row.Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt, &t.UsedAt)
		return t, err
	})

	switch {
	case err == nil && token.UsedAt != nil && token.UsedAt.Equal(now):
		return token, nil
	case err == nil: // usedAt differs from now == token was used earlier
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenIsUsed)
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}
