package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
)

type BalanceRepo struct {
	DB DBTX
}

func (r *BalanceRepo) CreateBalance(ctx context.Context, userID uuid.UUID) error {
	const createBalance = `
	INSERT INTO balances (user_id, current)
	VALUES ($1, 0)
	RETURNING id
	`

	_, err := r.DB.Exec(ctx, createBalance, userID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("user balance already exists: %w", err)
		}

		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *BalanceRepo) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	const getBalanceByUserID = `
	SELECT id, user_id, current, expires_at FROM balances
	WHERE user_id = $1
	`

	rows, _ := r.DB.Query(ctx, getBalanceByUserID, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return balance, apperrors.ErrUserNotFound
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

// Debit the balance only when enough unexpired credits exist.
// The condition lives in the UPDATE itself so two concurrent debits can never
// both pass on a balance that covers only one of them.
const debitBalance = `-- name: DebitBalance
UPDATE balances
SET current = current + $2
WHERE user_id = $1
  AND current + $2 >= 0
  AND (expires_at IS NULL OR expires_at > now())
RETURNING id, user_id, current, expires_at
`

// Credit the balance. A provided expiry never shortens an existing one.
const creditBalance = `-- name: CreditBalance
UPDATE balances
SET current = current + $2,
    expires_at = CASE
        WHEN $3::timestamptz IS NULL THEN expires_at
        ELSE GREATEST(COALESCE(expires_at, $3::timestamptz), $3::timestamptz)
    END
WHERE user_id = $1
RETURNING id, user_id, current, expires_at
`

const insertEntry = `-- name: InsertLedgerEntry
INSERT INTO ledger_entries (id, user_id, amount, type, reference_id, description, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *BalanceRepo) ApplyEntry(ctx context.Context, entry models.LedgerEntry) (models.Balance, error) {
	var balance models.Balance
	var err error

	switch {
	case entry.Amount < 0:
		rows, _ := r.DB.Query(ctx, debitBalance, entry.UserID, entry.Amount)
		balance, err = pgx.CollectOneRow(rows, rowToBalance)
	default:
		rows, _ := r.DB.Query(ctx, creditBalance, entry.UserID, entry.Amount, entry.ExpiresAt)
		balance, err = pgx.CollectOneRow(rows, rowToBalance)
	}

	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows) && entry.Amount < 0:
		// The conditional debit matched nothing: either the user is unknown
		// or the credits do not cover the amount
		if _, getErr := r.GetBalance(ctx, entry.UserID); getErr != nil {
			return balance, getErr
		}
		return balance, apperrors.ErrBalanceInsufficient
	case errors.Is(err, pgx.ErrNoRows):
		return balance, apperrors.ErrUserNotFound
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}

	_, err = r.DB.Exec(ctx, insertEntry,
		entry.ID, entry.UserID, entry.Amount, entry.Type,
		entry.ReferenceID, entry.Description, entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

const listEntries = `-- name: ListLedgerEntries
SELECT id, user_id, amount, type, reference_id, description, created_at, expires_at
FROM ledger_entries
WHERE user_id = $1 AND ($2::text[] IS NULL OR type = ANY($2))
ORDER BY created_at DESC
`

func (r *BalanceRepo) ListEntries(ctx context.Context, userID uuid.UUID, types []string) ([]models.LedgerEntry, error) {
	rows, _ := r.DB.Query(ctx, listEntries, userID, types)
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LedgerEntry, error) {
		var e models.LedgerEntry
		err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Type, &e.ReferenceID, &e.Description, &e.CreatedAt, &e.ExpiresAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.ID, &b.UserID, &b.Current, &b.ExpiresAt)
	return b, err
}
