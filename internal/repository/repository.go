package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token in repository
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token and mark it used in one step
	// If the token is already used, must not overwrite the existing 'usedAt'
	// and must return apperrors.ErrRefreshTokenIsUsed
	// If the token is unknown must return apperrors.ErrRefreshTokenNotFound
	GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error)
}

// Balance repository: account balances plus the append-only ledger
type BalanceRepo interface {
	// Create zero balance for the user
	CreateBalance(ctx context.Context, userID uuid.UUID) error

	// Read current balance, no side effects
	// If user has no balance row must return apperrors.ErrUserNotFound
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)

	// Apply a signed ledger entry to the balance: a single conditional UPDATE
	// plus the entry INSERT. A negative amount that would drive the balance
	// below zero (or hit an expired balance) fails with
	// apperrors.ErrBalanceInsufficient and mutates nothing.
	//
	// The two statements are atomic only inside Storage.InTx; callers that
	// mutate money must wrap this call in a transaction.
	ApplyEntry(ctx context.Context, entry models.LedgerEntry) (models.Balance, error)

	// List ledger entries, newest first. Empty types means all types.
	ListEntries(ctx context.Context, userID uuid.UUID, types []string) ([]models.LedgerEntry, error)
}

// Task repository: system of record for submitted generation jobs
type TaskRepo interface {
	// Insert new task row as is
	Create(ctx context.Context, task models.Task) (models.Task, error)

	// Attach the provider-assigned task id to an existing row
	// If the external id is taken must return apperrors.ErrTaskAlreadyExists
	AttachExternal(ctx context.Context, taskID uuid.UUID, externalID string) (models.Task, error)

	GetByID(ctx context.Context, taskID uuid.UUID) (models.Task, error)
	GetByExternalID(ctx context.Context, externalID string) (models.Task, error)

	// List user's tasks, newest first
	List(ctx context.Context, userID uuid.UUID) ([]models.Task, error)

	// Advance task status looked up by external id. Transitions are monotonic:
	// pending -> processing -> completed|failed. A duplicate or backward
	// transition changes nothing and returns apperrors.ErrTaskAlreadyFinal
	// with the stored task, so callers can treat redelivery as a no-op.
	Advance(ctx context.Context, externalID string, status string, audioURL *string, failure *string) (models.Task, error)

	// Mark a still-pending task failed by internal id (submission never
	// reached the provider, so there is no external id to join on)
	FailByID(ctx context.Context, taskID uuid.UUID, failure string) (models.Task, error)
}

// Notification repository interface
type NotificationRepo interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)

	// Mark one notification read; apperrors.ErrNotificationNotFound if it is
	// absent or owned by a different user
	MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error

	// Mark all unread notifications read, return how many were updated
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Storage aggregates repositories over a single connection source
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Balance() BalanceRepo
	Task() TaskRepo
	Notification() NotificationRepo

	// Run fn with a Storage bound to one database transaction.
	// The transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}
