package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/repository"
)

// Service centralizes every balance mutation. Handlers and other services
// never touch balance rows directly, so the non-negative invariant and the
// one-entry-per-mutation ledger rule are enforced in exactly one place.
type Service struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *Service {
	return &Service{storage: storage}
}

type DebitParams struct {
	UserID      uuid.UUID
	Amount      int64
	Type        string
	ReferenceID *uuid.UUID
	Description string
}

type CreditParams struct {
	UserID      uuid.UUID
	Amount      int64
	Type        string
	ReferenceID *uuid.UUID
	Description string
	ExpiresAt   *time.Time
}

// Debit removes credits and appends the matching negative ledger entry in one
// transaction. Fails with apperrors.ErrBalanceInsufficient when the balance
// does not cover the amount; nothing is written in that case.
func (s *Service) Debit(ctx context.Context, p DebitParams) (models.Balance, error) {
	var balance models.Balance
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		balance, err = s.DebitTx(ctx, tx, p)
		return err
	})
	return balance, err
}

// DebitTx is Debit running on the caller's transaction, for flows that need
// the debit atomic with other writes (the generation saga)
func (s *Service) DebitTx(ctx context.Context, store repository.Storage, p DebitParams) (models.Balance, error) {
	if p.Amount <= 0 {
		return models.Balance{}, apperrors.ErrAmountNotPositive
	}

	balance, err := store.Balance().ApplyEntry(ctx, models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Amount:      -p.Amount,
		Type:        p.Type,
		ReferenceID: p.ReferenceID,
		Description: p.Description,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return balance, fmt.Errorf("debit %d credits for user %s: %w", p.Amount, p.UserID, err)
	}

	return balance, nil
}

// Credit adds credits and appends the matching positive ledger entry in one
// transaction. Used for purchases, refunds, bonuses and referral rewards.
func (s *Service) Credit(ctx context.Context, p CreditParams) (models.Balance, error) {
	var balance models.Balance
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		balance, err = s.CreditTx(ctx, tx, p)
		return err
	})
	return balance, err
}

// CreditTx is Credit running on the caller's transaction
func (s *Service) CreditTx(ctx context.Context, store repository.Storage, p CreditParams) (models.Balance, error) {
	if p.Amount <= 0 {
		return models.Balance{}, apperrors.ErrAmountNotPositive
	}

	balance, err := store.Balance().ApplyEntry(ctx, models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Amount:      p.Amount,
		Type:        p.Type,
		ReferenceID: p.ReferenceID,
		Description: p.Description,
		CreatedAt:   time.Now(),
		ExpiresAt:   p.ExpiresAt,
	})
	if err != nil {
		return balance, fmt.Errorf("credit %d credits for user %s: %w", p.Amount, p.UserID, err)
	}

	return balance, nil
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	return s.storage.Balance().GetBalance(ctx, userID)
}

// ListEntries returns the user's ledger, newest first
// Empty types means all entry types
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, types []string) ([]models.LedgerEntry, error) {
	return s.storage.Balance().ListEntries(ctx, userID, types)
}
