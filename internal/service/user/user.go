package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/repository"
	"github.com/tunewave/tunewave/internal/service/auth"
	"github.com/tunewave/tunewave/internal/service/credit"
)

const (
	// Free tier: credits granted once at signup, expiring after 30 days
	welcomeCredits    = 20
	welcomeExpiryDays = 30
)

type Service struct {
	storage repository.Storage
	credits *credit.Service
	hasher  auth.PasswordHasher
}

func NewService(storage repository.Storage, credits *credit.Service, hasher auth.PasswordHasher) *Service {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &Service{
		storage: storage,
		credits: credits,
		hasher:  hasher,
	}
}

// Signup creates the user, their zero balance and the welcome credit grant in
// one transaction. Either the account appears fully provisioned or not at all.
func (s *Service) Signup(ctx context.Context, username string, password string) (models.User, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("error hashing password. Err: %w", err)
	}

	var user models.User
	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		user, err = tx.User().CreateUser(ctx, username, hashed)
		if err != nil {
			return err
		}

		if err = tx.Balance().CreateBalance(ctx, user.ID); err != nil {
			return err
		}

		expiresAt := time.Now().AddDate(0, 0, welcomeExpiryDays)
		_, err = s.credits.CreditTx(ctx, tx, credit.CreditParams{
			UserID:      user.ID,
			Amount:      welcomeCredits,
			Type:        models.EntryTypeBonus,
			Description: "welcome credits",
			ExpiresAt:   &expiresAt,
		})
		return err
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login validates the password and returns the user.
// Returns apperrors.ErrUserNotFound on any credentials mismatch so callers
// can't tell a wrong password from an unknown username.
func (s *Service) Login(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}
