package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/service/credit"
)

// Service sells credit bundles from the static plan catalog
type Service struct {
	credits *credit.Service
}

func NewService(credits *credit.Service) *Service {
	return &Service{credits: credits}
}

// Plans returns the purchasable catalog
func (s *Service) Plans(ctx context.Context) []models.Plan {
	out := make([]models.Plan, len(plans))
	copy(out, plans)
	return out
}

func (s *Service) GetPlan(planID string) (models.Plan, error) {
	for _, p := range plans {
		if p.ID == planID {
			return p, nil
		}
	}
	return models.Plan{}, apperrors.ErrPlanNotFound
}

// Purchase credits the plan's bundle to the user's balance.
// The grant expires ValidDays from now; topping up an active balance pushes
// the expiry out rather than shortening it.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, planID string) (models.Balance, error) {
	plan, err := s.GetPlan(planID)
	if err != nil {
		return models.Balance{}, err
	}

	expiresAt := time.Now().AddDate(0, 0, plan.ValidDays)
	return s.credits.Credit(ctx, credit.CreditParams{
		UserID:      userID,
		Amount:      plan.Credits,
		Type:        models.EntryTypePurchase,
		Description: fmt.Sprintf("plan purchase: %s", plan.Name),
		ExpiresAt:   &expiresAt,
	})
}
