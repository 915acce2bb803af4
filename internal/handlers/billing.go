package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/logger"
)

func handleListPlans(billing billingService) http.Handler {
	type plan struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Credits     int64           `json:"credits"`
		ValidDays   int             `json:"valid_days"`
		IsPopular   bool            `json:"is_popular"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := make([]plan, 0)
		for _, p := range billing.Plans(r.Context()) {
			out = append(out, plan{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				Price:       p.Price,
				Credits:     p.Credits,
				ValidDays:   p.ValidDays,
				IsPopular:   p.IsPopular,
			})
		}
		render.JSON(w, out)
	})
}

func handlePurchasePlan(billing billingService, l logger.Logger) http.Handler {
	type request struct {
		PlanID string `json:"plan_id" validate:"required"`
	}
	type response struct {
		Current   int64      `json:"current"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		balance, err := billing.Purchase(r.Context(), user.ID, data.PlanID)

		switch {
		case err == nil:
			render.JSON(w, response{Current: balance.Current, ExpiresAt: balance.ExpiresAt})
		case errors.Is(err, apperrors.ErrPlanNotFound):
			render.ServiceError(w, render.CodeNotFound, "Plan not found", http.StatusNotFound)
		default:
			l.Error("Failed to purchase plan", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
		}
	})
}
