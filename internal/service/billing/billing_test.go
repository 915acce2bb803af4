package billing

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/repository"
	"github.com/tunewave/tunewave/internal/repository/postgres"
	"github.com/tunewave/tunewave/internal/service/credit"
	"github.com/tunewave/tunewave/internal/testutil"
)

func TestPlans(t *testing.T) {
	t.Parallel()

	s := NewService(nil)
	catalog := s.Plans(t.Context())

	require.NotEmpty(t, catalog)

	popular := 0
	for _, p := range catalog {
		require.NotEmpty(t, p.ID)
		require.NotEmpty(t, p.Name)
		require.True(t, p.Price.GreaterThan(decimal.Zero), "plan %s must have a positive price", p.ID)
		require.Positive(t, p.Credits, "plan %s must grant credits", p.ID)
		require.Positive(t, p.ValidDays, "plan %s credits must expire", p.ID)
		if p.IsPopular {
			popular++
		}
	}
	require.Equal(t, 1, popular, "exactly one plan is highlighted")

	t.Run("get known plan", func(t *testing.T) {
		plan, err := s.GetPlan("basico")

		require.NoError(t, err)
		require.Equal(t, int64(100), plan.Credits)
	})

	t.Run("get unknown plan", func(t *testing.T) {
		_, err := s.GetPlan("free-lunch")

		require.ErrorIs(t, err, apperrors.ErrPlanNotFound)
	})
}

func TestPurchase(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			user, err := storage.User().CreateUser(t.Context(), "test-user", "hash")
			require.NoError(t, err)
			err = storage.Balance().CreateBalance(t.Context(), user.ID)
			require.NoError(t, err)

			fn(NewService(credit.NewService(storage)), storage, user)
		})
	}

	t.Run("purchase credits the bundle", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, user models.User) {
			balance, err := s.Purchase(t.Context(), user.ID, "intermediario")

			require.NoError(t, err)
			require.Equal(t, int64(200), balance.Current)
			require.NotNil(t, balance.ExpiresAt)
			require.WithinDuration(t, time.Now().AddDate(0, 0, 30), *balance.ExpiresAt, time.Minute)

			entries, err := storage.Balance().ListEntries(t.Context(), user.ID, []string{models.EntryTypePurchase})
			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.Equal(t, int64(200), entries[0].Amount)
		})
	})

	t.Run("purchase unknown plan", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, user models.User) {
			_, err := s.Purchase(t.Context(), user.ID, "free-lunch")

			require.ErrorIs(t, err, apperrors.ErrPlanNotFound)

			balance, err := storage.Balance().GetBalance(t.Context(), user.ID)
			require.NoError(t, err)
			require.Zero(t, balance.Current)
		})
	})
}
