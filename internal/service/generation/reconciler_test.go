package generation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/repository"
	"github.com/tunewave/tunewave/internal/repository/postgres"
	"github.com/tunewave/tunewave/internal/service/credit"
	"github.com/tunewave/tunewave/internal/testutil"
)

func TestHandleCallback(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Each test gets a user with 100 credits and one submitted task "ext-1"
	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage, userID uuid.UUID, task models.Task)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			credits := credit.NewService(storage)

			user, err := storage.User().CreateUser(t.Context(), "test-user", "hash")
			require.NoError(t, err)
			err = storage.Balance().CreateBalance(t.Context(), user.ID)
			require.NoError(t, err)
			_, err = credits.Credit(t.Context(), credit.CreditParams{
				UserID: user.ID,
				Amount: 100,
				Type:   models.EntryTypePurchase,
			})
			require.NoError(t, err)

			s, err := NewService(storage, credits, &fakeProvider{}, logger.NewNoOpLogger())
			require.NoError(t, err)

			task, err := s.Request(t.Context(), user.ID, models.GenerationInput{Prompt: "lo-fi beats to study to"}, QualityStandard)
			require.NoError(t, err)

			fn(s, storage, user.ID, task)
		})
	}

	t.Run("completed callback", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, userID uuid.UUID, task models.Task) {
			audio := "https://cdn.example/a.mp3"

			err := s.HandleCallback(t.Context(), Callback{ExternalID: "ext-1", Status: models.TaskStatusCompleted, AudioURL: &audio})
			require.NoError(t, err)

			stored, err := storage.Task().GetByID(t.Context(), task.ID)
			require.NoError(t, err)
			require.Equal(t, models.TaskStatusCompleted, stored.Status)
			require.Equal(t, audio, *stored.AudioURL)

			balance, err := storage.Balance().GetBalance(t.Context(), userID)
			require.NoError(t, err)
			require.Equal(t, int64(80), balance.Current, "success must not refund")

			notifications, err := storage.Notification().List(t.Context(), userID, false)
			require.NoError(t, err)
			require.Len(t, notifications, 1)
			require.Equal(t, models.NotificationSuccess, notifications[0].Type)
		})
	})

	t.Run("failed callback refunds", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, userID uuid.UUID, task models.Task) {
			reason := "render crashed"

			err := s.HandleCallback(t.Context(), Callback{ExternalID: "ext-1", Status: models.TaskStatusFailed, Failure: &reason})
			require.NoError(t, err)

			stored, err := storage.Task().GetByID(t.Context(), task.ID)
			require.NoError(t, err)
			require.Equal(t, models.TaskStatusFailed, stored.Status)

			balance, err := storage.Balance().GetBalance(t.Context(), userID)
			require.NoError(t, err)
			require.Equal(t, int64(100), balance.Current, "failure must refund the full cost")

			entries, err := storage.Balance().ListEntries(t.Context(), userID, []string{models.EntryTypeRefund})
			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.Equal(t, task.Cost, entries[0].Amount)

			notifications, err := storage.Notification().List(t.Context(), userID, false)
			require.NoError(t, err)
			require.Len(t, notifications, 1)
			require.Equal(t, models.NotificationError, notifications[0].Type)
		})
	})

	t.Run("redelivered failed callback refunds once", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, userID uuid.UUID, task models.Task) {
			reason := "render crashed"
			cb := Callback{ExternalID: "ext-1", Status: models.TaskStatusFailed, Failure: &reason}

			err := s.HandleCallback(t.Context(), cb)
			require.NoError(t, err)

			err = s.HandleCallback(t.Context(), cb)
			require.NoError(t, err, "redelivery must be acked as a no-op")

			balance, err := storage.Balance().GetBalance(t.Context(), userID)
			require.NoError(t, err)
			require.Equal(t, int64(100), balance.Current, "second callback must not refund again")

			entries, err := storage.Balance().ListEntries(t.Context(), userID, []string{models.EntryTypeRefund})
			require.NoError(t, err)
			require.Len(t, entries, 1)

			notifications, err := storage.Notification().List(t.Context(), userID, false)
			require.NoError(t, err)
			require.Len(t, notifications, 1, "redelivery must not notify again")
		})
	})

	t.Run("processing then completed", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, userID uuid.UUID, task models.Task) {
			err := s.HandleCallback(t.Context(), Callback{ExternalID: "ext-1", Status: models.TaskStatusProcessing})
			require.NoError(t, err)

			notifications, err := storage.Notification().List(t.Context(), userID, false)
			require.NoError(t, err)
			require.Empty(t, notifications, "intermediate status must not notify")

			err = s.HandleCallback(t.Context(), Callback{ExternalID: "ext-1", Status: models.TaskStatusCompleted})
			require.NoError(t, err)

			stored, err := storage.Task().GetByID(t.Context(), task.ID)
			require.NoError(t, err)
			require.Equal(t, models.TaskStatusCompleted, stored.Status)
		})
	})

	t.Run("unknown external id", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage, _ uuid.UUID, _ models.Task) {
			err := s.HandleCallback(t.Context(), Callback{ExternalID: "no-such-task", Status: models.TaskStatusCompleted})

			require.ErrorIs(t, err, apperrors.ErrTaskNotFound)
		})
	})

	t.Run("invalid status", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage, _ uuid.UUID, _ models.Task) {
			err := s.HandleCallback(t.Context(), Callback{ExternalID: "ext-1", Status: "paused"})
			require.ErrorIs(t, err, apperrors.ErrTaskStatusInvalid)

			err = s.HandleCallback(t.Context(), Callback{ExternalID: "ext-1", Status: models.TaskStatusPending})
			require.ErrorIs(t, err, apperrors.ErrTaskStatusInvalid)
		})
	})
}

func TestCost(t *testing.T) {
	tests := []struct {
		quality string
		cost    int64
	}{
		{quality: "", cost: 20},
		{quality: QualityStandard, cost: 20},
		{quality: QualityHD, cost: 30},
		{quality: QualityUltra, cost: 50},
	}

	for _, tc := range tests {
		cost, err := Cost(tc.quality)
		require.NoError(t, err)
		require.Equal(t, tc.cost, cost, "quality %q", tc.quality)
	}

	_, err := Cost("lossless")
	require.ErrorIs(t, err, apperrors.ErrQualityInvalid)
}
