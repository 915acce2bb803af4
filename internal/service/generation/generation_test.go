package generation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/provider"
	"github.com/tunewave/tunewave/internal/repository"
	"github.com/tunewave/tunewave/internal/repository/postgres"
	"github.com/tunewave/tunewave/internal/service/credit"
	"github.com/tunewave/tunewave/internal/testutil"
)

// fakeProvider lets each test decide how the submission goes
type fakeProvider struct {
	submit func(ctx context.Context, job provider.Job) (string, error)
	calls  int
}

func (f *fakeProvider) Submit(ctx context.Context, job provider.Job) (string, error) {
	f.calls++
	if f.submit != nil {
		return f.submit(ctx, job)
	}
	return "ext-1", nil
}

func TestGeneration(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	validInput := models.GenerationInput{Prompt: "lo-fi beats to study to", DurationSeconds: 30}

	inTx := func(t *testing.T, prov *fakeProvider, fn func(s *Service, storage repository.Storage, userID uuid.UUID)) {
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

			s, err := NewService(storage, credits, prov, logger.NewNoOpLogger())
			require.NoError(t, err)

			fn(s, storage, user.ID)
		})
	}

	t.Run("Request", func(t *testing.T) {
		t.Run("request ok", func(t *testing.T) {
			inTx(t, &fakeProvider{}, func(s *Service, storage repository.Storage, userID uuid.UUID) {
				task, err := s.Request(t.Context(), userID, validInput, QualityStandard)

				require.NoError(t, err)
				require.Equal(t, models.TaskStatusPending, task.Status)
				require.NotNil(t, task.ExternalID)
				require.Equal(t, "ext-1", *task.ExternalID)
				require.Equal(t, int64(20), task.Cost)

				balance, err := storage.Balance().GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(80), balance.Current, "standard quality costs 20 credits")

				entries, err := storage.Balance().ListEntries(t.Context(), userID, []string{models.EntryTypeGeneration})
				require.NoError(t, err)
				require.Len(t, entries, 1)
				require.Equal(t, task.ID, *entries[0].ReferenceID, "debit should reference the task")
			})
		})

		t.Run("quality sets the cost", func(t *testing.T) {
			inTx(t, &fakeProvider{}, func(s *Service, storage repository.Storage, userID uuid.UUID) {
				task, err := s.Request(t.Context(), userID, validInput, QualityUltra)

				require.NoError(t, err)
				require.Equal(t, int64(50), task.Cost)

				balance, err := storage.Balance().GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(50), balance.Current)
			})
		})

		t.Run("prompt too short", func(t *testing.T) {
			prov := &fakeProvider{}
			inTx(t, prov, func(s *Service, _ repository.Storage, userID uuid.UUID) {
				_, err := s.Request(t.Context(), userID, models.GenerationInput{Prompt: "  hi  "}, "")

				require.ErrorIs(t, err, apperrors.ErrPromptInvalid)
				require.Zero(t, prov.calls, "invalid input must never reach the provider")
			})
		})

		t.Run("unknown quality", func(t *testing.T) {
			inTx(t, &fakeProvider{}, func(s *Service, _ repository.Storage, userID uuid.UUID) {
				_, err := s.Request(t.Context(), userID, validInput, "lossless")

				require.ErrorIs(t, err, apperrors.ErrQualityInvalid)
			})
		})

		t.Run("insufficient credits", func(t *testing.T) {
			prov := &fakeProvider{}
			inTx(t, prov, func(s *Service, storage repository.Storage, userID uuid.UUID) {
				// Burn the balance down to 40: two ultra requests cannot both pass
				task, err := s.Request(t.Context(), userID, validInput, QualityUltra)
				require.NoError(t, err)
				_ = task

				prov.submit = func(ctx context.Context, job provider.Job) (string, error) { return "ext-2", nil }
				_, err = s.Request(t.Context(), userID, validInput, QualityUltra)

				require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

				tasks, err := storage.Task().List(t.Context(), userID)
				require.NoError(t, err)
				require.Len(t, tasks, 1, "failed debit must not leave a task row behind")
			})
		})

		t.Run("provider failure refunds the debit", func(t *testing.T) {
			prov := &fakeProvider{
				submit: func(ctx context.Context, job provider.Job) (string, error) {
					return "", &provider.Error{Code: provider.CodeUnavailable, Message: "down"}
				},
			}
			inTx(t, prov, func(s *Service, storage repository.Storage, userID uuid.UUID) {
				_, err := s.Request(t.Context(), userID, validInput, QualityStandard)

				require.ErrorIs(t, err, apperrors.ErrSubmissionFailed)

				balance, err := storage.Balance().GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(100), balance.Current, "refund must restore the balance")

				tasks, err := storage.Task().List(t.Context(), userID)
				require.NoError(t, err)
				require.Len(t, tasks, 1)
				require.Equal(t, models.TaskStatusFailed, tasks[0].Status)
				require.Nil(t, tasks[0].ExternalID)

				entries, err := storage.Balance().ListEntries(t.Context(), userID, nil)
				require.NoError(t, err)
				require.Len(t, entries, 3, "purchase, debit and refund should all be on the ledger")
			})
		})

		t.Run("duplicate external id refunds the debit", func(t *testing.T) {
			prov := &fakeProvider{} // always returns ext-1
			inTx(t, prov, func(s *Service, storage repository.Storage, userID uuid.UUID) {
				_, err := s.Request(t.Context(), userID, validInput, QualityStandard)
				require.NoError(t, err)

				_, err = s.Request(t.Context(), userID, validInput, QualityStandard)

				require.ErrorIs(t, err, apperrors.ErrSubmissionFailed)

				balance, err := storage.Balance().GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(80), balance.Current, "only the first request may keep its debit")
			})
		})

		t.Run("duration is clamped", func(t *testing.T) {
			var submitted provider.Job
			prov := &fakeProvider{
				submit: func(ctx context.Context, job provider.Job) (string, error) {
					submitted = job
					return "ext-1", nil
				},
			}
			inTx(t, prov, func(s *Service, _ repository.Storage, userID uuid.UUID) {
				_, err := s.Request(t.Context(), userID, models.GenerationInput{
					Prompt:          "lo-fi beats to study to",
					DurationSeconds: 9000,
				}, "")

				require.NoError(t, err)
				require.Equal(t, maxDurationSeconds, submitted.DurationSeconds)
			})
		})
	})

	t.Run("GetTask", func(t *testing.T) {
		inTx(t, &fakeProvider{}, func(s *Service, storage repository.Storage, userID uuid.UUID) {
			task, err := s.Request(t.Context(), userID, validInput, "")
			require.NoError(t, err)

			t.Run("own task", func(t *testing.T) {
				got, err := s.GetTask(t.Context(), userID, task.ID)

				require.NoError(t, err)
				require.Equal(t, task.ID, got.ID)
			})

			t.Run("foreign task", func(t *testing.T) {
				other, err := storage.User().CreateUser(t.Context(), "other-user", "hash")
				require.NoError(t, err)

				_, err = s.GetTask(t.Context(), other.ID, task.ID)

				require.ErrorIs(t, err, apperrors.ErrNotTaskOwner)
			})

			t.Run("unknown task", func(t *testing.T) {
				_, err := s.GetTask(t.Context(), userID, uuid.New())

				require.ErrorIs(t, err, apperrors.ErrTaskNotFound)
			})
		})
	})
}
