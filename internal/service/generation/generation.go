package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/provider"
	"github.com/tunewave/tunewave/internal/repository"
	"github.com/tunewave/tunewave/internal/service/credit"
)

const (
	minPromptLength = 10

	minDurationSeconds     = 10
	maxDurationSeconds     = 300
	defaultDurationSeconds = 30
)

// Service orchestrates the paid generation flow: debit credits and record the
// task intent in one transaction, submit the job to the provider, then attach
// the provider's task id. If the submission fails the debit is compensated
// with a refund, so a request that produced no job costs nothing.
type Service struct {
	storage  repository.Storage
	credits  *credit.Service
	provider provider.Client
	logger   logger.Logger
}

func NewService(storage repository.Storage, credits *credit.Service, providerClient provider.Client, log logger.Logger) (*Service, error) {
	if storage == nil || credits == nil || providerClient == nil {
		return nil, errors.New("storage, credit service and provider client must not be nil")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{
		storage:  storage,
		credits:  credits,
		provider: providerClient,
		logger:   log,
	}, nil
}

func normalizeInput(input models.GenerationInput) (models.GenerationInput, error) {
	input.Prompt = strings.TrimSpace(input.Prompt)
	if len(input.Prompt) < minPromptLength {
		return input, apperrors.ErrPromptInvalid
	}

	switch {
	case input.DurationSeconds == 0:
		input.DurationSeconds = defaultDurationSeconds
	case input.DurationSeconds < minDurationSeconds:
		input.DurationSeconds = minDurationSeconds
	case input.DurationSeconds > maxDurationSeconds:
		input.DurationSeconds = maxDurationSeconds
	}

	return input, nil
}

// Request charges the user and submits a generation job.
// Returns apperrors.ErrBalanceInsufficient when the user cannot afford the
// tier and apperrors.ErrSubmissionFailed when the provider turned the job
// down; in both cases the balance is left as it was.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, input models.GenerationInput, quality string) (models.Task, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return models.Task{}, err
	}

	cost, err := Cost(quality)
	if err != nil {
		return models.Task{}, err
	}

	taskID := uuid.New()

	// Debit and task intent commit together. The task row is the write-ahead
	// record of what the debit paid for; its external id stays empty until
	// the provider accepts the job.
	var task models.Task
	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		_, err := s.credits.DebitTx(ctx, tx, credit.DebitParams{
			UserID:      userID,
			Amount:      cost,
			Type:        models.EntryTypeGeneration,
			ReferenceID: &taskID,
			Description: fmt.Sprintf("music generation (%s)", qualityOrDefault(quality)),
		})
		if err != nil {
			return err
		}

		task, err = tx.Task().Create(ctx, models.Task{
			ID:     taskID,
			UserID: userID,
			Status: models.TaskStatusPending,
			Input:  input,
			Cost:   cost,
		})
		return err
	})
	if err != nil {
		return models.Task{}, err
	}

	externalID, err := s.provider.Submit(ctx, provider.Job{
		Prompt:          input.Prompt,
		Style:           input.Style,
		DurationSeconds: input.DurationSeconds,
		Instrumental:    input.Instrumental,
	})
	if err != nil {
		return models.Task{}, s.compensate(ctx, task, fmt.Sprintf("submission failed: %v", err))
	}

	task, err = s.storage.Task().AttachExternal(ctx, taskID, externalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTaskAlreadyExists) {
			// Provider handed out an external id we already track. Treat the
			// submission as void and give the money back.
			return models.Task{}, s.compensate(ctx, task, "provider returned duplicate task id")
		}
		return models.Task{}, err
	}

	return task, nil
}

// compensate fails the task and refunds its cost in one transaction, then
// reports the original submission failure to the caller
func (s *Service) compensate(ctx context.Context, task models.Task, reason string) error {
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		if _, err := tx.Task().FailByID(ctx, task.ID, reason); err != nil {
			return err
		}

		_, err := s.credits.CreditTx(ctx, tx, credit.CreditParams{
			UserID:      task.UserID,
			Amount:      task.Cost,
			Type:        models.EntryTypeRefund,
			ReferenceID: &task.ID,
			Description: "refund for failed generation",
		})
		return err
	})
	if err != nil {
		// The user has been charged for a job that does not exist. Surface the
		// storage error so the operation is retried, and log loudly.
		s.logger.Error("compensation failed, user charged without a job",
			"task_id", task.ID, "user_id", task.UserID, "cost", task.Cost, "error", err)
		return fmt.Errorf("error compensating failed submission. Err: %w", err)
	}

	return fmt.Errorf("%w: %s", apperrors.ErrSubmissionFailed, reason)
}

// GetTask returns the task if it belongs to the user
func (s *Service) GetTask(ctx context.Context, userID uuid.UUID, taskID uuid.UUID) (models.Task, error) {
	task, err := s.storage.Task().GetByID(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}

	if task.UserID != userID {
		return models.Task{}, apperrors.ErrNotTaskOwner
	}

	return task, nil
}

// ListTasks returns the user's tasks, newest first
func (s *Service) ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.storage.Task().List(ctx, userID)
}

func qualityOrDefault(quality string) string {
	if quality == "" {
		return QualityStandard
	}
	return quality
}
