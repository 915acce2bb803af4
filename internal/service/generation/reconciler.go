package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/repository"
	"github.com/tunewave/tunewave/internal/service/credit"
)

// Callback is a status update pushed by the provider
type Callback struct {
	ExternalID string
	Status     string
	AudioURL   *string
	Failure    *string
}

// HandleCallback applies a provider status update to the matching task.
//
// The status transition and the failure refund commit in the same
// transaction, and the transition itself is monotonic, so a redelivered
// callback can never refund twice: the duplicate sees the task already final
// and the whole call becomes a no-op returning nil.
//
// Returns apperrors.ErrTaskNotFound when no task carries the external id;
// the handler decides whether to ack such callbacks.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) error {
	if !models.IsKnownStatus(cb.Status) || cb.Status == models.TaskStatusPending {
		return fmt.Errorf("%w: %q", apperrors.ErrTaskStatusInvalid, cb.Status)
	}

	var task models.Task
	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		task, err = tx.Task().Advance(ctx, cb.ExternalID, cb.Status, cb.AudioURL, cb.Failure)
		if err != nil {
			return err
		}

		if cb.Status != models.TaskStatusFailed {
			return nil
		}

		_, err = s.credits.CreditTx(ctx, tx, credit.CreditParams{
			UserID:      task.UserID,
			Amount:      task.Cost,
			Type:        models.EntryTypeRefund,
			ReferenceID: &task.ID,
			Description: "refund for failed generation",
		})
		return err
	})

	switch {
	case errors.Is(err, apperrors.ErrTaskAlreadyFinal):
		s.logger.Info("duplicate provider callback ignored",
			"external_id", cb.ExternalID, "status", cb.Status)
		return nil
	case err != nil:
		return err
	}

	s.notify(ctx, task, cb.Status)
	return nil
}

// notify records a user-facing notification for a finished task.
// Best effort: the status transition already committed, so a notification
// failure is logged and swallowed rather than failing the callback.
func (s *Service) notify(ctx context.Context, task models.Task, status string) {
	var n models.Notification
	switch status {
	case models.TaskStatusCompleted:
		n = models.Notification{
			Title:   "Song Ready!",
			Message: "Your track has been generated and is ready to play.",
			Type:    models.NotificationSuccess,
		}
	case models.TaskStatusFailed:
		n = models.Notification{
			Title:   "Generation Failed",
			Message: fmt.Sprintf("Your generation could not be completed. %d credits were refunded.", task.Cost),
			Type:    models.NotificationError,
		}
	default:
		return
	}

	n.ID = uuid.New()
	n.UserID = task.UserID

	if _, err := s.storage.Notification().Create(ctx, n); err != nil {
		s.logger.Error("error creating task notification",
			"task_id", task.ID, "user_id", task.UserID, "error", err)
	}
}
