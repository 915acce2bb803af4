package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
)

type TaskRepo struct {
	DB DBTX
}

const createTask = `-- name: CreateTask
INSERT INTO tasks (id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
`

func (r *TaskRepo) Create(ctx context.Context, task models.Task) (models.Task, error) {
	now := time.Now()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	rows, _ := r.DB.Query(ctx, createTask,
		task.ID, task.UserID, task.ExternalID, task.Status,
		task.Input.Prompt, task.Input.Style, task.Input.DurationSeconds, task.Input.Instrumental,
		task.Cost, task.AudioURL, task.Failure,
		task.CreatedAt, task.UpdatedAt, task.CompletedAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToTask)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrTaskAlreadyExists
		}
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const attachExternal = `-- name: AttachExternalTaskID
UPDATE tasks
SET external_id = $2, updated_at = now()
WHERE id = $1 AND external_id IS NULL
RETURNING id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
`

func (r *TaskRepo) AttachExternal(ctx context.Context, taskID uuid.UUID, externalID string) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, attachExternal, taskID, externalID)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, apperrors.ErrTaskNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return task, apperrors.ErrTaskAlreadyExists
		}
		return task, fmt.Errorf("db error: %w", err)
	}
}

const getTaskByID = `-- name: GetTaskByID
SELECT id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
FROM tasks
WHERE id = $1
`

func (r *TaskRepo) GetByID(ctx context.Context, taskID uuid.UUID) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, getTaskByID, taskID)
	return collectTask(rows)
}

const getTaskByExternalID = `-- name: GetTaskByExternalID
SELECT id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
FROM tasks
WHERE external_id = $1
`

func (r *TaskRepo) GetByExternalID(ctx context.Context, externalID string) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, getTaskByExternalID, externalID)
	return collectTask(rows)
}

const listTasks = `-- name: ListTasks
SELECT id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
FROM tasks
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *TaskRepo) List(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	rows, _ := r.DB.Query(ctx, listTasks, userID)
	tasks, err := pgx.CollectRows(rows, rowToTask)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tasks, nil
}

// Advance status with the monotonic guard inside the UPDATE itself:
// 'processing' applies only over 'pending', terminal statuses apply over both
// non-terminal ones. Anything else matches no row and is reported as rejected.
const advanceTask = `-- name: AdvanceTask
UPDATE tasks
SET status = $2,
    audio_url = COALESCE($3, audio_url),
    failure = COALESCE($4, failure),
    updated_at = now(),
    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE completed_at END
WHERE external_id = $1
  AND (
    ($2 = 'processing' AND status = 'pending')
    OR ($2 IN ('completed', 'failed') AND status IN ('pending', 'processing'))
  )
RETURNING id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
`

func (r *TaskRepo) Advance(ctx context.Context, externalID string, status string, audioURL *string, failure *string) (models.Task, error) {
	if !models.IsKnownStatus(status) || status == models.TaskStatusPending {
		return models.Task{}, apperrors.ErrTaskStatusInvalid
	}

	rows, _ := r.DB.Query(ctx, advanceTask, externalID, status, audioURL, failure)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Nothing matched: the task is unknown, or it is already at or past
		// the requested status. Read it back to tell the two apart.
		task, getErr := r.GetByExternalID(ctx, externalID)
		if getErr != nil {
			return task, getErr
		}
		return task, apperrors.ErrTaskAlreadyFinal
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

const failTaskByID = `-- name: FailTaskByID
UPDATE tasks
SET status = 'failed', failure = $2, updated_at = now(), completed_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING id, user_id, external_id, status, prompt, style, duration_seconds, instrumental, cost, audio_url, failure, created_at, updated_at, completed_at
`

func (r *TaskRepo) FailByID(ctx context.Context, taskID uuid.UUID, failure string) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, failTaskByID, taskID, failure)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, apperrors.ErrTaskNotFound
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

func collectTask(rows pgx.Rows) (models.Task, error) {
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, apperrors.ErrTaskNotFound
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

func rowToTask(row pgx.CollectableRow) (models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.ExternalID, &t.Status,
		&t.Input.Prompt, &t.Input.Style, &t.Input.DurationSeconds, &t.Input.Instrumental,
		&t.Cost, &t.AudioURL, &t.Failure,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	return t, err
}
