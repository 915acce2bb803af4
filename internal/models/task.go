package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// rank orders statuses so transitions may only move forward
var statusRank = map[string]int{
	TaskStatusPending:    0,
	TaskStatusProcessing: 1,
	TaskStatusCompleted:  2,
	TaskStatusFailed:     2,
}

func IsTerminalStatus(status string) bool {
	return status == TaskStatusCompleted || status == TaskStatusFailed
}

func IsKnownStatus(status string) bool {
	_, ok := statusRank[status]
	return ok
}

// GenerationInput holds the user-provided parameters of a generation request
type GenerationInput struct {
	Prompt          string
	Style           string
	DurationSeconds int
	Instrumental    bool
}

type Task struct {
	ID     uuid.UUID
	UserID uuid.UUID

	// Task id assigned by the generation provider.
	// Nil until the job is accepted; unique join key for callbacks after that.
	ExternalID *string

	Status string
	Input  GenerationInput

	// Credits debited for this task, kept to refund the exact amount on failure
	Cost int64

	AudioURL *string
	Failure  *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
