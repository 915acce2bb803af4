package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/models"
)

type taskResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Prompt      string     `json:"prompt"`
	Style       string     `json:"style,omitempty"`
	Duration    int        `json:"duration_seconds"`
	Cost        int64      `json:"cost"`
	AudioURL    *string    `json:"audio_url,omitempty"`
	Failure     *string    `json:"failure,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func taskToResponse(t models.Task) taskResponse {
	return taskResponse{
		ID:          t.ID.String(),
		Status:      t.Status,
		Prompt:      t.Input.Prompt,
		Style:       t.Input.Style,
		Duration:    t.Input.DurationSeconds,
		Cost:        t.Cost,
		AudioURL:    t.AudioURL,
		Failure:     t.Failure,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func handleCreateGeneration(generations generationService, l logger.Logger) http.Handler {
	type request struct {
		Prompt       string `json:"prompt" validate:"required,min=10"`
		Style        string `json:"style"`
		Duration     int    `json:"duration_seconds"`
		Instrumental bool   `json:"instrumental"`
		Quality      string `json:"quality"`
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

		task, err := generations.Request(r.Context(), user.ID, models.GenerationInput{
			Prompt:          data.Prompt,
			Style:           data.Style,
			DurationSeconds: data.Duration,
			Instrumental:    data.Instrumental,
		}, data.Quality)

		switch {
		case err == nil:
			// Accepted but not done: the provider finishes asynchronously
			render.JSONStatus(w, taskToResponse(task), http.StatusAccepted)
		case errors.Is(err, apperrors.ErrPromptInvalid):
			render.ServiceError(w, render.CodeInvalidInput, "Prompt is empty or too short", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrQualityInvalid):
			render.ServiceError(w, render.CodeInvalidInput, "Unknown quality tier", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			render.ServiceError(w, render.CodeInsufficientCredits, "Not enough credits", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrSubmissionFailed):
			render.ServiceError(w, render.CodeSubmissionFailed, "Generation could not be submitted, credits were not charged", http.StatusBadGateway)
		default:
			l.Error("Failed to create generation", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetGeneration(generations generationService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		taskID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, render.CodeInvalidInput, "Invalid task id", http.StatusBadRequest)
			return
		}

		task, err := generations.GetTask(r.Context(), user.ID, taskID)

		switch {
		case err == nil:
			render.JSON(w, taskToResponse(task))
		case errors.Is(err, apperrors.ErrTaskNotFound), errors.Is(err, apperrors.ErrNotTaskOwner):
			// Don't leak whether the task exists for another user
			render.ServiceError(w, render.CodeNotFound, "Task not found", http.StatusNotFound)
		default:
			l.Error("Failed to get generation", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListGenerations(generations generationService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		tasks, err := generations.ListTasks(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list generations", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]taskResponse, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, taskToResponse(t))
		}
		render.JSON(w, out)
	})
}
