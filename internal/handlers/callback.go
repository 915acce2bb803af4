package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/service/generation"
)

// handleProviderCallback receives status pushes from the generation provider.
//
// Response codes steer the provider's redelivery: anything acked with 200 is
// never sent again, a 5xx is redelivered. Unknown task ids are acked so a
// misrouted callback does not loop forever; storage failures are not, so the
// transition is retried.
func handleProviderCallback(generations generationService, callbackToken string, l logger.Logger) http.Handler {
	type request struct {
		TaskID   string  `json:"task_id" validate:"required"`
		Status   string  `json:"status" validate:"required"`
		AudioURL *string `json:"audio_url"`
		Failure  *string `json:"error_message"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callbackToken != "" {
			got := r.Header.Get("X-Callback-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(callbackToken)) != 1 {
				render.ServiceError(w, render.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = generations.HandleCallback(r.Context(), generation.Callback{
			ExternalID: data.TaskID,
			Status:     data.Status,
			AudioURL:   data.AudioURL,
			Failure:    data.Failure,
		})

		switch {
		case err == nil:
			render.JSON(w, response{Message: "ok"})
		case errors.Is(err, apperrors.ErrTaskStatusInvalid):
			render.ServiceError(w, render.CodeInvalidInput, "Unknown status", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrTaskNotFound):
			// Ack it: a retry can never succeed for a task we don't track
			l.Warn("Callback for unknown task acked", "external_id", data.TaskID, "status", data.Status)
			render.JSON(w, response{Message: "ok"})
		default:
			l.Error("Failed to handle provider callback", "external_id", data.TaskID, "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
		}
	})
}
