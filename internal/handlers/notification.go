package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/logger"
)

func handleListNotifications(notifications notificationService, l logger.Logger) http.Handler {
	type notification struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Message   string    `json:"message"`
		Type      string    `json:"type"`
		Read      bool      `json:"read"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		unreadOnly := r.URL.Query().Get("unread") == "true"

		list, err := notifications.List(r.Context(), user.ID, unreadOnly)
		if err != nil {
			l.Error("Failed to list notifications", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]notification, 0, len(list))
		for _, n := range list {
			out = append(out, notification{
				ID:        n.ID.String(),
				Title:     n.Title,
				Message:   n.Message,
				Type:      n.Type,
				Read:      n.Read,
				CreatedAt: n.CreatedAt,
			})
		}
		render.JSON(w, out)
	})
}

func handleMarkNotificationRead(notifications notificationService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, render.CodeInvalidInput, "Invalid notification id", http.StatusBadRequest)
			return
		}

		err = notifications.MarkRead(r.Context(), user.ID, id)

		switch {
		case err == nil:
			render.JSON(w, response{Message: "ok"})
		case errors.Is(err, apperrors.ErrNotificationNotFound):
			render.ServiceError(w, render.CodeNotFound, "Notification not found", http.StatusNotFound)
		default:
			l.Error("Failed to mark notification read", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleMarkAllNotificationsRead(notifications notificationService, l logger.Logger) http.Handler {
	type response struct {
		Updated int64 `json:"updated"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		updated, err := notifications.MarkAllRead(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to mark notifications read", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Updated: updated})
	})
}
