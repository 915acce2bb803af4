package handlers

import (
	"net/http"
	"time"

	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/logger"
)

func handleUserBalance(credits creditService, l logger.Logger) http.Handler {
	type response struct {
		Current   int64      `json:"current"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		balance, err := credits.GetBalance(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to get balance", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Current: balance.Current, ExpiresAt: balance.ExpiresAt})
	})
}

func handleListLedger(credits creditService, l logger.Logger) http.Handler {
	type entry struct {
		ID          string     `json:"id"`
		Amount      int64      `json:"amount"`
		Type        string     `json:"type"`
		ReferenceID *string    `json:"reference_id,omitempty"`
		Description string     `json:"description"`
		CreatedAt   time.Time  `json:"created_at"`
		ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		var types []string
		if t := r.URL.Query().Get("type"); t != "" {
			types = []string{t}
		}

		entries, err := credits.ListEntries(r.Context(), user.ID, types)
		if err != nil {
			l.Error("Failed to list ledger entries", "error", err)
			render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]entry, 0, len(entries))
		for _, e := range entries {
			item := entry{
				ID:          e.ID.String(),
				Amount:      e.Amount,
				Type:        e.Type,
				Description: e.Description,
				CreatedAt:   e.CreatedAt,
				ExpiresAt:   e.ExpiresAt,
			}
			if e.ReferenceID != nil {
				ref := e.ReferenceID.String()
				item.ReferenceID = &ref
			}
			out = append(out, item)
		}

		render.JSON(w, out)
	})
}
