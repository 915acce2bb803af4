package handlers

import (
	"net/http"

	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/handlers/userctx"
	"github.com/tunewave/tunewave/internal/models"
)

// userFromRequest reads the user the auth middleware put in the context.
// A missing user on a protected route is a wiring bug, reported as 500.
func userFromRequest(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
	}
	return user, ok
}
