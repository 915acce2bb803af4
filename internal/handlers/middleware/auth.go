package middleware

import (
	"context"
	"net/http"

	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/handlers/userctx"
	"github.com/tunewave/tunewave/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the access token to a user and stores it in the
// request context. Requests without a valid token are rejected with 401.
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Auth(r.Context(), r)
			if err != nil {
				render.ServiceError(w, render.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
