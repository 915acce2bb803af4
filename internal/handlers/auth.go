package handlers

import (
	"errors"
	"net/http"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/handlers/render"
	"github.com/tunewave/tunewave/internal/logger"
)

func handleRegister(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := auth.Register(r.Context(), data.Login, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, render.CodeConflict, "User already exists", http.StatusConflict)
			default:
				l.Error("Failed to register user", "error", err)
				render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		auth.SetAuth(r.Context(), w, pair)
		render.JSON(w, response{Message: "User registered successfully"})
	})
}

func handleLogin(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := auth.Login(r.Context(), data.Login, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, render.CodeUnauthorized, "Invalid login or password", http.StatusUnauthorized)
			default:
				l.Error("Failed to login user", "error", err)
				render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		auth.SetAuth(r.Context(), w, pair)
		render.JSON(w, response{Message: "User logged in successfully"})
	})
}

func handleTokenRefresh(auth authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := auth.ReadRefreshToken(r)
		if err != nil {
			render.ServiceError(w, render.CodeUnauthorized, "Refresh token not found", http.StatusUnauthorized)
			return
		}

		pair, err := auth.Refresh(r.Context(), refresh)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrRefreshTokenExpired):
				render.ServiceError(w, render.CodeUnauthorized, "Refresh token expired", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound), errors.Is(err, apperrors.ErrRefreshTokenIsUsed):
				render.ServiceError(w, render.CodeUnauthorized, "Refresh token not found", http.StatusUnauthorized)
			default:
				l.Error("Failed to refresh tokens", "error", err)
				render.ServiceError(w, render.CodeInternalError, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		auth.SetAuth(r.Context(), w, pair)
		render.JSON(w, response{Message: "Tokens refreshed successfully"})
	})
}

func handleUserMe() http.Handler {
	type response struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		render.JSON(w, response{ID: user.ID.String(), Username: user.Username})
	})
}
