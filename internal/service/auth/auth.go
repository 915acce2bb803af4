package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/apperrors"
	"github.com/tunewave/tunewave/internal/models"
)

const refreshCookieName = "refreshtoken"

// userService is the slice of the user service the auth flow depends on
type userService interface {
	// Signup user, their zero balance and the welcome credit grant
	Signup(ctx context.Context, username string, password string) (models.User, error)

	// Check password and return the user
	// Has to return apperrors.ErrUserNotFound on any credentials mismatch
	Login(ctx context.Context, username string, password string) (models.User, error)

	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type Config struct {
	// Use secure cookies (https only); disable for local development
	SecureCookies bool
}

// Auth service: registration, login and token rotation
type Service struct {
	token *TokenManager
	users userService

	secureCookies bool
}

func NewService(cfg Config, token *TokenManager, users userService) (*Service, error) {
	if token == nil || users == nil {
		return nil, errors.New("token manager and user service must not be nil")
	}

	return &Service{
		token:         token,
		users:         users,
		secureCookies: cfg.SecureCookies,
	}, nil
}

func (s *Service) Register(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.Signup(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

func (s *Service) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.Login(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

func (s *Service) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.token.UseRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// Auth resolves the request to an authenticated user via the access token
func (s *Service) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	header := r.Header.Get("Authorization")
	access, found := strings.CutPrefix(header, "Bearer ")
	if !found || access == "" {
		return user, apperrors.ErrUserNotFound
	}

	userID, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return user, fmt.Errorf("invalid access token. Err: %w", err)
	}

	return s.users.GetUserByID(ctx, userID)
}

// SetAuth writes the access token to the Authorization header and the refresh
// token to an http-only cookie
func (s *Service) SetAuth(ctx context.Context, w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set("Authorization", "Bearer "+pair.Access.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		MaxAge:   int(s.token.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// ReadRefreshToken extracts the refresh token from the request cookie
func (s *Service) ReadRefreshToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return "", fmt.Errorf("refresh cookie not found. Err: %w", err)
	}

	return cookie.Value, nil
}
