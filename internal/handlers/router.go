package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tunewave/tunewave/internal/handlers/middleware"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/models"
	"github.com/tunewave/tunewave/internal/service/generation"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type RouterConfig struct {
	// Shared secret the provider must echo in X-Callback-Token.
	// Empty disables the check (local development against a fake provider).
	CallbackToken string
}

func NewRouter(
	cfg RouterConfig,
	auth authService,
	credits creditService,
	generations generationService,
	billing billingService,
	notifications notificationService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(auth)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(auth, logger))
	apiuser.Handle("POST /login", handleLogin(auth, logger))
	apiuser.Handle("POST /refresh", handleTokenRefresh(auth, logger))

	apiuser.Handle("GET /me", withAuth(handleUserMe()))
	apiuser.Handle("GET /balance", withAuth(handleUserBalance(credits, logger)))
	apiuser.Handle("GET /ledger", withAuth(handleListLedger(credits, logger)))
	apiuser.Handle("POST /purchase", withAuth(handlePurchasePlan(billing, logger)))

	apiuser.Handle("GET /notifications", withAuth(handleListNotifications(notifications, logger)))
	apiuser.Handle("POST /notifications/{id}/read", withAuth(handleMarkNotificationRead(notifications, logger)))
	apiuser.Handle("POST /notifications/read-all", withAuth(handleMarkAllNotificationsRead(notifications, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	root.Handle("GET /api/plans", handleListPlans(billing))

	root.Handle("POST /api/generations", withAuth(handleCreateGeneration(generations, logger)))
	root.Handle("GET /api/generations", withAuth(handleListGenerations(generations, logger)))
	root.Handle("GET /api/generations/{id}", withAuth(handleGetGeneration(generations, logger)))

	root.Handle("POST /api/provider/callback", handleProviderCallback(generations, cfg.CallbackToken, logger))

	return chain(root,
		middleware.LoggerMiddleware(logger),
	)
}

type authService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound on any credentials mismatch
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh the token pair using a refresh token
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Resolve the request to an authenticated user
	Auth(ctx context.Context, r *http.Request) (models.User, error)

	// Write the pair to the response (header + cookie)
	SetAuth(ctx context.Context, w http.ResponseWriter, pair models.TokenPair)

	// Read the refresh token from the request cookie
	ReadRefreshToken(r *http.Request) (string, error)
}

type creditService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)
	ListEntries(ctx context.Context, userID uuid.UUID, types []string) ([]models.LedgerEntry, error)
}

type generationService interface {
	Request(ctx context.Context, userID uuid.UUID, input models.GenerationInput, quality string) (models.Task, error)
	GetTask(ctx context.Context, userID uuid.UUID, taskID uuid.UUID) (models.Task, error)
	ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	HandleCallback(ctx context.Context, cb generation.Callback) error
}

type billingService interface {
	Plans(ctx context.Context) []models.Plan
	Purchase(ctx context.Context, userID uuid.UUID, planID string) (models.Balance, error)
}

type notificationService interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}
