package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tunewave/tunewave/internal/db"
	"github.com/tunewave/tunewave/internal/handlers"
	"github.com/tunewave/tunewave/internal/logger"
	"github.com/tunewave/tunewave/internal/provider"
	"github.com/tunewave/tunewave/internal/repository/postgres"
	"github.com/tunewave/tunewave/internal/service/auth"
	"github.com/tunewave/tunewave/internal/service/billing"
	"github.com/tunewave/tunewave/internal/service/credit"
	"github.com/tunewave/tunewave/internal/service/generation"
	"github.com/tunewave/tunewave/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	creditService := credit.NewService(storage)
	userService := user.NewService(storage, creditService, auth.DefaultHasher)

	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{SecretKey: c.SecretKey}, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{SecureCookies: c.Environment == logger.EnvProduction}, tokenManager, userService)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	providerClient := provider.NewHTTPClient(provider.ClientConfig{
		Addr:        c.ProviderAddr,
		APIKey:      c.ProviderAPIKey,
		CallbackURL: c.CallbackURL,
	})
	generationService, err := generation.NewService(storage, creditService, providerClient, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating generation service. Err: %w", err)
	}

	billingService := billing.NewService(creditService)

	mux := handlers.NewRouter(
		handlers.RouterConfig{CallbackToken: c.CallbackToken},
		authService,
		creditService,
		generationService,
		billingService,
		storage.Notification(),
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close connections gracefully
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
