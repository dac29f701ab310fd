package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baseplate/querykit/config"
	"github.com/baseplate/querykit/internal/api"
	"github.com/baseplate/querykit/internal/api/handlers"
	"github.com/baseplate/querykit/internal/core/auth"
	"github.com/baseplate/querykit/internal/core/entity"
	"github.com/baseplate/querykit/internal/core/validation"
	"github.com/baseplate/querykit/internal/logger"
	"github.com/baseplate/querykit/internal/storage/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.Get()

	// Validate critical configuration
	if cfg.JWT.Secret == "" {
		log.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.Auth.AdminKeyHash == "" {
		log.Warn("ADMIN_KEY_HASH is not set, api keys cannot be minted over http")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	log.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	if cfg.Database.Migrate {
		if err := db.Migrate(); err != nil {
			log.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		log.Info("database migrations applied")
	}

	// Initialize repositories
	authRepo := auth.NewPostgresRepository(db)
	entityRepo := entity.NewPostgresRepository(db)

	// Initialize services
	authService := auth.NewService(authRepo, &cfg.JWT, &cfg.Auth)
	entityService := entity.NewService(entityRepo, validation.NewValidator(), cfg.Query, log)

	// Setup router
	router := api.NewRouter(
		authService,
		handlers.NewAuthHandler(authService),
		handlers.NewEntityHandler(entityService),
		handlers.NewHealthHandler(db.DB),
		cfg.Server.RateLimit,
		cfg.Server.TrustedProxies,
		log,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Setup(cfg.Server.Mode),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-errCh:
		log.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down server", "error", err)
	}
}
