package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cardlog/cardlog/internal/config"
	"github.com/cardlog/cardlog/internal/platform/logger"
	"github.com/cardlog/cardlog/internal/platform/postgres"
	"github.com/cardlog/cardlog/internal/service"
	"github.com/cardlog/cardlog/internal/service/auth"
	"github.com/cardlog/cardlog/internal/store"
)

// application bundles the server's wired dependencies.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	flashcardService service.FlashcardService
}

// newApplication loads configuration and wires every dependency: logging,
// database (with migrations applied), stores, and services.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))

	db, err := postgres.Open(cfg.Database.URL, appLogger)
	if err != nil {
		return nil, err
	}

	if err := postgres.Migrate(db, appLogger); err != nil {
		_ = db.Close()
		return nil, err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	flashcardStore := postgres.NewPostgresFlashcardStore(db, appLogger)
	auditStore := postgres.NewPostgresAuditLogStore(db, appLogger)
	userStore := postgres.NewPostgresUserStore(db, appLogger)

	flashcardService, err := service.NewFlashcardService(
		service.SQLTxRunner(db),
		flashcardStore,
		auditStore,
		service.DefaultAuditPolicy(),
		appLogger,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create flashcard service: %w", err)
	}

	return &application{
		config:           cfg,
		logger:           appLogger,
		db:               db,
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: auth.NewBcryptVerifier(),
		flashcardService: flashcardService,
	}, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection",
				slog.String("error", err.Error()))
		}
	}
}
