// Package main implements the cardlog CLI: an interactive flashcard console
// plus maintenance commands that operate directly on the database.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardlog/cardlog/internal/cli"
	"github.com/cardlog/cardlog/internal/config"
	"github.com/cardlog/cardlog/internal/platform/logger"
	"github.com/cardlog/cardlog/internal/platform/postgres"
	"github.com/cardlog/cardlog/internal/service"
	"github.com/cardlog/cardlog/internal/service/auth"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cardlog",
	Short:   "Flashcard practice and history tooling",
	Long:    `cardlog manages flashcards with a full audit trail: create, practice, and revert cards to any point in their history.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(migrateCmd)
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start the interactive flashcard console",
	Long: `Start the interactive flashcard console.

Log in with an existing account, then manage and practice flashcards
through a numbered menu. All changes are recorded in the audit trail.`,
	RunE: runInteractive,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

// bootstrap loads configuration, sets up logging, and opens the database.
func bootstrap() (*slog.Logger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := postgres.Open(cfg.Database.URL, appLogger)
	if err != nil {
		return nil, nil, err
	}

	return appLogger, db, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	appLogger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database connection", "error", err)
		}
	}()

	if err := postgres.Migrate(db, appLogger); err != nil {
		return err
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
		return fmt.Errorf("failed to create flashcard service: %w", err)
	}

	app := cli.New(
		cmd.InOrStdin(),
		cmd.OutOrStdout(),
		userStore,
		auth.NewBcryptVerifier(),
		flashcardService,
		appLogger,
	)
	return app.Run(cmd.Context())
}

func runMigrate(cmd *cobra.Command, args []string) error {
	appLogger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database connection", "error", err)
		}
	}()

	return postgres.Migrate(db, appLogger)
}
