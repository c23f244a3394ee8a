package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nhsf/dharmic-games/config"
	"github.com/nhsf/dharmic-games/db"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/services"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "dharmic-games",
	Short:         "NHSF Dharmic Games tournament service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// bootstrap загружает конфигурацию, подключается к базе и применяет миграции.
func bootstrap(ctx context.Context, logger *slog.Logger) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established")

	applied, err := db.Migrate(ctx, dbConn)
	if err != nil {
		dbConn.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", slog.Any("migrations", applied))
	}

	return cfg, dbConn, nil
}

// ensureSuperAdmin создаёт суперадмина из SUPERADMIN_EMAIL/SUPERADMIN_PASSWORD, если его ещё нет.
func ensureSuperAdmin(ctx context.Context, cfg *config.Config, authService services.AuthService, logger *slog.Logger) error {
	if cfg.SuperAdminEmail == "" || cfg.SuperAdminPassword == "" {
		return nil
	}
	user, created, err := authService.EnsureSuperAdmin(ctx, cfg.SuperAdminName, cfg.SuperAdminEmail, cfg.SuperAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap superadmin: %w", err)
	}
	if created {
		logger.Info("superadmin created", slog.Int("user_id", user.ID), slog.String("email", user.Email))
	}
	return nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and bootstrap the superadmin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := cmd.Context()

		cfg, dbConn, err := bootstrap(ctx, logger)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		authService := services.NewAuthService(repositories.NewPostgresUserRepository(dbConn), logger)
		return ensureSuperAdmin(ctx, cfg, authService, logger)
	},
}
