package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nhsf/dharmic-games/handlers"
	"github.com/nhsf/dharmic-games/metrics"
	"github.com/nhsf/dharmic-games/realtime"
	"github.com/nhsf/dharmic-games/repositories"
	api "github.com/nhsf/dharmic-games/routes"
	"github.com/nhsf/dharmic-games/services"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/nhsf/dharmic-games/storage"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context(), newLogger())
	},
}

func runServer(parent context.Context, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(parent)
	defer stop()

	cfg, dbConn, err := bootstrap(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	catalogue, err := sports.Load(cfg.SportsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load sports catalogue: %w", err)
	}
	logger.Info("sports catalogue loaded", slog.Int("sports", len(catalogue.List())))

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder()
	}

	// Загрузка логотипов в Cloudflare R2 необязательна
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, logo uploads are disabled")
	}

	var notifier services.Notifier = services.NopNotifier{}
	if cfg.SMTPEnabled() {
		emailService, err := services.NewEmailService(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		notifier = emailService
		logger.Info("email notifications enabled", slog.String("smtp_host", cfg.SMTPHost))
	}

	hub := realtime.NewHub(logger.With(slog.String("component", "hub")), recorder)
	go hub.Run(ctx)
	logger.Info("WebSocket hub started")

	// Репозитории
	tx := repositories.NewTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	universityRepo := repositories.NewPostgresUniversityRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	adminRequestRepo := repositories.NewPostgresAdminRequestRepository(dbConn)
	universityRequestRepo := repositories.NewPostgresUniversityRequestRepository(dbConn)

	// Сервисы
	authService := services.NewAuthService(userRepo, logger)
	if err := ensureSuperAdmin(ctx, cfg, authService, logger); err != nil {
		return err
	}
	leaderboardService := services.NewLeaderboardService(universityRepo, hub, logger)
	universityService := services.NewUniversityService(universityRepo, playerRepo, tx, catalogue, uploader, leaderboardService, logger)
	playerService := services.NewPlayerService(playerRepo, universityRepo, tx, catalogue, hub, recorder, logger)
	matchService := services.NewMatchService(matchRepo, tournamentRepo, tx, catalogue, hub, recorder, logger)
	bracketService := services.NewBracketService(tournamentRepo, matchRepo, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, matchRepo, bracketService, tx, catalogue, hub, logger)
	requestService := services.NewRequestService(adminRequestRepo, universityRequestRepo, userRepo, universityRepo, tx, catalogue, notifier, leaderboardService, logger)
	dashboardService := services.NewDashboardService(universityRepo, playerRepo, matchRepo, tournamentRepo, adminRequestRepo, universityRequestRepo)
	logger.Info("services initialized")

	if cfg.MatchAutostart {
		go runMatchScheduler(ctx, matchService, cfg.SchedulerInterval, logger)
	}

	handlers.RegisterAPIDoc()

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.JWTTTL),
		Sport:       handlers.NewSportHandler(catalogue),
		University:  handlers.NewUniversityHandler(universityService),
		Player:      handlers.NewPlayerHandler(playerService),
		Match:       handlers.NewMatchHandler(matchService),
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Request:     handlers.NewRequestHandler(requestService),
		Dashboard:   handlers.NewDashboardHandler(dashboardService),
		WebSocket:   handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
		Health:      handlers.NewHealthHandler(dbConn),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
		Recorder:       recorder,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
	return nil
}

// runMatchScheduler переводит в live матчи, время начала которых уже наступило.
func runMatchScheduler(ctx context.Context, matchService services.MatchService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("match autostart scheduler started", slog.Duration("interval", interval))

	tick := func() {
		started, err := matchService.StartDueMatches(ctx)
		if err != nil {
			logger.Error("scheduler: failed to start due matches", slog.Any("error", err))
			return
		}
		if started > 0 {
			logger.Info("scheduler: matches started", slog.Int("count", started))
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			logger.Info("match autostart scheduler stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}
