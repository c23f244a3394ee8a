package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/nhsf/dharmic-games/handlers"
	"github.com/nhsf/dharmic-games/metrics"
	"github.com/nhsf/dharmic-games/middleware"
	"github.com/nhsf/dharmic-games/models"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Sport       *handlers.SportHandler
	University  *handlers.UniversityHandler
	Player      *handlers.PlayerHandler
	Match       *handlers.MatchHandler
	Tournament  *handlers.TournamentHandler
	Leaderboard *handlers.LeaderboardHandler
	Request     *handlers.RequestHandler
	Dashboard   *handlers.DashboardHandler
	WebSocket   *handlers.WebSocketHandler
	Health      *handlers.HealthHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         *slog.Logger
	Recorder       *metrics.Recorder
}

// SetupRoutes регистрирует все маршруты API на router.
func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger, opts.Recorder))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !allowsAny(opts.AllowedOrigins),
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	superAdminOnly := middleware.RequireRole(models.RoleSuperAdmin)

	router.Get("/health", h.Health.Check)
	router.Handle("/metrics", opts.Recorder.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	router.Get("/ws/{room}", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Post("/auth/login", h.Auth.Login)
		r.Get("/sports", h.Sport.List)
		r.Get("/leaderboard", h.Leaderboard.Get)

		r.Route("/universities", func(r chi.Router) {
			r.Get("/", h.University.List)
			r.Get("/{universityID}", h.University.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)

				r.Post("/", h.University.Create)
				r.Post("/points/bulk", h.University.BulkUpdatePoints)
				r.Put("/{universityID}", h.University.Update)
				r.Delete("/{universityID}", h.University.Delete)
				r.Patch("/{universityID}/competing", h.University.SetCompeting)
				r.Patch("/{universityID}/points", h.University.UpdatePoints)
				r.Post("/{universityID}/logo", h.University.UploadLogo)
				r.Get("/{universityID}/players", h.University.GetWithPlayers)
				r.Post("/{universityID}/players", h.Player.Register)
				r.Post("/{universityID}/players/import", h.Player.Import)
				r.Post("/{universityID}/checkin", h.Player.BulkCheckIn)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)

			r.Route("/players", func(r chi.Router) {
				r.Get("/", h.Player.List)
				r.Get("/{playerID}", h.Player.GetByID)
				r.Put("/{playerID}", h.Player.Update)
				r.Delete("/{playerID}", h.Player.Delete)
				r.Post("/{playerID}/checkin", h.Player.CheckIn)
				r.Delete("/{playerID}/checkin", h.Player.UndoCheckIn)
			})
			r.Get("/checkins/summary", h.Player.CheckInSummary)
			r.Get("/dashboard", h.Dashboard.GetStats)
		})

		r.With(authenticate, superAdminOnly).Get("/dashboard/superadmin", h.Dashboard.GetSuperAdmin)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Match.List)
			r.Get("/{matchID}", h.Match.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)

				r.Post("/", h.Match.Create)
				r.Post("/status/bulk", h.Match.BulkUpdateStatus)
				r.Put("/{matchID}", h.Match.Update)
				r.Delete("/{matchID}", h.Match.Delete)
				r.Patch("/{matchID}/score", h.Match.UpdateScore)
				r.Patch("/{matchID}/status", h.Match.UpdateStatus)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.List)
			r.Get("/{tournamentID}", h.Tournament.GetByID)
			r.Get("/{tournamentID}/standings", h.Tournament.Standings)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)

				r.Post("/", h.Tournament.Create)
				r.Post("/{tournamentID}/regenerate", h.Tournament.Regenerate)
				r.Delete("/{tournamentID}", h.Tournament.Delete)
			})
		})

		r.Route("/admin-requests", func(r chi.Router) {
			r.Post("/", h.Request.CreateAdminRequest)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, superAdminOnly)

				r.Get("/", h.Request.ListAdminRequests)
				r.Post("/{requestID}/approve", h.Request.ApproveAdminRequest)
				r.Post("/{requestID}/reject", h.Request.RejectAdminRequest)
			})
		})

		r.Route("/university-requests", func(r chi.Router) {
			r.Post("/", h.Request.CreateUniversityRequest)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)

				r.Get("/", h.Request.ListUniversityRequests)
				r.Post("/{requestID}/approve", h.Request.ApproveUniversityRequest)
				r.Post("/{requestID}/reject", h.Request.RejectUniversityRequest)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"the requested resource could not be found"}` + "\n"))
	})
}

// allowsAny: браузеры не принимают credentials вместе с wildcard origin.
func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
