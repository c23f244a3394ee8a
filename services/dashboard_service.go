package services

import (
	"context"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
	GetSuperAdminDashboard(ctx context.Context) (*models.SuperAdminDashboard, error)
}

type dashboardService struct {
	universityRepo        repositories.UniversityRepository
	playerRepo            repositories.PlayerRepository
	matchRepo             repositories.MatchRepository
	tournamentRepo        repositories.TournamentRepository
	adminRequestRepo      repositories.AdminRequestRepository
	universityRequestRepo repositories.UniversityRequestRepository
}

func NewDashboardService(
	universityRepo repositories.UniversityRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	adminRequestRepo repositories.AdminRequestRepository,
	universityRequestRepo repositories.UniversityRequestRepository,
) DashboardService {
	return &dashboardService{
		universityRepo:        universityRepo,
		playerRepo:            playerRepo,
		matchRepo:             matchRepo,
		tournamentRepo:        tournamentRepo,
		adminRequestRepo:      adminRequestRepo,
		universityRequestRepo: universityRequestRepo,
	}
}

// GetStats runs the counters concurrently; each goroutine writes only its own fields.
func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		stats.UniversitiesTotal, stats.UniversitiesCompeting, err = s.universityRepo.Count(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.PlayersTotal, stats.PlayersCheckedIn, err = s.playerRepo.Count(gCtx)
		return err
	})
	g.Go(func() error {
		counts, err := s.matchRepo.CountByStatus(gCtx)
		if err != nil {
			return err
		}
		stats.MatchesScheduled = counts[models.MatchStatusScheduled]
		stats.MatchesLive = counts[models.MatchStatusLive]
		stats.MatchesCompleted = counts[models.MatchStatusCompleted]
		return nil
	})
	g.Go(func() error {
		var err error
		stats.TournamentsTotal, err = s.tournamentRepo.Count(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.AdminRequestsPending, err = s.adminRequestRepo.CountPending(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.UniversityRequestsPending, err = s.universityRequestRepo.CountPending(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}

func (s *dashboardService) GetSuperAdminDashboard(ctx context.Context) (*models.SuperAdminDashboard, error) {
	pending := models.RequestStatusPending
	dashboard := &models.SuperAdminDashboard{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.GetStats(gCtx)
		dashboard.Stats = stats
		return err
	})
	g.Go(func() error {
		list, err := s.adminRequestRepo.List(gCtx, &pending)
		dashboard.AdminRequests = list
		return err
	})
	g.Go(func() error {
		list, err := s.universityRequestRepo.List(gCtx, &pending)
		dashboard.UniversityRequests = list
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}
