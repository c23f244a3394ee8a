package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/realtime"
	"github.com/nhsf/dharmic-games/repositories"
)

type LeaderboardService interface {
	Leaderboard(ctx context.Context, zone *models.Zone) ([]models.LeaderboardEntry, error)
	// PublishUpdate recomputes the overall leaderboard and pushes it to subscribers.
	PublishUpdate(ctx context.Context)
}

type leaderboardService struct {
	universityRepo repositories.UniversityRepository
	publisher      realtime.Publisher
	logger         *slog.Logger
}

func NewLeaderboardService(universityRepo repositories.UniversityRepository, publisher realtime.Publisher, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{
		universityRepo: universityRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, zone *models.Zone) ([]models.LeaderboardEntry, error) {
	competing := true
	universities, err := s.universityRepo.List(ctx, models.UniversityFilter{Zone: zone, Competing: &competing})
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return RankUniversities(universities), nil
}

func (s *leaderboardService) PublishUpdate(ctx context.Context) {
	entries, err := s.Leaderboard(ctx, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to compute leaderboard for broadcast", slog.Any("error", err))
		return
	}
	s.publisher.Publish(realtime.TypeLeaderboardUpdated, entries, realtime.RoomLeaderboard)
}

// RankUniversities orders by points desc then name (case-insensitive).
// Equal points share a rank and the next rank skips, e.g. 1, 1, 3.
func RankUniversities(universities []models.University) []models.LeaderboardEntry {
	sorted := make([]models.University, len(universities))
	copy(sorted, universities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	entries := make([]models.LeaderboardEntry, 0, len(sorted))
	for i, u := range sorted {
		rank := i + 1
		if i > 0 && u.Points == sorted[i-1].Points {
			rank = entries[i-1].Rank
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:         rank,
			UniversityID: u.ID,
			Name:         u.Name,
			Zone:         u.Zone,
			Points:       u.Points,
		})
	}
	return entries
}
