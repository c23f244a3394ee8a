package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nhsf/dharmic-games/brackets"
	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/realtime"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/sports"
)

type TournamentInput struct {
	Name         string                  `json:"name"`
	Sport        string                  `json:"sport"`
	Format       models.TournamentFormat `json:"format"`
	Participants []string                `json:"participants"`
	Legs         int                     `json:"legs"`
	StartsAt     *time.Time              `json:"starts_at"`
}

type TournamentService interface {
	Create(ctx context.Context, input TournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Delete(ctx context.Context, id int) error
	Regenerate(ctx context.Context, id int) (*models.Tournament, error)
	Standings(ctx context.Context, id int) ([]models.Standing, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	bracketService BracketService
	tx             repositories.Transactor
	catalogue      *sports.Catalogue
	publisher      realtime.Publisher
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	bracketService BracketService,
	tx repositories.Transactor,
	catalogue *sports.Catalogue,
	publisher realtime.Publisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		bracketService: bracketService,
		tx:             tx,
		catalogue:      catalogue,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input TournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	sport, err := resolveSport(s.catalogue, input.Sport)
	if err != nil {
		return nil, err
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, input.Format)
	}
	legs := input.Legs
	if legs == 0 {
		legs = 1
	}
	if legs != 1 && legs != 2 {
		return nil, ErrInvalidLegs
	}
	if input.Format == models.FormatSingleElimination && legs != 1 {
		return nil, fmt.Errorf("%w: knockout tournaments are single leg", ErrInvalidLegs)
	}
	participants, err := brackets.NormalizeParticipants(input.Participants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	t := &models.Tournament{
		Name:         name,
		Sport:        sport.Key,
		Format:       input.Format,
		Participants: participants,
		Legs:         legs,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, t); err != nil {
			return err
		}
		matches, err := s.bracketService.GenerateAndSave(ctx, exec, t, input.StartsAt)
		if err != nil {
			return err
		}
		t.Matches = matches
		return s.tournamentRepo.UpdateBracketInfo(ctx, exec, t.ID, t.Participants, t.Rounds, t.Legs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Tournament created",
		slog.Int("tournament_id", t.ID), slog.String("format", string(t.Format)), slog.Int("matches", len(t.Matches)))
	s.publishBracket(t)
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	return s.bracketService.GetFullTournamentData(ctx, id)
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Format != nil && !filter.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, *filter.Format)
	}
	if filter.Sport != nil {
		sport, err := resolveSport(s.catalogue, *filter.Sport)
		if err != nil {
			return nil, err
		}
		filter.Sport = &sport.Key
	}
	return s.tournamentRepo.List(ctx, filter)
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Tournament deleted", slog.Int("tournament_id", id))
	s.publisher.Publish(realtime.TypeTournamentDeleted, map[string]int{"id": id}, realtime.TournamentRoom(id), realtime.RoomMatches)
	return nil
}

// Regenerate throws away the fixtures and draws them again. Only allowed before any match has started.
// The new fixtures keep the earliest start time of the old ones.
func (s *tournamentService) Regenerate(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		existing, err := s.matchRepo.LockByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		var startsAt *time.Time
		for _, m := range existing {
			if m.Status != models.MatchStatusScheduled {
				return ErrTournamentStarted
			}
			if m.ScheduledAt != nil && (startsAt == nil || m.ScheduledAt.Before(*startsAt)) {
				v := *m.ScheduledAt
				startsAt = &v
			}
		}

		if err := s.matchRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return err
		}
		matches, err := s.bracketService.GenerateAndSave(ctx, exec, t, startsAt)
		if err != nil {
			return err
		}
		t.Matches = matches
		return s.tournamentRepo.UpdateBracketInfo(ctx, exec, t.ID, t.Participants, t.Rounds, t.Legs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Tournament bracket regenerated", slog.Int("tournament_id", id))
	s.publishBracket(t)
	return t, nil
}

func (s *tournamentService) Standings(ctx context.Context, id int) ([]models.Standing, error) {
	t, err := s.bracketService.GetFullTournamentData(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Format != models.FormatRoundRobin {
		return nil, ErrStandingsNotApplicable
	}
	sport, err := resolveSport(s.catalogue, t.Sport)
	if err != nil {
		return nil, err
	}
	return ComputeStandings(t.Participants, t.Matches, sport), nil
}

func (s *tournamentService) publishBracket(t *models.Tournament) {
	s.publisher.Publish(realtime.TypeBracketGenerated, t, realtime.TournamentRoom(t.ID), realtime.RoomMatches)
}

// ComputeStandings builds a league table from completed matches.
// Order: points, score difference, score for (all desc), then team name.
func ComputeStandings(participants []string, matches []models.Match, sport *sports.Sport) []models.Standing {
	rows := make(map[string]*models.Standing, len(participants))
	order := make([]*models.Standing, 0, len(participants))
	for _, p := range participants {
		st := &models.Standing{Team: p}
		rows[strings.ToLower(p)] = st
		order = append(order, st)
	}

	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || !m.HasTeams() {
			continue
		}
		home, okHome := rows[strings.ToLower(*m.Team1)]
		away, okAway := rows[strings.ToLower(*m.Team2)]
		if !okHome || !okAway {
			continue
		}

		var homeWon, awayWon bool
		if m.Score != nil {
			if r, err := sport.Result(*m.Score); err == nil {
				home.ScoreFor += r.Home
				home.ScoreAgainst += r.Away
				away.ScoreFor += r.Away
				away.ScoreAgainst += r.Home
				homeWon, awayWon = r.Home > r.Away, r.Away > r.Home
			}
		}
		if m.Winner != nil {
			homeWon, awayWon = sameTeam(*m.Winner, *m.Team1), sameTeam(*m.Winner, *m.Team2)
		}

		home.Played++
		away.Played++
		switch {
		case homeWon:
			home.Won++
			away.Lost++
			home.Points += sport.Points.Win
			away.Points += sport.Points.Loss
		case awayWon:
			away.Won++
			home.Lost++
			away.Points += sport.Points.Win
			home.Points += sport.Points.Loss
		default:
			home.Drawn++
			away.Drawn++
			home.Points += sport.Points.Draw
			away.Points += sport.Points.Draw
		}
	}

	for _, st := range order {
		st.ScoreDifference = st.ScoreFor - st.ScoreAgainst
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDifference != b.ScoreDifference {
			return a.ScoreDifference > b.ScoreDifference
		}
		if a.ScoreFor != b.ScoreFor {
			return a.ScoreFor > b.ScoreFor
		}
		return strings.ToLower(a.Team) < strings.ToLower(b.Team)
	})

	standings := make([]models.Standing, 0, len(order))
	for i, st := range order {
		st.Rank = i + 1
		if i > 0 {
			prev := standings[i-1]
			if prev.Points == st.Points && prev.ScoreDifference == st.ScoreDifference && prev.ScoreFor == st.ScoreFor {
				st.Rank = prev.Rank
			}
		}
		standings = append(standings, *st)
	}
	return standings
}
