package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhsf/dharmic-games/brackets"
	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	// GenerateAndSave builds the fixtures for t and stores them through exec.
	// t.Participants must already be normalized; t.Rounds is set from the generated bracket.
	GenerateAndSave(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, startsAt *time.Time) ([]models.Match, error)
	GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	logger         *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		logger:         logger,
	}
}

func (s *bracketService) GenerateAndSave(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, startsAt *time.Time) ([]models.Match, error) {
	generator, err := brackets.NewGenerator(t.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Participants: t.Participants,
		Legs:         t.Legs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("bracket generation resulted in no matches for %d participants", len(t.Participants))
	}
	t.Rounds = brackets.TotalRounds(generated)

	s.logger.InfoContext(ctx, "Generating bracket",
		slog.Int("tournament_id", t.ID),
		slog.String("generator", generator.GetName()),
		slog.Int("participants", len(t.Participants)),
		slog.Int("rounds", t.Rounds))

	// Первый проход: создаём матчи; bye-матчи не сохраняются, их команда уже стоит в следующем раунде.
	created := make(map[string]*models.Match, len(generated))
	ordered := make([]*models.Match, 0, len(generated))
	for _, bm := range generated {
		if bm.IsBye {
			continue
		}
		m := bracketMatchToModel(t, bm, startsAt)
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return nil, fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		created[bm.UID] = m
		ordered = append(ordered, m)
	}

	// Второй проход: связываем источники с матчем, куда уходит победитель.
	for _, bm := range generated {
		target, ok := created[bm.UID]
		if !ok {
			continue
		}
		for slot, sourceUID := range map[int]*string{1: bm.SourceMatch1UID, 2: bm.SourceMatch2UID} {
			if sourceUID == nil {
				continue
			}
			source, ok := created[*sourceUID]
			if !ok {
				continue
			}
			source.NextMatchID = intPtr(target.ID)
			source.WinnerToSlot = intPtr(slot)
			if err := s.matchRepo.UpdateNextMatchInfo(ctx, exec, source.ID, source.NextMatchID, source.WinnerToSlot); err != nil {
				return nil, err
			}
		}
	}

	matches := make([]models.Match, 0, len(ordered))
	for _, m := range ordered {
		matches = append(matches, *m)
	}
	return matches, nil
}

func bracketMatchToModel(t *models.Tournament, bm *brackets.BracketMatch, startsAt *time.Time) *models.Match {
	title := fmt.Sprintf("%s, match %d", bm.Label, bm.OrderInRound)
	if bm.Team1 != nil && bm.Team2 != nil {
		title = fmt.Sprintf("%s: %s vs %s", bm.Label, *bm.Team1, *bm.Team2)
	}
	return &models.Match{
		TournamentID: intPtr(t.ID),
		Title:        title,
		Sport:        t.Sport,
		Team1:        bm.Team1,
		Team2:        bm.Team2,
		Status:       models.MatchStatusScheduled,
		Round:        intPtr(bm.Round),
		RoundLabel:   stringPtr(bm.Label),
		OrderInRound: intPtr(bm.OrderInRound),
		BracketUID:   stringPtr(bm.UID),
		ScheduledAt:  startsAt,
	}
}

func (s *bracketService) GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	var (
		tournament *models.Tournament
		matches    []models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		tournament = t
		return nil
	})

	g.Go(func() error {
		ms, err := s.matchRepo.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch matches for tournament %d: %w", tournamentID, err)
		}
		matches = ms
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	tournament.Matches = matches
	return tournament, nil
}
