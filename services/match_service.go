package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nhsf/dharmic-games/metrics"
	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/realtime"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/nhsf/dharmic-games/utils"
)

var ErrMatchCompleted = errors.New("match is completed; reopen it before changing the score")

type MatchInput struct {
	Title       string     `json:"title"`
	Sport       string     `json:"sport"`
	Team1       *string    `json:"team1"`
	Team2       *string    `json:"team2"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type StatusInput struct {
	Status models.MatchStatus `json:"status"`
	// Winner overrides the winner derived from the score when completing a match.
	Winner *string `json:"winner"`
}

type MatchService interface {
	Create(ctx context.Context, input MatchInput) (*models.Match, error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
	Update(ctx context.Context, id int, input MatchInput) (*models.Match, error)
	Delete(ctx context.Context, id int) error
	UpdateScore(ctx context.Context, id int, score string) (*models.Match, error)
	UpdateStatus(ctx context.Context, id int, input StatusInput) (*models.Match, error)
	BulkUpdateStatus(ctx context.Context, ids []int, status models.MatchStatus) ([]models.Match, error)
	StartDueMatches(ctx context.Context) (int, error)
}

// Допустимые переходы статуса матча. completed -> live означает переоткрытие матча.
var allowedMatchTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchStatusScheduled: {models.MatchStatusLive, models.MatchStatusCompleted},
	models.MatchStatusLive:      {models.MatchStatusCompleted},
	models.MatchStatusCompleted: {models.MatchStatusLive},
}

func isValidMatchTransition(current, next models.MatchStatus) bool {
	if current == next {
		return true
	}
	for _, allowed := range allowedMatchTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

type matchService struct {
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	tx             repositories.Transactor
	catalogue      *sports.Catalogue
	publisher      realtime.Publisher
	recorder       *metrics.Recorder
	logger         *slog.Logger
	now            func() time.Time
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	tx repositories.Transactor,
	catalogue *sports.Catalogue,
	publisher realtime.Publisher,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		tx:             tx,
		catalogue:      catalogue,
		publisher:      publisher,
		recorder:       recorder,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *matchService) Create(ctx context.Context, input MatchInput) (*models.Match, error) {
	sport, err := resolveSport(s.catalogue, input.Sport)
	if err != nil {
		return nil, err
	}
	team1, team2 := utils.TrimToNil(input.Team1), utils.TrimToNil(input.Team2)
	if team1 != nil && team2 != nil && sameTeam(*team1, *team2) {
		return nil, fmt.Errorf("%w: a team cannot play itself", ErrValidationFailed)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		if team1 == nil || team2 == nil {
			return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
		}
		title = fmt.Sprintf("%s vs %s", *team1, *team2)
	}

	m := &models.Match{
		Title:       title,
		Sport:       sport.Key,
		Team1:       team1,
		Team2:       team2,
		Status:      models.MatchStatusScheduled,
		ScheduledAt: input.ScheduledAt,
	}
	if err := s.matchRepo.Create(ctx, nil, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Match created", slog.Int("match_id", m.ID), slog.String("sport", m.Sport))
	s.publisher.Publish(realtime.TypeMatchCreated, m, matchRooms(m)...)
	return m, nil
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) List(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchStatus, *filter.Status)
	}
	if filter.Sport != nil {
		sport, err := resolveSport(s.catalogue, *filter.Sport)
		if err != nil {
			return nil, err
		}
		filter.Sport = &sport.Key
	}
	return s.matchRepo.List(ctx, filter)
}

// Update changes match details. Omitted fields keep their stored values.
// Bracket matches only accept a new title and start time; standalone matches
// can also change sport and teams while they are still scheduled.
func (s *matchService) Update(ctx context.Context, id int, input MatchInput) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		m.Title = title
	}
	if input.ScheduledAt != nil {
		m.ScheduledAt = input.ScheduledAt
	}

	if m.TournamentID != nil {
		if input.Sport != "" || input.Team1 != nil || input.Team2 != nil {
			return nil, ErrBracketMatchLocked
		}
	} else {
		sportKey := m.Sport
		if input.Sport != "" {
			sport, err := resolveSport(s.catalogue, input.Sport)
			if err != nil {
				return nil, err
			}
			sportKey = sport.Key
		}
		team1, team2 := m.Team1, m.Team2
		if input.Team1 != nil {
			team1 = utils.TrimToNil(input.Team1)
		}
		if input.Team2 != nil {
			team2 = utils.TrimToNil(input.Team2)
		}

		changed := sportKey != m.Sport || !equalTeam(team1, m.Team1) || !equalTeam(team2, m.Team2)
		if changed && m.Status != models.MatchStatusScheduled {
			return nil, ErrMatchAlreadyStarted
		}
		if sportKey != m.Sport && m.Score != nil {
			return nil, fmt.Errorf("%w: cannot change the sport of a match that has a score", ErrValidationFailed)
		}
		m.Sport, m.Team1, m.Team2 = sportKey, team1, team2
		if m.HasTeams() && sameTeam(*m.Team1, *m.Team2) {
			return nil, fmt.Errorf("%w: a team cannot play itself", ErrValidationFailed)
		}
	}

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.publisher.Publish(realtime.TypeMatchUpdated, m, matchRooms(m)...)
	return m, nil
}

func (s *matchService) Delete(ctx context.Context, id int) error {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return handleRepositoryError(err)
	}
	if m.TournamentID != nil {
		return ErrBracketMatchLocked
	}
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	s.publisher.Publish(realtime.TypeMatchDeleted, map[string]int{"id": id}, matchRooms(m)...)
	return nil
}

func (s *matchService) UpdateScore(ctx context.Context, id int, score string) (*models.Match, error) {
	score = strings.TrimSpace(score)
	var updated *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByID(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if m.Status == models.MatchStatusCompleted {
			return ErrMatchCompleted
		}
		if !m.HasTeams() {
			return ErrMatchTeamsMissing
		}
		if err := s.catalogue.ValidateScore(m.Sport, score); err != nil {
			return sportError(err)
		}
		m.Score = &score
		if err := s.matchRepo.UpdateResult(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.RecordScoreUpdate(updated.Sport)
	s.publisher.Publish(realtime.TypeMatchUpdated, updated, matchRooms(updated)...)
	return updated, nil
}

func (s *matchService) UpdateStatus(ctx context.Context, id int, input StatusInput) (*models.Match, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchStatus, input.Status)
	}

	var touched []*models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		touched, err = s.applyStatus(ctx, exec, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishTouched(touched)
	return touched[0], nil
}

// BulkUpdateStatus moves every listed match to status in one transaction; one failure rolls back all.
func (s *matchService) BulkUpdateStatus(ctx context.Context, ids []int, status models.MatchStatus) ([]models.Match, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchStatus, status)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no match ids given", ErrValidationFailed)
	}

	unique := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var touched []*models.Match
	updated := make([]models.Match, 0, len(unique))
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, id := range unique {
			ms, err := s.applyStatus(ctx, exec, id, StatusInput{Status: status})
			if err != nil {
				return fmt.Errorf("match %d: %w", id, err)
			}
			updated = append(updated, *ms[0])
			touched = append(touched, ms...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Bulk match status update", slog.Int("count", len(updated)), slog.String("status", string(status)))
	s.publishTouched(touched)
	return updated, nil
}

// StartDueMatches flips scheduled matches whose start time has passed to live.
// Failures are logged per match and do not stop the batch.
func (s *matchService) StartDueMatches(ctx context.Context) (int, error) {
	due, err := s.matchRepo.ListDueToStart(ctx, s.now())
	if err != nil {
		return 0, err
	}
	started := 0
	for _, m := range due {
		if _, err := s.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusLive}); err != nil {
			s.logger.WarnContext(ctx, "Failed to auto-start match", slog.Int("match_id", m.ID), slog.Any("error", err))
			continue
		}
		started++
	}
	return started, nil
}

// applyStatus runs inside a transaction. The first returned match is the one that changed status;
// any further entries are bracket matches whose slots were filled or cleared.
func (s *matchService) applyStatus(ctx context.Context, exec repositories.SQLExecutor, id int, input StatusInput) ([]*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, exec, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !isValidMatchTransition(m.Status, input.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, m.Status, input.Status)
	}
	if m.Status == input.Status {
		return []*models.Match{m}, nil
	}
	if input.Status != models.MatchStatusScheduled && !m.HasTeams() {
		return nil, ErrMatchTeamsMissing
	}

	touched := []*models.Match{m}
	switch {
	case input.Status == models.MatchStatusCompleted:
		winner, err := s.resolveWinner(ctx, m, input.Winner)
		if err != nil {
			return nil, err
		}
		m.Winner = winner
		if next, err := s.moveIntoNextMatch(ctx, exec, m, winner); err != nil {
			return nil, err
		} else if next != nil {
			touched = append(touched, next)
		}
	case m.Status == models.MatchStatusCompleted:
		// Переоткрытие: победитель снимается, слот следующего матча освобождается.
		if next, err := s.moveIntoNextMatch(ctx, exec, m, nil); err != nil {
			return nil, err
		} else if next != nil {
			touched = append(touched, next)
		}
		m.Winner = nil
	}

	m.Status = input.Status
	if err := s.matchRepo.UpdateResult(ctx, exec, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	return touched, nil
}

// resolveWinner picks the explicit winner when given, otherwise derives it from the score.
// A nil result is a draw.
func (s *matchService) resolveWinner(ctx context.Context, m *models.Match, override *string) (*string, error) {
	var winner string
	switch {
	case override != nil && strings.TrimSpace(*override) != "":
		switch {
		case sameTeam(*override, *m.Team1):
			winner = *m.Team1
		case sameTeam(*override, *m.Team2):
			winner = *m.Team2
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidWinner, *override)
		}
	case m.Score != nil:
		sport, err := resolveSport(s.catalogue, m.Sport)
		if err != nil {
			return nil, err
		}
		winner, err = sport.Winner(*m.Team1, *m.Team2, *m.Score)
		if err != nil {
			return nil, sportError(err)
		}
	default:
		return nil, ErrMatchResultRequired
	}

	if winner != "" {
		return &winner, nil
	}
	knockout, err := s.isKnockout(ctx, m)
	if err != nil {
		return nil, err
	}
	if knockout {
		return nil, ErrKnockoutDraw
	}
	return nil, nil
}

func (s *matchService) isKnockout(ctx context.Context, m *models.Match) (bool, error) {
	if m.TournamentID == nil {
		return false, nil
	}
	t, err := s.tournamentRepo.GetByID(ctx, *m.TournamentID)
	if err != nil {
		return false, handleRepositoryError(err)
	}
	return t.Format == models.FormatSingleElimination, nil
}

// moveIntoNextMatch places team (or clears the slot when team is nil) in the bracket match fed by m.
func (s *matchService) moveIntoNextMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match, team *string) (*models.Match, error) {
	if m.NextMatchID == nil || m.WinnerToSlot == nil {
		return nil, nil
	}
	next, err := s.matchRepo.GetByID(ctx, exec, *m.NextMatchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if next.Status != models.MatchStatusScheduled {
		return nil, ErrNextMatchStarted
	}
	if err := s.matchRepo.SetSlotTeam(ctx, exec, next.ID, *m.WinnerToSlot, team); err != nil {
		return nil, handleRepositoryError(err)
	}
	if *m.WinnerToSlot == 1 {
		next.Team1 = team
	} else {
		next.Team2 = team
	}
	return next, nil
}

func (s *matchService) publishTouched(touched []*models.Match) {
	for _, m := range touched {
		s.publisher.Publish(realtime.TypeMatchUpdated, m, matchRooms(m)...)
	}
}

func matchRooms(m *models.Match) []string {
	rooms := []string{realtime.RoomMatches}
	if m.TournamentID != nil {
		rooms = append(rooms, realtime.TournamentRoom(*m.TournamentID))
	}
	return rooms
}
