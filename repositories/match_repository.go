package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhsf/dharmic-games/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchNextInvalid       = errors.New("match next-match reference invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	List(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error)
	Update(ctx context.Context, m *models.Match) error
	UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error
	SetSlotTeam(ctx context.Context, exec SQLExecutor, matchID int, slot int, team *string) error
	Delete(ctx context.Context, id int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	LockByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error)
	CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error)
	ListDueToStart(ctx context.Context, now time.Time) ([]models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, title, sport, team1, team2, score, status, winner, round, round_label,
	order_in_round, bracket_uid, next_match_id, winner_to_slot, scheduled_at, created_at, updated_at`

func scanMatch(s rowScanner, m *models.Match) error {
	return s.Scan(
		&m.ID, &m.TournamentID, &m.Title, &m.Sport, &m.Team1, &m.Team2, &m.Score, &m.Status, &m.Winner,
		&m.Round, &m.RoundLabel, &m.OrderInRound, &m.BracketUID, &m.NextMatchID, &m.WinnerToSlot,
		&m.ScheduledAt, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, title, sport, team1, team2, score, status, winner,
			round, round_label, order_in_round, bracket_uid, next_match_id, winner_to_slot, scheduled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.Title, m.Sport, m.Team1, m.Team2, m.Score, m.Status, m.Winner,
		m.Round, m.RoundLabel, m.OrderInRound, m.BracketUID, m.NextMatchID, m.WinnerToSlot, m.ScheduledAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

// GetByID locks the row when exec is a transaction so concurrent result updates serialize.
func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if exec != nil {
		query += ` FOR UPDATE`
	}

	m := &models.Match{}
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	var w whereBuilder
	if filter.Sport != nil {
		w.add("LOWER(sport) = LOWER($%d)", *filter.Sport)
	}
	if filter.Status != nil {
		w.add("status = $%d", *filter.Status)
	}
	if filter.TournamentID != nil {
		w.add("tournament_id = $%d", *filter.TournamentID)
	}
	if filter.Team != nil {
		w.add("$%d IN (team1, team2)", *filter.Team)
	}

	query := `SELECT ` + matchColumns + ` FROM matches` + w.sql() +
		` ORDER BY scheduled_at NULLS LAST, round NULLS FIRST, order_in_round NULLS FIRST, id`
	return r.queryMatches(ctx, nil, query, w.args...)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round, order_in_round, id`
	return r.queryMatches(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) Update(ctx context.Context, m *models.Match) error {
	query := `
		UPDATE matches SET
			title = $1,
			sport = $2,
			team1 = $3,
			team2 = $4,
			scheduled_at = $5,
			updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, m.Title, m.Sport, m.Team1, m.Team2, m.ScheduledAt, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return r.handleMatchError(err)
	}
	return nil
}

// UpdateResult persists score, status and winner of m.
func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches
		SET score = $1, status = $2, winner = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, m.Score, m.Status, m.Winner, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return r.handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error {
	query := `UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextMatchID, winnerToSlot, matchID)
	if err != nil {
		return fmt.Errorf("UpdateNextMatchInfo: failed to execute query for match %d: %w", matchID, r.handleMatchError(err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// SetSlotTeam fills team1 (slot 1) or team2 (slot 2) of a bracket match.
func (r *postgresMatchRepository) SetSlotTeam(ctx context.Context, exec SQLExecutor, matchID int, slot int, team *string) error {
	var query string
	switch slot {
	case 1:
		query = `UPDATE matches SET team1 = $1, updated_at = NOW() WHERE id = $2`
	case 2:
		query = `UPDATE matches SET team2 = $1, updated_at = NOW() WHERE id = $2`
	default:
		return fmt.Errorf("invalid bracket slot %d", slot)
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, query, team, matchID)
	if err != nil {
		return fmt.Errorf("SetSlotTeam: failed to update match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	if _, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete tournament matches: %w", err)
	}
	return nil
}

// LockByTournament reads the tournament's matches with FOR UPDATE so their status
// cannot change until exec's transaction ends.
func (r *postgresMatchRepository) LockByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY id FOR UPDATE`
	return r.queryMatches(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM matches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.MatchStatus]int)
	for rows.Next() {
		var status models.MatchStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListDueToStart returns scheduled matches with both teams known whose start time has passed.
func (r *postgresMatchRepository) ListDueToStart(ctx context.Context, now time.Time) ([]models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		  AND team1 IS NOT NULL AND team2 IS NOT NULL
		ORDER BY scheduled_at, id`
	return r.queryMatches(ctx, nil, query, models.MatchStatusScheduled, now)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_next_match_id_fkey":
			return ErrMatchNextInvalid
		}
	}
	return err
}
