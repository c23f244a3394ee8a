package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/nhsf/dharmic-games/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
)

type ListTournamentsFilter struct {
	Sport  *string
	Format *models.TournamentFormat
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateBracketInfo(ctx context.Context, exec SQLExecutor, id int, participants []string, rounds int, legs int) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, sport, format, participants, rounds, legs, created_at`

func scanTournament(s rowScanner, t *models.Tournament) error {
	return s.Scan(&t.ID, &t.Name, &t.Sport, &t.Format, pq.Array(&t.Participants), &t.Rounds, &t.Legs, &t.CreatedAt)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, sport, format, participants, rounds, legs)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Name, t.Sport, t.Format, pq.Array(t.Participants), t.Rounds, t.Legs,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := scanTournament(r.db.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	var w whereBuilder
	if filter.Sport != nil {
		w.add("LOWER(sport) = LOWER($%d)", *filter.Sport)
	}
	if filter.Format != nil {
		w.add("format = $%d", *filter.Format)
	}

	query := `SELECT ` + tournamentColumns + ` FROM tournaments` + w.sql() + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateBracketInfo(ctx context.Context, exec SQLExecutor, id int, participants []string, rounds int, legs int) error {
	query := `UPDATE tournaments SET participants = $1, rounds = $2, legs = $3 WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, pq.Array(participants), rounds, legs, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament bracket info: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Delete removes the tournament; its matches go with it through ON DELETE CASCADE.
func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return n, nil
}
