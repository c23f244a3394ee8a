package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nhsf/dharmic-games/models"
)

var (
	ErrPlayerNotFound          = errors.New("player not found")
	ErrPlayerUniversityInvalid = errors.New("invalid university reference")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error)
	Update(ctx context.Context, p *models.Player) error
	Delete(ctx context.Context, id int) error
	SetCheckIn(ctx context.Context, id int, checkedIn bool, at *time.Time) (*models.Player, error)
	BulkCheckIn(ctx context.Context, universityID int, playerIDs []int, at time.Time) ([]int, error)
	CheckInSummary(ctx context.Context) ([]models.CheckInSummary, error)
	Count(ctx context.Context) (total int, checkedIn int, err error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, university_id, name, email, phone, sport, emergency_contact_name, emergency_contact_phone,
	medical_info, checked_in, checked_in_at, created_at`

func scanPlayer(s rowScanner, p *models.Player) error {
	return s.Scan(
		&p.ID, &p.UniversityID, &p.Name, &p.Email, &p.Phone, &p.Sport,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.MedicalInfo,
		&p.CheckedIn, &p.CheckedInAt, &p.CreatedAt,
	)
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		INSERT INTO players (
			university_id, name, email, phone, sport,
			emergency_contact_name, emergency_contact_phone, medical_info
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, checked_in, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		p.UniversityID, p.Name, p.Email, p.Phone, p.Sport,
		p.EmergencyContactName, p.EmergencyContactPhone, p.MedicalInfo,
	).Scan(&p.ID, &p.CheckedIn, &p.CreatedAt)

	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	p := &models.Player{}
	err := scanPlayer(r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error) {
	var w whereBuilder
	if filter.UniversityID != nil {
		w.add("university_id = $%d", *filter.UniversityID)
	}
	if filter.Sport != nil {
		w.add("LOWER(sport) = LOWER($%d)", *filter.Sport)
	}
	if filter.CheckedIn != nil {
		w.add("checked_in = $%d", *filter.CheckedIn)
	}
	if filter.Search != "" {
		w.add("name ILIKE $%d", likePattern(filter.Search))
	}

	query := `SELECT ` + playerColumns + ` FROM players` + w.sql() + ` ORDER BY LOWER(name), id`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err := scanPlayer(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, p *models.Player) error {
	query := `
		UPDATE players SET
			name = $1,
			email = $2,
			phone = $3,
			sport = $4,
			emergency_contact_name = $5,
			emergency_contact_phone = $6,
			medical_info = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.Email, p.Phone, p.Sport,
		p.EmergencyContactName, p.EmergencyContactPhone, p.MedicalInfo, p.ID,
	)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

// SetCheckIn stores the flag and timestamp together; at is ignored when checkedIn is false.
func (r *postgresPlayerRepository) SetCheckIn(ctx context.Context, id int, checkedIn bool, at *time.Time) (*models.Player, error) {
	if !checkedIn {
		at = nil
	}
	query := `UPDATE players SET checked_in = $1, checked_in_at = $2 WHERE id = $3 RETURNING ` + playerColumns

	p := &models.Player{}
	if err := scanPlayer(r.db.QueryRowContext(ctx, query, checkedIn, at, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update check-in: %w", err)
	}
	return p, nil
}

// BulkCheckIn checks in every not yet checked-in player of the university, or only playerIDs when given.
// It returns the ids that changed.
func (r *postgresPlayerRepository) BulkCheckIn(ctx context.Context, universityID int, playerIDs []int, at time.Time) ([]int, error) {
	query := `UPDATE players SET checked_in = TRUE, checked_in_at = $1 WHERE university_id = $2 AND NOT checked_in`
	args := []interface{}{at, universityID}
	if len(playerIDs) > 0 {
		query += ` AND id = ANY($3)`
		args = append(args, pq.Array(playerIDs))
	}
	query += ` RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk check in: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresPlayerRepository) CheckInSummary(ctx context.Context) ([]models.CheckInSummary, error) {
	query := `
		SELECT u.id, u.name, u.zone, COUNT(p.id), COUNT(p.id) FILTER (WHERE p.checked_in)
		FROM universities u
		LEFT JOIN players p ON p.university_id = u.id
		GROUP BY u.id, u.name, u.zone
		ORDER BY LOWER(u.name)`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-in summary: %w", err)
	}
	defer rows.Close()

	summary := make([]models.CheckInSummary, 0)
	for rows.Next() {
		var s models.CheckInSummary
		if err := rows.Scan(&s.UniversityID, &s.UniversityName, &s.Zone, &s.Total, &s.CheckedIn); err != nil {
			return nil, err
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

func (r *postgresPlayerRepository) Count(ctx context.Context) (int, int, error) {
	var total, checkedIn int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE checked_in) FROM players`,
	).Scan(&total, &checkedIn)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count players: %w", err)
	}
	return total, checkedIn, nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok && pqErr.Code == "23503" {
		return ErrPlayerUniversityInvalid
	}
	return err
}
