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
	ErrUniversityNotFound     = errors.New("university not found")
	ErrUniversityNameConflict = errors.New("university name already exists")
	ErrUniversityInUse        = errors.New("university is referenced by other records")
)

type UniversityRepository interface {
	Create(ctx context.Context, exec SQLExecutor, u *models.University) error
	GetByID(ctx context.Context, id int) (*models.University, error)
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, error)
	Update(ctx context.Context, u *models.University) error
	SetCompeting(ctx context.Context, id int, competing bool) error
	AdjustPoints(ctx context.Context, id int, delta int) (int, error)
	SetPoints(ctx context.Context, exec SQLExecutor, id int, points int) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (total int, competing int, err error)
}

type postgresUniversityRepository struct {
	db *sql.DB
}

func NewPostgresUniversityRepository(db *sql.DB) UniversityRepository {
	return &postgresUniversityRepository{db: db}
}

func (r *postgresUniversityRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const universityColumns = `id, name, zone, contact_name, contact_email, contact_phone, sports, competing, points, logo_key, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUniversity(s rowScanner, u *models.University) error {
	return s.Scan(
		&u.ID, &u.Name, &u.Zone, &u.ContactName, &u.ContactEmail, &u.ContactPhone,
		pq.Array(&u.Sports), &u.Competing, &u.Points, &u.LogoKey, &u.CreatedAt,
	)
}

func (r *postgresUniversityRepository) Create(ctx context.Context, exec SQLExecutor, u *models.University) error {
	query := `
		INSERT INTO universities (name, zone, contact_name, contact_email, contact_phone, sports, competing, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		u.Name, u.Zone, u.ContactName, u.ContactEmail, u.ContactPhone,
		pq.Array(u.Sports), u.Competing, u.Points,
	).Scan(&u.ID, &u.CreatedAt)

	return r.handleUniversityError(err)
}

func (r *postgresUniversityRepository) GetByID(ctx context.Context, id int) (*models.University, error) {
	query := `SELECT ` + universityColumns + ` FROM universities WHERE id = $1`

	u := &models.University{}
	if err := scanUniversity(r.db.QueryRowContext(ctx, query, id), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUniversityNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUniversityRepository) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, error) {
	var w whereBuilder
	if filter.Zone != nil {
		w.add("zone = $%d", *filter.Zone)
	}
	if filter.Competing != nil {
		w.add("competing = $%d", *filter.Competing)
	}
	if filter.Sport != nil {
		w.add("$%d = ANY(sports)", *filter.Sport)
	}
	if filter.Search != "" {
		w.add("name ILIKE $%d", likePattern(filter.Search))
	}

	query := `SELECT ` + universityColumns + ` FROM universities` + w.sql() + ` ORDER BY LOWER(name), id`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list universities: %w", err)
	}
	defer rows.Close()

	universities := make([]models.University, 0)
	for rows.Next() {
		var u models.University
		if err := scanUniversity(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan university: %w", err)
		}
		universities = append(universities, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return universities, nil
}

func (r *postgresUniversityRepository) Update(ctx context.Context, u *models.University) error {
	query := `
		UPDATE universities SET
			name = $1,
			zone = $2,
			contact_name = $3,
			contact_email = $4,
			contact_phone = $5,
			sports = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		u.Name, u.Zone, u.ContactName, u.ContactEmail, u.ContactPhone, pq.Array(u.Sports), u.ID,
	)
	if err != nil {
		return r.handleUniversityError(err)
	}
	return checkAffectedRows(result, ErrUniversityNotFound)
}

func (r *postgresUniversityRepository) SetCompeting(ctx context.Context, id int, competing bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE universities SET competing = $1 WHERE id = $2`, competing, id)
	if err != nil {
		return fmt.Errorf("failed to update competing flag: %w", err)
	}
	return checkAffectedRows(result, ErrUniversityNotFound)
}

// AdjustPoints applies delta atomically and returns the new total.
func (r *postgresUniversityRepository) AdjustPoints(ctx context.Context, id int, delta int) (int, error) {
	var points int
	err := r.db.QueryRowContext(ctx,
		`UPDATE universities SET points = points + $1 WHERE id = $2 RETURNING points`, delta, id,
	).Scan(&points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUniversityNotFound
		}
		return 0, fmt.Errorf("failed to adjust points: %w", err)
	}
	return points, nil
}

func (r *postgresUniversityRepository) SetPoints(ctx context.Context, exec SQLExecutor, id int, points int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE universities SET points = $1 WHERE id = $2`, points, id)
	if err != nil {
		return fmt.Errorf("failed to set points: %w", err)
	}
	return checkAffectedRows(result, ErrUniversityNotFound)
}

func (r *postgresUniversityRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE universities SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update university logo key: %w", err)
	}
	return checkAffectedRows(result, ErrUniversityNotFound)
}

func (r *postgresUniversityRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM universities WHERE id = $1`, id)
	if err != nil {
		return r.handleUniversityError(err)
	}
	return checkAffectedRows(result, ErrUniversityNotFound)
}

func (r *postgresUniversityRepository) Count(ctx context.Context) (int, int, error) {
	var total, competing int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE competing) FROM universities`,
	).Scan(&total, &competing)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count universities: %w", err)
	}
	return total, competing, nil
}

func (r *postgresUniversityRepository) handleUniversityError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "universities_name_key" {
				return ErrUniversityNameConflict
			}
		case "23503":
			return ErrUniversityInUse
		}
	}
	return err
}
