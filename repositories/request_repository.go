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
	ErrAdminRequestNotFound      = errors.New("admin request not found")
	ErrAdminRequestDuplicate     = errors.New("a pending admin request already exists for this email")
	ErrUniversityRequestNotFound = errors.New("university request not found")
	ErrRequestNotPending         = errors.New("request has already been reviewed")
)

type AdminRequestRepository interface {
	Create(ctx context.Context, req *models.AdminRequest) error
	GetByID(ctx context.Context, id int) (*models.AdminRequest, error)
	List(ctx context.Context, status *models.RequestStatus) ([]models.AdminRequest, error)
	Review(ctx context.Context, exec SQLExecutor, id int, review models.Review) (*models.AdminRequest, error)
	CountPending(ctx context.Context) (int, error)
}

type UniversityRequestRepository interface {
	Create(ctx context.Context, req *models.UniversityRequest) error
	GetByID(ctx context.Context, id int) (*models.UniversityRequest, error)
	List(ctx context.Context, status *models.RequestStatus) ([]models.UniversityRequest, error)
	Review(ctx context.Context, exec SQLExecutor, id int, review models.Review, universityID *int) (*models.UniversityRequest, error)
	CountPending(ctx context.Context) (int, error)
}

// --- admin requests ---

type postgresAdminRequestRepository struct {
	db *sql.DB
}

func NewPostgresAdminRequestRepository(db *sql.DB) AdminRequestRepository {
	return &postgresAdminRequestRepository{db: db}
}

const adminRequestColumns = `id, name, email, university, password_hash, status, reason, reviewed_by, reviewed_at, created_at`

func scanAdminRequest(s rowScanner, a *models.AdminRequest) error {
	return s.Scan(&a.ID, &a.Name, &a.Email, &a.University, &a.PasswordHash, &a.Status,
		&a.Reason, &a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt)
}

func (r *postgresAdminRequestRepository) Create(ctx context.Context, req *models.AdminRequest) error {
	query := `
		INSERT INTO admin_requests (name, email, university, password_hash, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		req.Name, req.Email, req.University, req.PasswordHash, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	return r.handleError(err)
}

func (r *postgresAdminRequestRepository) GetByID(ctx context.Context, id int) (*models.AdminRequest, error) {
	a := &models.AdminRequest{}
	err := scanAdminRequest(r.db.QueryRowContext(ctx, `SELECT `+adminRequestColumns+` FROM admin_requests WHERE id = $1`, id), a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminRequestNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAdminRequestRepository) List(ctx context.Context, status *models.RequestStatus) ([]models.AdminRequest, error) {
	var w whereBuilder
	if status != nil {
		w.add("status = $%d", *status)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+adminRequestColumns+` FROM admin_requests`+w.sql()+` ORDER BY created_at DESC, id DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin requests: %w", err)
	}
	defer rows.Close()

	list := make([]models.AdminRequest, 0)
	for rows.Next() {
		var a models.AdminRequest
		if err := scanAdminRequest(rows, &a); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Review moves a pending request to review.Status. Requests that are no longer pending yield ErrRequestNotPending.
func (r *postgresAdminRequestRepository) Review(ctx context.Context, exec SQLExecutor, id int, review models.Review) (*models.AdminRequest, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE admin_requests
		SET status = $1, reason = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $5 AND status = $6
		RETURNING ` + adminRequestColumns

	a := &models.AdminRequest{}
	err := scanAdminRequest(exec.QueryRowContext(ctx, query,
		review.Status, review.Reason, review.ReviewerID, review.At, id, models.RequestStatusPending), a)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to review admin request: %w", err)
	}
	return nil, pendingOrMissing(ctx, exec, "admin_requests", id, ErrAdminRequestNotFound)
}

func (r *postgresAdminRequestRepository) CountPending(ctx context.Context) (int, error) {
	return countPending(ctx, r.db, "admin_requests")
}

func (r *postgresAdminRequestRepository) handleError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok && pqErr.Code == "23505" && pqErr.Constraint == "admin_requests_pending_email_key" {
		return ErrAdminRequestDuplicate
	}
	return err
}

// --- university requests ---

type postgresUniversityRequestRepository struct {
	db *sql.DB
}

func NewPostgresUniversityRequestRepository(db *sql.DB) UniversityRequestRepository {
	return &postgresUniversityRequestRepository{db: db}
}

const universityRequestColumns = `id, university_name, zone, contact_name, contact_email, contact_phone, sports, status,
	reason, reviewed_by, reviewed_at, university_id, created_at`

func scanUniversityRequest(s rowScanner, u *models.UniversityRequest) error {
	return s.Scan(&u.ID, &u.UniversityName, &u.Zone, &u.ContactName, &u.ContactEmail, &u.ContactPhone,
		pq.Array(&u.Sports), &u.Status, &u.Reason, &u.ReviewedBy, &u.ReviewedAt, &u.UniversityID, &u.CreatedAt)
}

func (r *postgresUniversityRequestRepository) Create(ctx context.Context, req *models.UniversityRequest) error {
	query := `
		INSERT INTO university_requests (university_name, zone, contact_name, contact_email, contact_phone, sports, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		req.UniversityName, req.Zone, req.ContactName, req.ContactEmail, req.ContactPhone, pq.Array(req.Sports), req.Status,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *postgresUniversityRequestRepository) GetByID(ctx context.Context, id int) (*models.UniversityRequest, error) {
	u := &models.UniversityRequest{}
	err := scanUniversityRequest(r.db.QueryRowContext(ctx,
		`SELECT `+universityRequestColumns+` FROM university_requests WHERE id = $1`, id), u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUniversityRequestNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUniversityRequestRepository) List(ctx context.Context, status *models.RequestStatus) ([]models.UniversityRequest, error) {
	var w whereBuilder
	if status != nil {
		w.add("status = $%d", *status)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+universityRequestColumns+` FROM university_requests`+w.sql()+` ORDER BY created_at DESC, id DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list university requests: %w", err)
	}
	defer rows.Close()

	list := make([]models.UniversityRequest, 0)
	for rows.Next() {
		var u models.UniversityRequest
		if err := scanUniversityRequest(rows, &u); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *postgresUniversityRequestRepository) Review(ctx context.Context, exec SQLExecutor, id int, review models.Review, universityID *int) (*models.UniversityRequest, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE university_requests
		SET status = $1, reason = $2, reviewed_by = $3, reviewed_at = $4, university_id = $5
		WHERE id = $6 AND status = $7
		RETURNING ` + universityRequestColumns

	u := &models.UniversityRequest{}
	err := scanUniversityRequest(exec.QueryRowContext(ctx, query,
		review.Status, review.Reason, review.ReviewerID, review.At, universityID, id, models.RequestStatusPending), u)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to review university request: %w", err)
	}
	return nil, pendingOrMissing(ctx, exec, "university_requests", id, ErrUniversityRequestNotFound)
}

func (r *postgresUniversityRequestRepository) CountPending(ctx context.Context) (int, error) {
	return countPending(ctx, r.db, "university_requests")
}

// pendingOrMissing tells apart a request that does not exist from one that was already reviewed.
func pendingOrMissing(ctx context.Context, exec SQLExecutor, table string, id int, notFound error) error {
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrRequestNotPending
	}
	return notFound
}

func countPending(ctx context.Context, exec SQLExecutor, table string) (int, error) {
	var n int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE status = $1`, models.RequestStatusPending).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending %s: %w", table, err)
	}
	return n, nil
}
