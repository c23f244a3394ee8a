package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/nhsf/dharmic-games/utils"
)

type AdminRequestInput struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	University *string `json:"university"`
	Password   string  `json:"password"`
}

type UniversityRequestInput struct {
	UniversityName string   `json:"university_name"`
	Zone           string   `json:"zone"`
	ContactName    string   `json:"contact_name"`
	ContactEmail   string   `json:"contact_email"`
	ContactPhone   *string  `json:"contact_phone"`
	Sports         []string `json:"sports"`
}

type RequestService interface {
	CreateAdminRequest(ctx context.Context, input AdminRequestInput) (*models.AdminRequest, error)
	ListAdminRequests(ctx context.Context, status *models.RequestStatus) ([]models.AdminRequest, error)
	ApproveAdminRequest(ctx context.Context, id int, reviewerID int) (*models.AdminRequest, error)
	RejectAdminRequest(ctx context.Context, id int, reviewerID int, reason *string) (*models.AdminRequest, error)

	CreateUniversityRequest(ctx context.Context, input UniversityRequestInput) (*models.UniversityRequest, error)
	ListUniversityRequests(ctx context.Context, status *models.RequestStatus) ([]models.UniversityRequest, error)
	ApproveUniversityRequest(ctx context.Context, id int, reviewerID int) (*models.UniversityRequest, error)
	RejectUniversityRequest(ctx context.Context, id int, reviewerID int, reason *string) (*models.UniversityRequest, error)
}

type requestService struct {
	adminRequestRepo      repositories.AdminRequestRepository
	universityRequestRepo repositories.UniversityRequestRepository
	userRepo              repositories.UserRepository
	universityRepo        repositories.UniversityRepository
	tx                    repositories.Transactor
	catalogue             *sports.Catalogue
	notifier              Notifier
	leaderboard           LeaderboardService
	logger                *slog.Logger
	now                   func() time.Time
}

func NewRequestService(
	adminRequestRepo repositories.AdminRequestRepository,
	universityRequestRepo repositories.UniversityRequestRepository,
	userRepo repositories.UserRepository,
	universityRepo repositories.UniversityRepository,
	tx repositories.Transactor,
	catalogue *sports.Catalogue,
	notifier Notifier,
	leaderboard LeaderboardService,
	logger *slog.Logger,
) RequestService {
	return &requestService{
		adminRequestRepo:      adminRequestRepo,
		universityRequestRepo: universityRequestRepo,
		userRepo:              userRepo,
		universityRepo:        universityRepo,
		tx:                    tx,
		catalogue:             catalogue,
		notifier:              notifier,
		leaderboard:           leaderboard,
		logger:                logger,
		now:                   time.Now,
	}
}

// --- Admin requests ---

func (s *requestService) CreateAdminRequest(ctx context.Context, input AdminRequestInput) (*models.AdminRequest, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: email is invalid", ErrValidationFailed)
	}
	if len(input.Password) < utils.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserEmailConflict
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	req := &models.AdminRequest{
		Name:         name,
		Email:        email,
		University:   utils.TrimToNil(input.University),
		PasswordHash: hash,
		Status:       models.RequestStatusPending,
	}
	if err := s.adminRequestRepo.Create(ctx, req); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Admin request submitted", slog.Int("request_id", req.ID))
	return req, nil
}

func (s *requestService) ListAdminRequests(ctx context.Context, status *models.RequestStatus) ([]models.AdminRequest, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRequestStatus, *status)
	}
	return s.adminRequestRepo.List(ctx, status)
}

// ApproveAdminRequest marks the request approved and creates the admin account from the stored hash.
func (s *requestService) ApproveAdminRequest(ctx context.Context, id int, reviewerID int) (*models.AdminRequest, error) {
	var reviewed *models.AdminRequest
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		req, err := s.adminRequestRepo.Review(ctx, exec, id, s.review(models.RequestStatusApproved, reviewerID, nil))
		if err != nil {
			return handleRepositoryError(err)
		}
		user := &models.User{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: req.PasswordHash,
			Role:         models.RoleAdmin,
		}
		if err := s.userRepo.Create(ctx, exec, user); err != nil {
			return handleRepositoryError(err)
		}
		reviewed = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Admin request approved", slog.Int("request_id", id), slog.Int("reviewer_id", reviewerID))
	s.notifyAdmin(ctx, reviewed)
	return reviewed, nil
}

func (s *requestService) RejectAdminRequest(ctx context.Context, id int, reviewerID int, reason *string) (*models.AdminRequest, error) {
	req, err := s.adminRequestRepo.Review(ctx, nil, id, s.review(models.RequestStatusRejected, reviewerID, reason))
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Admin request rejected", slog.Int("request_id", id), slog.Int("reviewer_id", reviewerID))
	s.notifyAdmin(ctx, req)
	return req, nil
}

// --- University requests ---

func (s *requestService) CreateUniversityRequest(ctx context.Context, input UniversityRequestInput) (*models.UniversityRequest, error) {
	name := strings.TrimSpace(input.UniversityName)
	if name == "" {
		return nil, fmt.Errorf("%w: university name is required", ErrValidationFailed)
	}
	zone, err := parseZone(input.Zone)
	if err != nil {
		return nil, err
	}
	phone := utils.TrimToNil(input.ContactPhone)
	if err := validateContact(input.ContactName, input.ContactEmail, phone); err != nil {
		return nil, err
	}
	sportKeys, err := resolveSports(s.catalogue, input.Sports)
	if err != nil {
		return nil, err
	}

	req := &models.UniversityRequest{
		UniversityName: name,
		Zone:           zone,
		ContactName:    strings.TrimSpace(input.ContactName),
		ContactEmail:   strings.TrimSpace(input.ContactEmail),
		ContactPhone:   phone,
		Sports:         sportKeys,
		Status:         models.RequestStatusPending,
	}
	if err := s.universityRequestRepo.Create(ctx, req); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "University request submitted", slog.Int("request_id", req.ID), slog.String("university", name))
	return req, nil
}

func (s *requestService) ListUniversityRequests(ctx context.Context, status *models.RequestStatus) ([]models.UniversityRequest, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRequestStatus, *status)
	}
	return s.universityRequestRepo.List(ctx, status)
}

// ApproveUniversityRequest creates the university and links it to the request in one transaction.
func (s *requestService) ApproveUniversityRequest(ctx context.Context, id int, reviewerID int) (*models.UniversityRequest, error) {
	pending, err := s.universityRequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if pending.Status != models.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	var reviewed *models.UniversityRequest
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		u := &models.University{
			Name:         pending.UniversityName,
			Zone:         pending.Zone,
			ContactName:  pending.ContactName,
			ContactEmail: pending.ContactEmail,
			ContactPhone: pending.ContactPhone,
			Sports:       pending.Sports,
			Competing:    true,
		}
		if err := s.universityRepo.Create(ctx, exec, u); err != nil {
			return handleRepositoryError(err)
		}
		req, err := s.universityRequestRepo.Review(ctx, exec, id, s.review(models.RequestStatusApproved, reviewerID, nil), &u.ID)
		if err != nil {
			return handleRepositoryError(err)
		}
		reviewed = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "University request approved",
		slog.Int("request_id", id), slog.Int("university_id", *reviewed.UniversityID))
	s.leaderboard.PublishUpdate(ctx)
	s.notifyUniversity(ctx, reviewed)
	return reviewed, nil
}

func (s *requestService) RejectUniversityRequest(ctx context.Context, id int, reviewerID int, reason *string) (*models.UniversityRequest, error) {
	req, err := s.universityRequestRepo.Review(ctx, nil, id, s.review(models.RequestStatusRejected, reviewerID, reason), nil)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "University request rejected", slog.Int("request_id", id), slog.Int("reviewer_id", reviewerID))
	s.notifyUniversity(ctx, req)
	return req, nil
}

func (s *requestService) review(status models.RequestStatus, reviewerID int, reason *string) models.Review {
	return models.Review{
		Status:     status,
		ReviewerID: reviewerID,
		Reason:     utils.TrimToNil(reason),
		At:         s.now().UTC(),
	}
}

// Notification failures are logged only; the review is already committed.
func (s *requestService) notifyAdmin(ctx context.Context, req *models.AdminRequest) {
	if err := s.notifier.AdminRequestReviewed(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "Failed to send admin request notification", slog.Int("request_id", req.ID), slog.Any("error", err))
	}
}

func (s *requestService) notifyUniversity(ctx context.Context, req *models.UniversityRequest) {
	if err := s.notifier.UniversityRequestReviewed(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "Failed to send university request notification", slog.Int("request_id", req.ID), slog.Any("error", err))
	}
}
