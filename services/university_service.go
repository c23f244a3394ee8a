package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/nhsf/dharmic-games/storage"
	"github.com/nhsf/dharmic-games/utils"
)

type UniversityInput struct {
	Name         string   `json:"name"`
	Zone         string   `json:"zone"`
	ContactName  string   `json:"contact_name"`
	ContactEmail string   `json:"contact_email"`
	ContactPhone *string  `json:"contact_phone"`
	Sports       []string `json:"sports"`
	Competing    *bool    `json:"competing"`
}

type UniversityService interface {
	Create(ctx context.Context, input UniversityInput) (*models.University, error)
	GetByID(ctx context.Context, id int, withPlayers bool) (*models.University, error)
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, error)
	Update(ctx context.Context, id int, input UniversityInput) (*models.University, error)
	SetCompeting(ctx context.Context, id int, competing bool) (*models.University, error)
	AdjustPoints(ctx context.Context, id int, delta int) (*models.University, error)
	SetPoints(ctx context.Context, id int, points int) (*models.University, error)
	BulkSetPoints(ctx context.Context, updates []models.PointsUpdate) error
	Delete(ctx context.Context, id int) error
	UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.University, error)
}

type universityService struct {
	universityRepo repositories.UniversityRepository
	playerRepo     repositories.PlayerRepository
	tx             repositories.Transactor
	catalogue      *sports.Catalogue
	uploader       storage.FileUploader
	leaderboard    LeaderboardService
	logger         *slog.Logger
}

func NewUniversityService(
	universityRepo repositories.UniversityRepository,
	playerRepo repositories.PlayerRepository,
	tx repositories.Transactor,
	catalogue *sports.Catalogue,
	uploader storage.FileUploader,
	leaderboard LeaderboardService,
	logger *slog.Logger,
) UniversityService {
	return &universityService{
		universityRepo: universityRepo,
		playerRepo:     playerRepo,
		tx:             tx,
		catalogue:      catalogue,
		uploader:       uploader,
		leaderboard:    leaderboard,
		logger:         logger,
	}
}

// buildUniversity validates input and returns a normalized record.
func (s *universityService) buildUniversity(input UniversityInput) (*models.University, error) {
	name := strings.TrimSpace(input.Name)
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

	u := &models.University{
		Name:         name,
		Zone:         zone,
		ContactName:  strings.TrimSpace(input.ContactName),
		ContactEmail: strings.TrimSpace(input.ContactEmail),
		ContactPhone: phone,
		Sports:       sportKeys,
		Competing:    true,
	}
	if input.Competing != nil {
		u.Competing = *input.Competing
	}
	return u, nil
}

func (s *universityService) Create(ctx context.Context, input UniversityInput) (*models.University, error) {
	u, err := s.buildUniversity(input)
	if err != nil {
		return nil, err
	}
	if err := s.universityRepo.Create(ctx, nil, u); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "University created", slog.Int("university_id", u.ID), slog.String("name", u.Name))
	if u.Competing {
		s.leaderboard.PublishUpdate(ctx)
	}
	return u, nil
}

func (s *universityService) GetByID(ctx context.Context, id int, withPlayers bool) (*models.University, error) {
	u, err := s.universityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if withPlayers {
		players, err := s.playerRepo.List(ctx, models.PlayerFilter{UniversityID: &id})
		if err != nil {
			return nil, fmt.Errorf("failed to load players for university %d: %w", id, err)
		}
		u.Players = players
	}
	populateUniversityLogoURL(u, s.uploader)
	return u, nil
}

func (s *universityService) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, error) {
	if filter.Sport != nil {
		sport, err := resolveSport(s.catalogue, *filter.Sport)
		if err != nil {
			return nil, err
		}
		filter.Sport = &sport.Key
	}
	universities, err := s.universityRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range universities {
		populateUniversityLogoURL(&universities[i], s.uploader)
	}
	return universities, nil
}

func (s *universityService) Update(ctx context.Context, id int, input UniversityInput) (*models.University, error) {
	existing, err := s.universityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	u, err := s.buildUniversity(input)
	if err != nil {
		return nil, err
	}
	u.ID = existing.ID
	u.Competing = existing.Competing
	u.Points = existing.Points
	u.LogoKey = existing.LogoKey
	u.CreatedAt = existing.CreatedAt

	if err := s.universityRepo.Update(ctx, u); err != nil {
		return nil, handleRepositoryError(err)
	}
	if input.Competing != nil && *input.Competing != existing.Competing {
		return s.SetCompeting(ctx, id, *input.Competing)
	}
	if u.Name != existing.Name && u.Competing {
		s.leaderboard.PublishUpdate(ctx)
	}
	populateUniversityLogoURL(u, s.uploader)
	return u, nil
}

func (s *universityService) SetCompeting(ctx context.Context, id int, competing bool) (*models.University, error) {
	if err := s.universityRepo.SetCompeting(ctx, id, competing); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.leaderboard.PublishUpdate(ctx)
	return s.GetByID(ctx, id, false)
}

func (s *universityService) AdjustPoints(ctx context.Context, id int, delta int) (*models.University, error) {
	points, err := s.universityRepo.AdjustPoints(ctx, id, delta)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "University points adjusted",
		slog.Int("university_id", id), slog.Int("delta", delta), slog.Int("points", points))
	s.leaderboard.PublishUpdate(ctx)
	return s.GetByID(ctx, id, false)
}

func (s *universityService) SetPoints(ctx context.Context, id int, points int) (*models.University, error) {
	if err := s.universityRepo.SetPoints(ctx, nil, id, points); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.leaderboard.PublishUpdate(ctx)
	return s.GetByID(ctx, id, false)
}

// BulkSetPoints applies all updates in one transaction; an unknown university aborts the batch.
func (s *universityService) BulkSetPoints(ctx context.Context, updates []models.PointsUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: no point updates given", ErrValidationFailed)
	}
	seen := make(map[int]struct{}, len(updates))
	for _, u := range updates {
		if u.UniversityID <= 0 {
			return fmt.Errorf("%w: invalid university_id %d", ErrValidationFailed, u.UniversityID)
		}
		if _, dup := seen[u.UniversityID]; dup {
			return fmt.Errorf("%w: university %d listed twice", ErrValidationFailed, u.UniversityID)
		}
		seen[u.UniversityID] = struct{}{}
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, u := range updates {
			if err := s.universityRepo.SetPoints(ctx, exec, u.UniversityID, u.Points); err != nil {
				return fmt.Errorf("university %d: %w", u.UniversityID, handleRepositoryError(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Bulk points update applied", slog.Int("count", len(updates)))
	s.leaderboard.PublishUpdate(ctx)
	return nil
}

func (s *universityService) Delete(ctx context.Context, id int) error {
	u, err := s.universityRepo.GetByID(ctx, id)
	if err != nil {
		return handleRepositoryError(err)
	}
	if err := s.universityRepo.Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	if u.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *u.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete university logo", slog.String("key", *u.LogoKey), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "University deleted", slog.Int("university_id", id))
	if u.Competing {
		s.leaderboard.PublishUpdate(ctx)
	}
	return nil
}

func (s *universityService) UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.University, error) {
	if s.uploader == nil {
		return nil, ErrLogoUploadDisabled
	}
	ext, err := storage.ImageExtension(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
	}
	u, err := s.universityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	key := storage.LogoKey(id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.universityRepo.UpdateLogoKey(ctx, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to clean up uploaded logo", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err)
	}
	if u.LogoKey != nil && *u.LogoKey != key {
		if err := s.uploader.Delete(ctx, *u.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete previous logo", slog.String("key", *u.LogoKey), slog.Any("error", err))
		}
	}

	u.LogoKey = &key
	populateUniversityLogoURL(u, s.uploader)
	return u, nil
}
