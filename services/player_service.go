package services

import (
	"context"
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

type PlayerInput struct {
	Name                  string  `json:"name"`
	Email                 *string `json:"email"`
	Phone                 *string `json:"phone"`
	Sport                 string  `json:"sport"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	MedicalInfo           *string `json:"medical_info"`
}

// ImportRowError points at a rejected row: the CSV line number or the 1-based position in a JSON list.
type ImportRowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type ImportResult struct {
	Imported []models.Player  `json:"imported"`
	Errors   []ImportRowError `json:"errors"`
}

type CheckInEvent struct {
	UniversityID int        `json:"university_id"`
	PlayerIDs    []int      `json:"player_ids"`
	CheckedIn    bool       `json:"checked_in"`
	At           *time.Time `json:"at,omitempty"`
}

type PlayerService interface {
	Register(ctx context.Context, universityID int, input PlayerInput) (*models.Player, error)
	Import(ctx context.Context, universityID int, players models.PlayerList) (*ImportResult, error)
	ImportRows(ctx context.Context, universityID int, rows []ImportRow) (*ImportResult, error)
	List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error)
	GetByID(ctx context.Context, id int) (*models.Player, error)
	Update(ctx context.Context, id int, input PlayerInput) (*models.Player, error)
	Delete(ctx context.Context, id int) error
	CheckIn(ctx context.Context, id int) (*models.Player, error)
	UndoCheckIn(ctx context.Context, id int) (*models.Player, error)
	BulkCheckIn(ctx context.Context, universityID int, playerIDs []int) ([]int, error)
	CheckInSummary(ctx context.Context) ([]models.CheckInSummary, error)
}

type playerService struct {
	playerRepo     repositories.PlayerRepository
	universityRepo repositories.UniversityRepository
	tx             repositories.Transactor
	catalogue      *sports.Catalogue
	publisher      realtime.Publisher
	recorder       *metrics.Recorder
	logger         *slog.Logger
	now            func() time.Time
}

func NewPlayerService(
	playerRepo repositories.PlayerRepository,
	universityRepo repositories.UniversityRepository,
	tx repositories.Transactor,
	catalogue *sports.Catalogue,
	publisher realtime.Publisher,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		playerRepo:     playerRepo,
		universityRepo: universityRepo,
		tx:             tx,
		catalogue:      catalogue,
		publisher:      publisher,
		recorder:       recorder,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *playerService) buildPlayer(universityID int, input PlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrValidationFailed)
	}
	sport, err := resolveSport(s.catalogue, input.Sport)
	if err != nil {
		return nil, err
	}
	email := utils.TrimToNil(input.Email)
	if email != nil && !utils.IsValidEmail(*email) {
		return nil, fmt.Errorf("%w: email %q is invalid", ErrValidationFailed, *email)
	}
	phone := utils.TrimToNil(input.Phone)
	if phone != nil && !utils.IsValidPhone(*phone) {
		return nil, fmt.Errorf("%w: phone %q is invalid", ErrValidationFailed, *phone)
	}
	emergencyPhone := utils.TrimToNil(input.EmergencyContactPhone)
	if emergencyPhone != nil && !utils.IsValidPhone(*emergencyPhone) {
		return nil, fmt.Errorf("%w: emergency contact phone %q is invalid", ErrValidationFailed, *emergencyPhone)
	}

	return &models.Player{
		UniversityID:          universityID,
		Name:                  name,
		Email:                 email,
		Phone:                 phone,
		Sport:                 sport.Key,
		EmergencyContactName:  utils.TrimToNil(input.EmergencyContactName),
		EmergencyContactPhone: emergencyPhone,
		MedicalInfo:           utils.TrimToNil(input.MedicalInfo),
	}, nil
}

func (s *playerService) Register(ctx context.Context, universityID int, input PlayerInput) (*models.Player, error) {
	if _, err := s.universityRepo.GetByID(ctx, universityID); err != nil {
		return nil, handleRepositoryError(err)
	}
	p, err := s.buildPlayer(universityID, input)
	if err != nil {
		return nil, err
	}
	if err := s.playerRepo.Create(ctx, nil, p); err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}

func playerToInput(p models.Player) PlayerInput {
	return PlayerInput{
		Name:                  p.Name,
		Email:                 p.Email,
		Phone:                 p.Phone,
		Sport:                 p.Sport,
		EmergencyContactName:  p.EmergencyContactName,
		EmergencyContactPhone: p.EmergencyContactPhone,
		MedicalInfo:           p.MedicalInfo,
	}
}

// Import registers a decoded player list. Rows are numbered by their position in the list.
func (s *playerService) Import(ctx context.Context, universityID int, players models.PlayerList) (*ImportResult, error) {
	rows := make([]ImportRow, 0, len(players))
	for i, p := range players {
		rows = append(rows, ImportRow{Line: i + 1, Input: playerToInput(p)})
	}
	return s.ImportRows(ctx, universityID, rows)
}

// ImportRows validates every row, reports the bad ones and inserts the rest in a single transaction.
func (s *playerService) ImportRows(ctx context.Context, universityID int, rows []ImportRow) (*ImportResult, error) {
	if _, err := s.universityRepo.GetByID(ctx, universityID); err != nil {
		return nil, handleRepositoryError(err)
	}

	result := &ImportResult{Imported: make([]models.Player, 0, len(rows)), Errors: make([]ImportRowError, 0)}
	valid := make([]*models.Player, 0, len(rows))
	for _, row := range rows {
		if row.Err != nil {
			result.Errors = append(result.Errors, ImportRowError{Line: row.Line, Error: row.Err.Error()})
			continue
		}
		p, err := s.buildPlayer(universityID, row.Input)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Line: row.Line, Error: err.Error()})
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) == 0 {
		if len(result.Errors) == 0 {
			return nil, ErrImportEmpty
		}
		return result, nil
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, p := range valid {
			if err := s.playerRepo.Create(ctx, exec, p); err != nil {
				return handleRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import players: %w", err)
	}

	for _, p := range valid {
		result.Imported = append(result.Imported, *p)
	}
	s.logger.InfoContext(ctx, "Players imported",
		slog.Int("university_id", universityID),
		slog.Int("imported", len(result.Imported)),
		slog.Int("rejected", len(result.Errors)))
	return result, nil
}

func (s *playerService) List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error) {
	if filter.Sport != nil {
		sport, err := resolveSport(s.catalogue, *filter.Sport)
		if err != nil {
			return nil, err
		}
		filter.Sport = &sport.Key
	}
	return s.playerRepo.List(ctx, filter)
}

func (s *playerService) GetByID(ctx context.Context, id int) (*models.Player, error) {
	p, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}

func (s *playerService) Update(ctx context.Context, id int, input PlayerInput) (*models.Player, error) {
	existing, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	p, err := s.buildPlayer(existing.UniversityID, input)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.CheckedIn = existing.CheckedIn
	p.CheckedInAt = existing.CheckedInAt
	p.CreatedAt = existing.CreatedAt

	if err := s.playerRepo.Update(ctx, p); err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}

func (s *playerService) Delete(ctx context.Context, id int) error {
	return handleRepositoryError(s.playerRepo.Delete(ctx, id))
}

func (s *playerService) CheckIn(ctx context.Context, id int) (*models.Player, error) {
	now := s.now().UTC()
	p, err := s.playerRepo.SetCheckIn(ctx, id, true, &now)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.recorder.RecordCheckIns(1)
	s.publishCheckIn(CheckInEvent{UniversityID: p.UniversityID, PlayerIDs: []int{p.ID}, CheckedIn: true, At: p.CheckedInAt})
	return p, nil
}

func (s *playerService) UndoCheckIn(ctx context.Context, id int) (*models.Player, error) {
	p, err := s.playerRepo.SetCheckIn(ctx, id, false, nil)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.publishCheckIn(CheckInEvent{UniversityID: p.UniversityID, PlayerIDs: []int{p.ID}, CheckedIn: false})
	return p, nil
}

// BulkCheckIn checks in all players of a university, or only playerIDs when given.
// Players already checked in keep their original timestamp.
func (s *playerService) BulkCheckIn(ctx context.Context, universityID int, playerIDs []int) ([]int, error) {
	if _, err := s.universityRepo.GetByID(ctx, universityID); err != nil {
		return nil, handleRepositoryError(err)
	}
	now := s.now().UTC()
	ids, err := s.playerRepo.BulkCheckIn(ctx, universityID, playerIDs, now)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.recorder.RecordCheckIns(len(ids))
		s.publishCheckIn(CheckInEvent{UniversityID: universityID, PlayerIDs: ids, CheckedIn: true, At: &now})
	}
	s.logger.InfoContext(ctx, "Bulk check-in", slog.Int("university_id", universityID), slog.Int("checked_in", len(ids)))
	return ids, nil
}

func (s *playerService) CheckInSummary(ctx context.Context) ([]models.CheckInSummary, error) {
	return s.playerRepo.CheckInSummary(ctx)
}

func (s *playerService) publishCheckIn(event CheckInEvent) {
	s.publisher.Publish(realtime.TypePlayerCheckedIn, event, realtime.RoomCheckIns)
}
