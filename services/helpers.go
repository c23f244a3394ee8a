package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/nhsf/dharmic-games/storage"
	"github.com/nhsf/dharmic-games/utils"
)

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func handleRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrUniversityNotFound):
		return ErrUniversityNotFound
	case errors.Is(err, repositories.ErrUniversityNameConflict):
		return ErrUniversityNameConflict
	case errors.Is(err, repositories.ErrUniversityInUse):
		return ErrUniversityInUse
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrPlayerUniversityInvalid):
		return ErrUniversityNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrAdminRequestNotFound),
		errors.Is(err, repositories.ErrUniversityRequestNotFound):
		return ErrRequestNotFound
	case errors.Is(err, repositories.ErrRequestNotPending):
		return ErrRequestNotPending
	case errors.Is(err, repositories.ErrAdminRequestDuplicate):
		return ErrRequestDuplicate
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrUserEmailConflict
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrNotFound
	}
	return err
}

func sportError(err error) error {
	switch {
	case errors.Is(err, sports.ErrUnknownSport):
		return fmt.Errorf("%w: %v", ErrUnknownSport, err)
	case errors.Is(err, sports.ErrInvalidScore), errors.Is(err, sports.ErrTiedScore):
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	return err
}

// resolveSport returns the catalogue key for name, so stored sports are always canonical.
func resolveSport(catalogue *sports.Catalogue, name string) (*sports.Sport, error) {
	sport, ok := catalogue.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSport, name)
	}
	return sport, nil
}

func resolveSports(catalogue *sports.Catalogue, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		sport, err := resolveSport(catalogue, name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sport.Key]; dup {
			continue
		}
		seen[sport.Key] = struct{}{}
		out = append(out, sport.Key)
	}
	return out, nil
}

func validateContact(name, email string, phone *string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: contact name is required", ErrValidationFailed)
	}
	if !utils.IsValidEmail(email) {
		return fmt.Errorf("%w: contact email is invalid", ErrValidationFailed)
	}
	if phone != nil && !utils.IsValidPhone(*phone) {
		return fmt.Errorf("%w: contact phone is invalid", ErrValidationFailed)
	}
	return nil
}

func parseZone(raw string) (models.Zone, error) {
	zone, ok := models.ParseZone(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidZone, raw)
	}
	return zone, nil
}

func populateUniversityLogoURL(u *models.University, uploader storage.FileUploader) {
	if u != nil && u.LogoKey != nil && *u.LogoKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*u.LogoKey); url != "" {
			u.LogoURL = &url
		}
	}
}

func stringPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func sameTeam(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func equalTeam(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
