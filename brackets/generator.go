package brackets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhsf/dharmic-games/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrDuplicateParticipant  = errors.New("participant names must be unique")
	ErrEmptyParticipant      = errors.New("participant name must not be empty")
	ErrUnsupportedFormat     = errors.New("unsupported tournament format")
)

type GenerateBracketParams struct {
	Participants []string
	// Legs is used by round robin only: 1 for a single round robin, 2 for home and away.
	Legs int
}

// BracketMatch is a generated fixture, before it has a database id.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int
	Label        string

	Team1 *string
	Team2 *string

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsBye   bool
	ByeTeam *string
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

func NewGenerator(format models.TournamentFormat) (BracketGenerator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// NormalizeParticipants trims names and rejects blanks and case-insensitive duplicates.
func NormalizeParticipants(participants []string) ([]string, error) {
	out := make([]string, 0, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, ErrEmptyParticipant
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParticipant, name)
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	if len(out) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	return out, nil
}

// TotalRounds returns the highest round number among the matches.
func TotalRounds(matches []*BracketMatch) int {
	total := 0
	for _, m := range matches {
		if m.Round > total {
			total = m.Round
		}
	}
	return total
}
