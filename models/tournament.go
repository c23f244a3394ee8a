package models

import "time"

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatSingleElimination || f == FormatRoundRobin
}

type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Sport        string           `json:"sport" db:"sport"`
	Format       TournamentFormat `json:"format" db:"format"`
	Participants []string         `json:"participants" db:"participants"`
	Rounds       int              `json:"rounds" db:"rounds"`
	Legs         int              `json:"legs" db:"legs"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`

	Matches []Match `json:"matches,omitempty" db:"-"`
}

// Standing is one row of a derived league table.
type Standing struct {
	Rank            int    `json:"rank"`
	Team            string `json:"team"`
	Played          int    `json:"played"`
	Won             int    `json:"won"`
	Drawn           int    `json:"drawn"`
	Lost            int    `json:"lost"`
	ScoreFor        int    `json:"score_for"`
	ScoreAgainst    int    `json:"score_against"`
	ScoreDifference int    `json:"score_difference"`
	Points          int    `json:"points"`
}

// LeaderboardEntry: строка общего зачёта университетов.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UniversityID int    `json:"university_id"`
	Name         string `json:"name"`
	Zone         Zone   `json:"zone"`
	Points       int    `json:"points"`
}
