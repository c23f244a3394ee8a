package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusLive, MatchStatusCompleted:
		return true
	}
	return false
}

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID *int        `json:"tournament_id,omitempty" db:"tournament_id"`
	Title        string      `json:"title" db:"title"`
	Sport        string      `json:"sport" db:"sport"`
	Team1        *string     `json:"team1" db:"team1"`
	Team2        *string     `json:"team2" db:"team2"`
	Score        *string     `json:"score,omitempty" db:"score"`
	Status       MatchStatus `json:"status" db:"status"`
	Winner       *string     `json:"winner,omitempty" db:"winner"`
	Round        *int        `json:"round,omitempty" db:"round"`
	RoundLabel   *string     `json:"round_label,omitempty" db:"round_label"`
	OrderInRound *int        `json:"order_in_round,omitempty" db:"order_in_round"`
	BracketUID   *string     `json:"bracket_uid,omitempty" db:"bracket_uid"`
	NextMatchID  *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot *int        `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// HasTeams is false while a bracket slot still waits for a previous winner.
func (m *Match) HasTeams() bool {
	return m.Team1 != nil && *m.Team1 != "" && m.Team2 != nil && *m.Team2 != ""
}

type MatchFilter struct {
	Sport        *string
	Status       *MatchStatus
	TournamentID *int
	Team         *string
}
