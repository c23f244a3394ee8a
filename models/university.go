package models

import (
	"strings"
	"time"
)

// Zone группирует университеты по географии для сеток соревнований.
type Zone string

const (
	ZoneNorthCentral Zone = "North & Central"
	ZoneLondonSouth  Zone = "London & South"
)

var zones = []Zone{ZoneNorthCentral, ZoneLondonSouth}

// ParseZone accepts the canonical zone name in any letter case.
func ParseZone(s string) (Zone, bool) {
	s = strings.TrimSpace(s)
	for _, z := range zones {
		if strings.EqualFold(string(z), s) {
			return z, true
		}
	}
	return "", false
}

func Zones() []Zone {
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

type University struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Zone         Zone      `json:"zone" db:"zone"`
	ContactName  string    `json:"contact_name" db:"contact_name"`
	ContactEmail string    `json:"contact_email" db:"contact_email"`
	ContactPhone *string   `json:"contact_phone,omitempty" db:"contact_phone"`
	Sports       []string  `json:"sports" db:"sports"`
	Competing    bool      `json:"competing" db:"competing"`
	Points       int       `json:"points" db:"points"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	Players []Player `json:"players,omitempty" db:"-"`
}

// CompetesIn reports whether the university registered for the sport.
func (u *University) CompetesIn(sport string) bool {
	for _, s := range u.Sports {
		if strings.EqualFold(s, sport) {
			return true
		}
	}
	return false
}

type UniversityFilter struct {
	Zone      *Zone
	Competing *bool
	Sport     *string
	Search    string
}

type PointsUpdate struct {
	UniversityID int `json:"university_id"`
	Points       int `json:"points"`
}
