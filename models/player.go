package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Player struct {
	ID                    int        `json:"id" db:"id"`
	UniversityID          int        `json:"university_id" db:"university_id"`
	Name                  string     `json:"name" db:"name"`
	Email                 *string    `json:"email,omitempty" db:"email"`
	Phone                 *string    `json:"phone,omitempty" db:"phone"`
	Sport                 string     `json:"sport" db:"sport"`
	EmergencyContactName  *string    `json:"emergency_contact_name,omitempty" db:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone,omitempty" db:"emergency_contact_phone"`
	MedicalInfo           *string    `json:"medical_info,omitempty" db:"medical_info"`
	CheckedIn             bool       `json:"checked_in" db:"checked_in"`
	CheckedInAt           *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}

type PlayerFilter struct {
	UniversityID *int
	Sport        *string
	CheckedIn    *bool
	Search       string
}

// PlayerList decodes either a JSON array of players or an object keyed by
// arbitrary ids. Keyed objects are flattened in natural key order, so "p2"
// comes before "p10".
type PlayerList []Player

func (l *PlayerList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = PlayerList{}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var players []Player
		if err := json.Unmarshal(trimmed, &players); err != nil {
			return err
		}
		*l = players
		return nil
	case '{':
		var keyed map[string]Player
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return err
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
		players := make([]Player, 0, len(keys))
		for _, k := range keys {
			players = append(players, keyed[k])
		}
		*l = players
		return nil
	default:
		return fmt.Errorf("players must be an array or an object, got %q", trimmed[0])
	}
}

// naturalLess compares digit runs by numeric value and everything else byte by byte.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			si, sj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[si:i], "0")
			nb := strings.TrimLeft(b[sj:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i++
		j++
	}
	if len(a)-i != len(b)-j {
		return len(a)-i < len(b)-j
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// CheckInSummary: сводка по регистрации игроков одного университета.
type CheckInSummary struct {
	UniversityID   int    `json:"university_id"`
	UniversityName string `json:"university_name"`
	Zone           Zone   `json:"zone"`
	Total          int    `json:"total"`
	CheckedIn      int    `json:"checked_in"`
}
