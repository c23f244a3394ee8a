// Package sports holds the catalogue of sports and the per-sport score rules.
package sports

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sports.yaml
var defaultCatalogue []byte

var (
	ErrUnknownSport = errors.New("unknown sport")
	ErrInvalidScore = errors.New("score does not match the format for this sport")
	ErrTiedScore    = errors.New("score is tied but this sport does not allow draws")
)

type ScoreKind string

const (
	ScoreKindGoals ScoreKind = "goals"
	ScoreKindSets  ScoreKind = "sets"
)

type PointsTable struct {
	Win  int `yaml:"win" json:"win"`
	Draw int `yaml:"draw" json:"draw"`
	Loss int `yaml:"loss" json:"loss"`
}

type Sport struct {
	Key          string      `yaml:"key" json:"key"`
	Name         string      `yaml:"name" json:"name"`
	TeamBased    bool        `yaml:"team_based" json:"team_based"`
	ScoreKind    ScoreKind   `yaml:"score_kind" json:"score_kind"`
	ScorePattern string      `yaml:"score_pattern" json:"score_pattern"`
	DrawAllowed  bool        `yaml:"draw_allowed" json:"draw_allowed"`
	Points       PointsTable `yaml:"points" json:"points"`

	re *regexp.Regexp
}

// Result is a parsed score from the point of view of team1 (Home) and team2 (Away).
// For set sports the values are sets won.
type Result struct {
	Home int
	Away int
}

type Catalogue struct {
	byKey   map[string]*Sport
	ordered []*Sport
}

// Load reads the catalogue from path, or the built-in one when path is empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Parse(defaultCatalogue)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sports catalogue %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in catalogue. It panics only if the embedded file is broken.
func Default() *Catalogue {
	c, err := Parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("embedded sports catalogue is invalid: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalogue, error) {
	var doc struct {
		Sports []*Sport `yaml:"sports"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sports catalogue: %w", err)
	}
	if len(doc.Sports) == 0 {
		return nil, errors.New("sports catalogue is empty")
	}

	c := &Catalogue{byKey: make(map[string]*Sport, len(doc.Sports))}
	for _, s := range doc.Sports {
		s.Key = normalizeKey(s.Key)
		if s.Key == "" || s.Name == "" {
			return nil, fmt.Errorf("sport entry is missing key or name: %+v", *s)
		}
		if _, dup := c.byKey[s.Key]; dup {
			return nil, fmt.Errorf("duplicate sport key %q", s.Key)
		}
		if s.ScoreKind != ScoreKindGoals && s.ScoreKind != ScoreKindSets {
			return nil, fmt.Errorf("sport %q: unsupported score_kind %q", s.Key, s.ScoreKind)
		}
		re, err := regexp.Compile(s.ScorePattern)
		if err != nil {
			return nil, fmt.Errorf("sport %q: invalid score_pattern: %w", s.Key, err)
		}
		s.re = re
		c.byKey[s.Key] = s
		c.ordered = append(c.ordered, s)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Name < c.ordered[j].Name })
	return c, nil
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// Get looks a sport up by key or display name, ignoring case.
func (c *Catalogue) Get(name string) (*Sport, bool) {
	s, ok := c.byKey[normalizeKey(name)]
	return s, ok
}

func (c *Catalogue) List() []Sport {
	out := make([]Sport, 0, len(c.ordered))
	for _, s := range c.ordered {
		out = append(out, *s)
	}
	return out
}

func (c *Catalogue) ValidateScore(sport, score string) error {
	s, ok := c.Get(sport)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSport, sport)
	}
	return s.ValidateScore(score)
}

func (s *Sport) ValidateScore(score string) error {
	if !s.re.MatchString(score) {
		return fmt.Errorf("%w (%s): %q", ErrInvalidScore, s.Name, score)
	}
	if s.ScoreKind == ScoreKindSets {
		for _, set := range strings.Split(score, ",") {
			a, b, err := splitPair(set)
			if err != nil {
				return fmt.Errorf("%w (%s): %q", ErrInvalidScore, s.Name, score)
			}
			if a == b {
				return fmt.Errorf("%w (%s): set %q cannot be level", ErrInvalidScore, s.Name, strings.TrimSpace(set))
			}
		}
	}
	return nil
}

// Result parses a validated score.
func (s *Sport) Result(score string) (Result, error) {
	if err := s.ValidateScore(score); err != nil {
		return Result{}, err
	}
	if s.ScoreKind == ScoreKindGoals {
		a, b, err := splitPair(score)
		if err != nil {
			return Result{}, fmt.Errorf("%w (%s): %q", ErrInvalidScore, s.Name, score)
		}
		return Result{Home: a, Away: b}, nil
	}

	var r Result
	for _, set := range strings.Split(score, ",") {
		a, b, _ := splitPair(set)
		if a > b {
			r.Home++
		} else {
			r.Away++
		}
	}
	return r, nil
}

// Winner returns team1 or team2 according to the score, or "" for an allowed draw.
func (s *Sport) Winner(team1, team2, score string) (string, error) {
	r, err := s.Result(score)
	if err != nil {
		return "", err
	}
	switch {
	case r.Home > r.Away:
		return team1, nil
	case r.Away > r.Home:
		return team2, nil
	case s.DrawAllowed:
		return "", nil
	default:
		return "", ErrTiedScore
	}
}

func splitPair(s string) (int, int, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected a-b, got %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
