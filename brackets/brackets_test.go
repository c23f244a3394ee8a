package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/nhsf/dharmic-games/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teams(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Team %d", i+1)
	}
	return out
}

func TestSingleEliminationPowerOfTwo(t *testing.T) {
	g := NewSingleEliminationGenerator()
	matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{Participants: teams(8)})
	require.NoError(t, err)
	require.Len(t, matches, 7)
	assert.Equal(t, 3, TotalRounds(matches))

	// Top seeds sit on opposite halves: 1 v 8 first, 2 v 7 in the lower half.
	assert.Equal(t, "Team 1", *matches[0].Team1)
	assert.Equal(t, "Team 8", *matches[0].Team2)
	assert.Equal(t, "Team 2", *matches[2].Team1)
	assert.Equal(t, "Team 7", *matches[2].Team2)

	final := matches[len(matches)-1]
	assert.Equal(t, "R3M1", final.UID)
	assert.Equal(t, "Final", final.Label)
	require.NotNil(t, final.SourceMatch1UID)
	require.NotNil(t, final.SourceMatch2UID)
	assert.Equal(t, "R2M1", *final.SourceMatch1UID)
	assert.Equal(t, "R2M2", *final.SourceMatch2UID)
	assert.Nil(t, final.Team1)

	for _, m := range matches {
		assert.False(t, m.IsBye)
	}
}

func TestSingleEliminationByesGoToTopSeeds(t *testing.T) {
	g := NewSingleEliminationGenerator()
	matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{Participants: teams(5)})
	require.NoError(t, err)

	var byes []string
	real := 0
	for _, m := range matches {
		if m.IsBye {
			require.NotNil(t, m.ByeTeam)
			byes = append(byes, *m.ByeTeam)
			continue
		}
		real++
	}
	assert.ElementsMatch(t, []string{"Team 1", "Team 2", "Team 3"}, byes)
	// 5 teams need 4 real matches to produce a winner.
	assert.Equal(t, 4, real)

	// The semi-final containing seed 1 has it placed directly.
	var semi *BracketMatch
	for _, m := range matches {
		if m.UID == "R2M1" {
			semi = m
		}
	}
	require.NotNil(t, semi)
	require.NotNil(t, semi.Team1)
	assert.Equal(t, "Team 1", *semi.Team1)
	require.NotNil(t, semi.SourceMatch2UID)
	assert.Equal(t, "R1M2", *semi.SourceMatch2UID)
	assert.Equal(t, "Semi-finals", semi.Label)
}

func TestSingleEliminationTwoTeams(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: []string{"A", "B"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Final", matches[0].Label)
}

func TestGeneratorsRejectBadParticipants(t *testing.T) {
	for _, g := range []BracketGenerator{NewSingleEliminationGenerator(), NewRoundRobinGenerator()} {
		_, err := g.GenerateBracket(context.Background(), GenerateBracketParams{Participants: []string{"A"}})
		assert.ErrorIs(t, err, ErrNotEnoughParticipants, g.GetName())

		_, err = g.GenerateBracket(context.Background(), GenerateBracketParams{Participants: []string{"A", "a "}})
		assert.ErrorIs(t, err, ErrDuplicateParticipant, g.GetName())

		_, err = g.GenerateBracket(context.Background(), GenerateBracketParams{Participants: []string{"A", "  "}})
		assert.ErrorIs(t, err, ErrEmptyParticipant, g.GetName())
	}
}

func TestRoundRobinEveryPairOnce(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 6, 7} {
		matches, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: teams(n)})
		require.NoError(t, err)
		require.Len(t, matches, n*(n-1)/2, "n=%d", n)

		pairs := make(map[string]int)
		perDay := make(map[int]map[string]bool)
		for _, m := range matches {
			a, b := *m.Team1, *m.Team2
			if a > b {
				a, b = b, a
			}
			pairs[a+"|"+b]++

			if perDay[m.Round] == nil {
				perDay[m.Round] = make(map[string]bool)
			}
			assert.False(t, perDay[m.Round][*m.Team1], "team plays twice on matchday %d", m.Round)
			assert.False(t, perDay[m.Round][*m.Team2], "team plays twice on matchday %d", m.Round)
			perDay[m.Round][*m.Team1] = true
			perDay[m.Round][*m.Team2] = true
		}
		for k, c := range pairs {
			assert.Equal(t, 1, c, "pair %s", k)
		}
	}
}

func TestRoundRobinTwoLegsSwapsHomeAndAway(t *testing.T) {
	matches, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: teams(4), Legs: 2})
	require.NoError(t, err)
	require.Len(t, matches, 12)
	assert.Equal(t, 6, TotalRounds(matches))

	home := make(map[string]int)
	for _, m := range matches {
		home[*m.Team1+"|"+*m.Team2]++
	}
	for k, c := range home {
		assert.Equal(t, 1, c, "fixture %s repeated with same home side", k)
	}
	assert.Equal(t, "Matchday 4", matches[6].Label)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(models.FormatRoundRobin)
	require.NoError(t, err)
	assert.Equal(t, "RoundRobin", g.GetName())

	_, err = NewGenerator("swiss")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRoundLabel(t *testing.T) {
	assert.Equal(t, "Final", RoundLabel(4, 4))
	assert.Equal(t, "Semi-finals", RoundLabel(3, 4))
	assert.Equal(t, "Quarter-finals", RoundLabel(2, 4))
	assert.Equal(t, "Round of 16", RoundLabel(1, 4))
	assert.Equal(t, "Round of 32", RoundLabel(1, 5))
}

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, seedOrder(8))
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRoundRobinGenerator().GenerateBracket(ctx, GenerateBracketParams{Participants: teams(4)})
	assert.ErrorIs(t, err, context.Canceled)
}
