package brackets

import (
	"context"
	"fmt"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket schedules every pairing into matchdays using the circle method,
// so no team plays twice on the same matchday. With two legs the second half of
// the season repeats the first with home and away swapped.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants, err := NormalizeParticipants(params.Participants)
	if err != nil {
		return nil, err
	}
	legs := params.Legs
	if legs != 2 {
		legs = 1
	}

	slots := make([]*string, 0, len(participants)+1)
	for i := range participants {
		slots = append(slots, &participants[i])
	}
	if len(slots)%2 == 1 {
		slots = append(slots, nil) // выходной
	}
	n := len(slots)
	roundsPerLeg := n - 1

	matches := make([]*BracketMatch, 0, legs*len(participants)*(len(participants)-1)/2)
	for leg := 1; leg <= legs; leg++ {
		rotation := make([]*string, n)
		copy(rotation, slots)

		for r := 1; r <= roundsPerLeg; r++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			round := (leg-1)*roundsPerLeg + r
			order := 0
			for i := 0; i < n/2; i++ {
				home, away := rotation[i], rotation[n-1-i]
				if home == nil || away == nil {
					continue
				}
				if i == 0 && r%2 == 0 {
					home, away = away, home
				}
				if leg == 2 {
					home, away = away, home
				}
				order++
				matches = append(matches, &BracketMatch{
					UID:          fmt.Sprintf("MD%dM%d", round, order),
					Round:        round,
					OrderInRound: order,
					Label:        MatchdayLabel(round),
					Team1:        home,
					Team2:        away,
				})
			}
			rotate(rotation)
		}
	}

	return matches, nil
}

// rotate keeps the first slot fixed and turns the rest clockwise by one.
func rotate(slots []*string) {
	if len(slots) < 3 {
		return
	}
	last := slots[len(slots)-1]
	copy(slots[2:], slots[1:len(slots)-1])
	slots[1] = last
}
