package brackets

import (
	"context"
	"fmt"
	"sort"
)

type node struct {
	team           *string
	sourceMatchUID *string
	isBye          bool
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a knockout draw. Participants are treated as seeds in the
// order given; byes go to the top seeds and never meet each other.
// Bye matches are returned with IsBye set and are not meant to be stored: their
// team is already placed in the round-two match.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants, err := NormalizeParticipants(params.Participants)
	if err != nil {
		return nil, err
	}
	n := len(participants)

	numRounds := 0
	for (1 << uint(numRounds)) < n {
		numRounds++
	}
	size := 1 << uint(numRounds)

	currentRoundNodes := make([]*node, 0, size)
	for _, seed := range seedOrder(size) {
		if seed > n {
			currentRoundNodes = append(currentRoundNodes, &node{isBye: true})
			continue
		}
		team := participants[seed-1]
		currentRoundNodes = append(currentRoundNodes, &node{team: &team})
	}

	matches := make([]*BracketMatch, 0, size-1)
	for r := 1; r <= numRounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)
		label := RoundLabel(r, numRounds)

		for i := 0; i+1 < len(currentRoundNodes); i += 2 {
			n1, n2 := currentRoundNodes[i], currentRoundNodes[i+1]
			uid := fmt.Sprintf("R%dM%d", r, i/2+1)

			bm := &BracketMatch{
				UID:          uid,
				Round:        r,
				OrderInRound: i/2 + 1,
				Label:        label,
			}

			switch {
			case n1.isBye && n2.isBye:
				return nil, fmt.Errorf("internal error: two byes met in match %s", uid)
			case n1.isBye || n2.isBye:
				advancing := n1
				if n1.isBye {
					advancing = n2
				}
				bm.IsBye = true
				bm.ByeTeam = advancing.team
				bm.Team1 = advancing.team
				nextRoundNodes = append(nextRoundNodes, &node{team: advancing.team})
			default:
				bm.Team1 = n1.team
				bm.Team2 = n2.team
				bm.SourceMatch1UID = n1.sourceMatchUID
				bm.SourceMatch2UID = n2.sourceMatchUID
				matchUID := uid
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &matchUID})
			}

			matches = append(matches, bm)
		}
		currentRoundNodes = nextRoundNodes
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})

	return matches, nil
}

// seedOrder returns bracket positions for seeds 1..size so that seed 1 and 2
// can only meet in the final, e.g. size 8 -> 1 8 4 5 2 7 3 6.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		sum := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, sum-s)
		}
		order = next
	}
	return order
}
