package brackets

import "fmt"

// RoundLabel names a knockout round counting back from the final.
func RoundLabel(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Final"
	case 1:
		return "Semi-finals"
	case 2:
		return "Quarter-finals"
	}
	return fmt.Sprintf("Round of %d", 1<<uint(totalRounds-round+1))
}

func MatchdayLabel(round int) string {
	return fmt.Sprintf("Matchday %d", round)
}
