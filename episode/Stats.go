package episode

import "fmt"

// Stats holds running totals over completed episodes. Totals are never
// reset.
type Stats struct {
	OverallReward     float64
	OverallSteps      int
	CompletedEpisodes int
}

// Add adds a finished episode to the totals
func (s *Stats) Add(summary Summary) {
	s.OverallReward += summary.Return
	s.OverallSteps += summary.Steps
	s.CompletedEpisodes++
}

func (s Stats) String() string {
	return fmt.Sprintf("Reward: %.2f  Episodes: %d  Steps: %d",
		s.OverallReward, s.CompletedEpisodes, s.OverallSteps)
}
