package bot

import (
	"github.com/mcoot/kelimeoyunu/internal/dependencies/random"
)

const (
	// MinMatchScore is the floor of a simulated bot score
	MinMatchScore = 20
	// MatchScoreSpread is the number of distinct scores above the floor
	MatchScoreSpread = 61
)

// RandomStrategy scores uniformly in [MinMatchScore, MinMatchScore+MatchScoreSpread)
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// MatchScore draws a score between 20 and 80
func (s *RandomStrategy) MatchScore() int {
	return MinMatchScore + s.random.Intn(MatchScoreSpread)
}
