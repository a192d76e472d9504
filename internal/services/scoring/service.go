package scoring

import (
	"fmt"
	"unicode/utf8"

	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/lexicon"
)

// MinWordLength is the shortest word that can score
const MinWordLength = 3

// Service validates and scores submitted words
type Service struct {
	lexicon lexicon.ServiceInterface
}

// New creates a new ScoringService
func New(lexicon lexicon.ServiceInterface) *Service {
	return &Service{
		lexicon: lexicon,
	}
}

// PointsForLength maps a word length in letters to its points
func PointsForLength(n int) int {
	switch {
	case n < MinWordLength:
		return 0
	case n == 3:
		return 1
	case n == 4:
		return 2
	case n == 5:
		return 4
	case n == 6:
		return 6
	default:
		return 10
	}
}

// Score validates a raw submission. Length is counted in letters, not bytes.
func (s *Service) Score(raw string) model.WordValidation {
	word := lexicon.Normalize(raw)
	result := model.WordValidation{Word: word}

	n := utf8.RuneCountInString(word)
	if n < MinWordLength {
		return result
	}
	if !s.lexicon.Contains(word) {
		return result
	}

	result.IsValid = true
	result.Points = PointsForLength(n)
	result.Definition = fmt.Sprintf("%s geçerli bir Türkçe kelimedir.", word)
	return result
}

// DetermineWinner returns the player with the strictly highest score,
// or nil if the top score is shared
func (s *Service) DetermineWinner(players []model.RoomPlayer) *model.UserID {
	if len(players) == 0 {
		return nil
	}

	best := 0
	for i := range players {
		if players[i].Score > players[best].Score {
			best = i
		}
	}

	for i := range players {
		if i != best && players[i].Score == players[best].Score {
			return nil // Tie
		}
	}

	winner := players[best].UserID
	return &winner
}

// Interface for dependency injection
type ServiceInterface interface {
	Score(raw string) model.WordValidation
	DetermineWinner(players []model.RoomPlayer) *model.UserID
}

var _ ServiceInterface = (*Service)(nil)
