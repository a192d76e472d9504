package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/model"
)

// IDPrefix marks synthetic participant ids
const IDPrefix = "bot_"

// Names is the pool bots are named from, in order
var Names = []string{"BotAli", "BotVeli", "BotAyşe", "BotFatma", "BotMehmet", "BotZeynep", "BotAhmet"}

// Service creates bot participants and plays their matches
type Service struct {
	strategy Strategy
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService creates a new bot Service
func NewService(strategy Strategy, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		strategy: strategy,
		clock:    clk,
		logger:   logger.With(slog.String("component", "bot-service")),
	}
}

// Name returns the display name of the i-th bot. Once the pool is exhausted
// names repeat with a numeric suffix.
func Name(i int) string {
	name := Names[i%len(Names)]
	if lap := i / len(Names); lap > 0 {
		name = fmt.Sprintf("%s%d", name, lap+1)
	}
	return name
}

// IsBot reports whether the id belongs to a synthetic participant
func IsBot(id model.UserID) bool {
	return strings.HasPrefix(string(id), IDPrefix)
}

// CreatePlayers returns count new bot participants. Ids carry the creation
// time in unix milliseconds and the bot's index.
func (s *Service) CreatePlayers(count int) []model.TournamentPlayer {
	if count <= 0 {
		return nil
	}
	millis := s.clock.Now().UnixMilli()
	players := make([]model.TournamentPlayer, 0, count)
	for i := range count {
		players = append(players, model.TournamentPlayer{
			UserID:       model.UserID(fmt.Sprintf("%s%d_%d", IDPrefix, millis, i)),
			DisplayName:  Name(i),
			IsBot:        true,
			CurrentRound: 1,
		})
	}
	s.logger.Debug("created bots", slog.Int("count", count))
	return players
}

// MatchScore simulates a bot's result for one match
func (s *Service) MatchScore() int {
	return s.strategy.MatchScore()
}

// Interface for dependency injection
type ServiceInterface interface {
	CreatePlayers(count int) []model.TournamentPlayer
	MatchScore() int
}

var _ ServiceInterface = (*Service)(nil)
