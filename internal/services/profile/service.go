package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/lock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

const (
	// DefaultDisplayName is used when an identity carries no name
	DefaultDisplayName = "Oyuncu"

	// HighScoreThreshold unlocks high_scorer for a single room
	HighScoreThreshold = 150

	// WordMasterThreshold unlocks word_master across all games
	WordMasterThreshold = 100
)

// Identity is what a sign-in path knows about a user
type Identity struct {
	UserID      model.UserID
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    model.AuthProvider
}

// Service owns user records: defaults, profile fields, stats and badges
type Service struct {
	users  storage.UserStore
	locks  *lock.Keyed
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a profile Service
func New(users storage.UserStore, locks *lock.Keyed, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		locks:  locks,
		clock:  clk,
		logger: logger.With(slog.String("component", "profile")),
	}
}

// EnsureUser returns the stored user, creating it with a full life pool
// on first sign-in. The boolean reports whether it was created.
func (s *Service) EnsureUser(ctx context.Context, id Identity) (*model.User, bool, error) {
	var result *model.User
	var created bool
	err := s.locks.WithLock(lives.UserLockKey(id.UserID), func() error {
		existing, err := s.users.GetUser(ctx, id.UserID)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return err
		}

		now := s.clock.Now()
		name := strings.TrimSpace(id.DisplayName)
		if name == "" {
			name = DefaultDisplayName
		}
		u := &model.User{
			ID:                   id.UserID,
			Email:                id.Email,
			DisplayName:          name,
			PhotoURL:             id.PhotoURL,
			Provider:             id.Provider,
			Lives:                model.MaxLives,
			LastLifeRegeneration: now,
			Badges:               []model.Badge{},
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.users.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		result = u
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("user created",
			slog.String("user_id", string(result.ID)),
			slog.String("provider", string(result.Provider)))
	}
	return result, created, nil
}

// Get returns a user by ID
func (s *Service) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateProfile changes the display fields. Empty values keep the current ones.
func (s *Service) UpdateProfile(ctx context.Context, id model.UserID, displayName, photoURL string) (*model.User, error) {
	return s.mutate(ctx, id, func(u *model.User, _ time.Time) {
		if name := strings.TrimSpace(displayName); name != "" {
			u.DisplayName = name
		}
		if photoURL != "" {
			u.PhotoURL = photoURL
		}
	})
}

// RecordGameResult folds a finished room into the user's stats
func (s *Service) RecordGameResult(ctx context.Context, id model.UserID, score int, won bool, wordsFound int) (*model.User, error) {
	return s.mutate(ctx, id, func(u *model.User, now time.Time) {
		u.WordsFound += max(wordsFound, 0)
		if won {
			u.TotalScore += max(score, 0)
			u.GamesWon++
		}
		if score >= HighScoreThreshold {
			unlock(u, model.BadgeHighScorer, now)
		}
		if u.WordsFound >= WordMasterThreshold {
			unlock(u, model.BadgeWordMaster, now)
		}
	})
}

// RecordTournamentWin counts a tournament title
func (s *Service) RecordTournamentWin(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.mutate(ctx, id, func(u *model.User, now time.Time) {
		u.TournamentsWon++
		unlock(u, model.BadgeTournamentWinner, now)
	})
}

func (s *Service) mutate(ctx context.Context, id model.UserID, fn func(u *model.User, now time.Time)) (*model.User, error) {
	var result *model.User
	err := s.locks.WithLock(lives.UserLockKey(id), func() error {
		u, err := s.users.GetUser(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		fn(u, now)
		u.UpdatedAt = now
		if err := s.users.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		result = u
		return nil
	})
	return result, err
}

// unlock adds a badge from the catalog once
func unlock(u *model.User, id model.BadgeID, now time.Time) {
	if u.HasBadge(id) {
		return
	}
	b := model.BadgeCatalog[id]
	b.UnlockedAt = now
	u.Badges = append(u.Badges, b)
}

// ServiceInterface is consumed by the room and tournament managers
type ServiceInterface interface {
	RecordGameResult(ctx context.Context, id model.UserID, score int, won bool, wordsFound int) (*model.User, error)
	RecordTournamentWin(ctx context.Context, id model.UserID) (*model.User, error)
}

var _ ServiceInterface = (*Service)(nil)
