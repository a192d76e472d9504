package lives

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/lock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// Preference keys for soft counters
const (
	PrefAdReward          = "ad_reward"
	prefGamesPlayedPrefix = "games_played:"
)

// DailyLimit is the per-day play budget of a user
type DailyLimit struct {
	WithinLimit bool `json:"withinLimit"`
	Played      int  `json:"played"`
	Max         int  `json:"max"`
}

// Status is a snapshot of a user's life pool
type Status struct {
	Lives        int           `json:"lives"`
	MaxLives     int           `json:"maxLives"`
	NextLifeIn   time.Duration `json:"-"`
	FullIn       time.Duration `json:"-"`
	PremiumUntil *time.Time    `json:"premiumUntil,omitempty"`
	Eligibility  Eligibility   `json:"eligibility"`
	Daily        DailyLimit    `json:"daily"`
}

// Service applies the ledger to stored users. Every mutation holds the user's lock.
type Service struct {
	users    storage.UserStore
	prefs    storage.PreferenceStore
	locks    *lock.Keyed
	clock    clock.Clock
	notifier notification.Scheduler
	emitter  *feed.Emitter
	logger   *slog.Logger
}

// New creates a lives Service
func New(
	users storage.UserStore,
	prefs storage.PreferenceStore,
	locks *lock.Keyed,
	clk clock.Clock,
	notifier notification.Scheduler,
	emitter *feed.Emitter,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		prefs:    prefs,
		locks:    locks,
		clock:    clk,
		notifier: notifier,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "lives")),
	}
}

// UserLockKey is the lock shared by every writer of a user's record
func UserLockKey(id model.UserID) string {
	return lock.Key("user", string(id))
}

// withUser loads the user under lock, applies regeneration, and saves
// when fn or regeneration changed anything
func (s *Service) withUser(ctx context.Context, userID model.UserID, fn func(u *model.User, now time.Time) error) (model.User, bool, error) {
	var result model.User
	var changed bool
	err := s.locks.WithLock(UserLockKey(userID), func() error {
		var err error
		result, changed, err = s.applyLocked(ctx, userID, fn)
		return err
	})
	return result, changed, err
}

// applyLocked is withUser for callers already holding the user's lock
func (s *Service) applyLocked(ctx context.Context, userID model.UserID, fn func(u *model.User, now time.Time) error) (model.User, bool, error) {
	stored, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, false, err
	}
	now := s.clock.Now()
	before := *stored
	u := Regenerate(*stored, now)
	if fn != nil {
		if err := fn(&u, now); err != nil {
			return model.User{}, false, err
		}
	}
	changed := u.Lives != before.Lives || !u.LastLifeRegeneration.Equal(before.LastLifeRegeneration)
	if changed {
		u.UpdatedAt = now
		if err := s.users.SaveUser(ctx, &u); err != nil {
			return model.User{}, false, fmt.Errorf("save user: %w", err)
		}
	}
	return u, changed, nil
}

// Refresh applies pending regeneration and announces changes
func (s *Service) Refresh(ctx context.Context, userID model.UserID) (model.User, error) {
	u, changed, err := s.withUser(ctx, userID, nil)
	if err != nil {
		return model.User{}, err
	}
	if changed {
		s.announce(ctx, u)
	}
	return u, nil
}

// Status refreshes and summarizes the user's pool
func (s *Service) Status(ctx context.Context, userID model.UserID) (*Status, error) {
	u, err := s.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	daily, err := s.CheckDailyLimit(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return &Status{
		Lives:        u.Lives,
		MaxLives:     MaxLives,
		NextLifeIn:   TimeUntilNextLife(u, now),
		FullIn:       TimeUntilFull(u, now),
		PremiumUntil: u.PremiumUntil,
		Eligibility:  s.eligibility(u, now, daily),
		Daily:        daily,
	}, nil
}

// Authorize reports whether the user may start a game right now
func (s *Service) Authorize(ctx context.Context, userID model.UserID) (Eligibility, error) {
	u, err := s.Refresh(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	now := s.clock.Now()
	daily, err := s.CheckDailyLimit(ctx, userID, now)
	if err != nil {
		return Eligibility{}, err
	}
	return s.eligibility(u, now, daily), nil
}

// RequirePlayable turns a refusal into a *model.PlayBlockedError
func (s *Service) RequirePlayable(ctx context.Context, userID model.UserID) error {
	e, err := s.Authorize(ctx, userID)
	if err != nil {
		return err
	}
	if !e.Allowed {
		return &model.PlayBlockedError{Reason: e.Reason}
	}
	return nil
}

func (s *Service) eligibility(u model.User, now time.Time, daily DailyLimit) Eligibility {
	e := CanPlay(u, now)
	if e.Allowed && !daily.WithinLimit {
		return Eligibility{Reason: ReasonDailyLimit}
	}
	return e
}

// ConsumeForGame charges the entry fee of one game. Premium users play free.
// The daily count is read and bumped under the same lock as the charge.
func (s *Service) ConsumeForGame(ctx context.Context, userID model.UserID) (model.User, error) {
	var u model.User
	err := s.locks.WithLock(UserLockKey(userID), func() error {
		today := s.clock.Now()
		daily, err := s.CheckDailyLimit(ctx, userID, today)
		if err != nil {
			return err
		}
		u, _, err = s.applyLocked(ctx, userID, func(u *model.User, now time.Time) error {
			if e := s.eligibility(*u, now, daily); !e.Allowed {
				return &model.PlayBlockedError{Reason: e.Reason}
			}
			if !u.HasPremium(now) {
				*u = Consume(*u, now)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.addToCounter(ctx, userID, dailyKey(today), 1)
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	s.scheduleFull(ctx, u)
	s.announce(ctx, u)
	return u, nil
}

// RefundGame reverses ConsumeForGame for a game that never started
func (s *Service) RefundGame(ctx context.Context, userID model.UserID) (model.User, error) {
	var u model.User
	err := s.locks.WithLock(UserLockKey(userID), func() error {
		var err error
		u, _, err = s.applyLocked(ctx, userID, func(u *model.User, now time.Time) error {
			if !u.HasPremium(now) {
				*u = AddLife(*u, model.LifeSourceReward)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.addToCounter(ctx, userID, dailyKey(s.clock.Now()), -1)
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("game refunded", slog.String("user_id", string(userID)), slog.Int("lives", u.Lives))
	s.scheduleFull(ctx, u)
	s.announce(ctx, u)
	return u, nil
}

// AddLife grants a life from an external source. Ad rewards are also tallied.
func (s *Service) AddLife(ctx context.Context, userID model.UserID, source model.LifeSource) (model.User, error) {
	if !source.Valid() {
		return model.User{}, model.ErrInvalidLifeSource
	}
	u, _, err := s.withUser(ctx, userID, func(u *model.User, now time.Time) error {
		*u = AddLife(*u, source)
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	if source == model.LifeSourceAd {
		s.tallyAdReward(ctx, userID)
	}
	s.scheduleFull(ctx, u)
	s.announce(ctx, u)
	return u, nil
}

// RewardAd credits the life earned by watching an ad
func (s *Service) RewardAd(ctx context.Context, userID model.UserID) (model.User, error) {
	return s.AddLife(ctx, userID, model.LifeSourceAd)
}

// AdRewardCount returns how many ads the user has been rewarded for
func (s *Service) AdRewardCount(ctx context.Context, userID model.UserID) int {
	return s.readCounter(ctx, userID, PrefAdReward)
}

// ClearAdRewards resets the ad tally
func (s *Service) ClearAdRewards(ctx context.Context, userID model.UserID) {
	if err := s.prefs.RemovePreference(ctx, userID, PrefAdReward); err != nil {
		s.logger.Warn("failed to clear ad rewards", slog.String("user_id", string(userID)), slog.Any("error", err))
	}
}

// CheckDailyLimit counts games started on today's calendar day
func (s *Service) CheckDailyLimit(ctx context.Context, userID model.UserID, today time.Time) (DailyLimit, error) {
	played := 0
	v, err := s.prefs.GetPreference(ctx, userID, dailyKey(today))
	switch {
	case errors.Is(err, model.ErrPreferenceNotFound):
	case err != nil:
		return DailyLimit{}, err
	default:
		played, _ = strconv.Atoi(v)
	}
	return DailyLimit{
		WithinLimit: played < DailyGameLimit,
		Played:      played,
		Max:         DailyGameLimit,
	}, nil
}

func dailyKey(day time.Time) string {
	return prefGamesPlayedPrefix + day.Format(time.DateOnly)
}

func (s *Service) tallyAdReward(ctx context.Context, userID model.UserID) {
	_ = s.locks.WithLock(UserLockKey(userID), func() error {
		s.addToCounter(ctx, userID, PrefAdReward, 1)
		return nil
	})
}

// addToCounter moves a soft counter by delta, never below zero. Caller holds
// the user's lock. Failures are logged; counters never block play.
func (s *Service) addToCounter(ctx context.Context, userID model.UserID, key string, delta int) {
	n := max(s.readCounter(ctx, userID, key)+delta, 0)
	if err := s.prefs.SetPreference(ctx, userID, key, strconv.Itoa(n)); err != nil {
		s.logger.Warn("failed to update counter",
			slog.String("user_id", string(userID)),
			slog.String("key", key),
			slog.Any("error", err))
	}
}

func (s *Service) readCounter(ctx context.Context, userID model.UserID, key string) int {
	v, err := s.prefs.GetPreference(ctx, userID, key)
	if err != nil {
		if !errors.Is(err, model.ErrPreferenceNotFound) {
			s.logger.Warn("failed to read counter", slog.String("key", key), slog.Any("error", err))
		}
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

// scheduleFull keeps the lives-full notification in step with the pool
func (s *Service) scheduleFull(ctx context.Context, u model.User) {
	if u.Lives >= MaxLives {
		s.notifier.Cancel(u.ID, notification.LabelLives)
		return
	}
	delay := TimeUntilFull(u, s.clock.Now())
	if err := s.notifier.ScheduleOneShot(ctx, u.ID, delay, notification.LivesFull()); err != nil {
		s.logger.Warn("failed to schedule lives notification", slog.String("user_id", string(u.ID)), slog.Any("error", err))
	}
}

func (s *Service) announce(ctx context.Context, u model.User) {
	now := s.clock.Now()
	s.emitter.Emit(ctx, model.UserTopic(u.ID), model.EventLivesChanged, model.LivesChangedPayload{
		Lives:             u.Lives,
		NextLifeInSeconds: int64(TimeUntilNextLife(u, now).Seconds()),
		FullInSeconds:     int64(TimeUntilFull(u, now).Seconds()),
	})
}

// ServiceInterface is consumed by the room and tournament managers
type ServiceInterface interface {
	RequirePlayable(ctx context.Context, userID model.UserID) error
	ConsumeForGame(ctx context.Context, userID model.UserID) (model.User, error)
	RefundGame(ctx context.Context, userID model.UserID) (model.User, error)
}

var _ ServiceInterface = (*Service)(nil)
