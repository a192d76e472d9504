package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// Sink delivers a due notification somewhere
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Scheduler plans notifications for users
type Scheduler interface {
	ScheduleOneShot(ctx context.Context, userID model.UserID, delay time.Duration, n Notification) error
	ScheduleRecurring(ctx context.Context, userID model.UserID, at DailyAt, n Notification) error
	Cancel(userID model.UserID, label string)
	CancelAll(userID model.UserID)
}

type timerKey struct {
	userID model.UserID
	label  string
}

type entry struct {
	timer clock.Timer
	due   time.Time
}

// Service schedules notifications on the injected clock.
// Nothing is scheduled for users who have not enabled notifications.
type Service struct {
	prefs  storage.PreferenceStore
	clock  clock.Clock
	sinks  []Sink
	logger *slog.Logger

	mu     sync.Mutex
	timers map[timerKey]*entry
}

var _ Scheduler = (*Service)(nil)

// New creates a notification Service delivering to the given sinks
func New(prefs storage.PreferenceStore, clk clock.Clock, logger *slog.Logger, sinks ...Sink) *Service {
	return &Service{
		prefs:  prefs,
		clock:  clk,
		sinks:  sinks,
		logger: logger.With(slog.String("component", "notification")),
		timers: make(map[timerKey]*entry),
	}
}

// Enabled reports whether the user opted in. Read failures count as opted out.
func (s *Service) Enabled(ctx context.Context, userID model.UserID) bool {
	v, err := s.prefs.GetPreference(ctx, userID, PrefEnabled)
	if err != nil {
		if !errors.Is(err, model.ErrPreferenceNotFound) {
			s.logger.Warn("failed to read notification preference",
				slog.String("user_id", string(userID)), slog.Any("error", err))
		}
		return false
	}
	return v == "true"
}

// SetEnabled stores the opt-in. Enabling schedules the daily reminder,
// disabling cancels everything pending for the user.
func (s *Service) SetEnabled(ctx context.Context, userID model.UserID, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	if err := s.prefs.SetPreference(ctx, userID, PrefEnabled, value); err != nil {
		return err
	}
	if !enabled {
		s.CancelAll(userID)
		return nil
	}
	return s.ScheduleRecurring(ctx, userID, DailyReminderAt, DailyReminder())
}

// Recover re-arms the daily reminder for every opted-in user. One-shot
// notifications are not persisted and are rescheduled by their owners.
func (s *Service) Recover(ctx context.Context) (int, error) {
	users, err := s.prefs.UsersWithPreference(ctx, PrefEnabled, "true")
	if err != nil {
		return 0, fmt.Errorf("list opted-in users: %w", err)
	}
	for _, id := range users {
		if err := s.ScheduleRecurring(ctx, id, DailyReminderAt, DailyReminder()); err != nil {
			return 0, fmt.Errorf("schedule daily reminder for %s: %w", id, err)
		}
	}
	if len(users) > 0 {
		s.logger.Info("recovered daily reminders", slog.Int("count", len(users)))
	}
	return len(users), nil
}

// ScheduleOneShot delivers n after delay, replacing any pending notification
// with the same label
func (s *Service) ScheduleOneShot(ctx context.Context, userID model.UserID, delay time.Duration, n Notification) error {
	if !s.Enabled(ctx, userID) {
		return nil
	}
	n.UserID = userID
	key := timerKey{userID, n.Label}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(key)

	e := &entry{due: s.clock.Now().Add(delay)}
	s.timers[key] = e
	e.timer = s.clock.AfterFunc(delay, func() {
		if !s.claim(key, e, true) {
			return
		}
		s.deliver(n)
	})

	s.logger.Debug("scheduled notification",
		slog.String("user_id", string(userID)),
		slog.String("label", n.Label),
		slog.Duration("delay", delay))
	return nil
}

// ScheduleRecurring delivers n every day at the given time
func (s *Service) ScheduleRecurring(ctx context.Context, userID model.UserID, at DailyAt, n Notification) error {
	if !s.Enabled(ctx, userID) {
		return nil
	}
	n.UserID = userID
	key := timerKey{userID, n.Label}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(key)

	e := &entry{}
	s.timers[key] = e
	s.armRecurringLocked(key, e, at, n)
	return nil
}

func (s *Service) armRecurringLocked(key timerKey, e *entry, at DailyAt, n Notification) {
	now := s.clock.Now()
	e.due = at.Next(now)
	e.timer = s.clock.AfterFunc(e.due.Sub(now), func() {
		if !s.claim(key, e, false) {
			return
		}
		s.mu.Lock()
		if s.timers[key] == e {
			s.armRecurringLocked(key, e, at, n)
		}
		s.mu.Unlock()
		s.deliver(n)
	})
}

// claim reports whether e is still the live entry for key.
// One-shot entries are removed as they fire.
func (s *Service) claim(key timerKey, e *entry, remove bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[key] != e {
		return false
	}
	if remove {
		delete(s.timers, key)
	}
	return true
}

// Cancel drops the pending notification with the label
func (s *Service) Cancel(userID model.UserID, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(timerKey{userID, label})
}

// CancelAll drops every pending notification for the user
func (s *Service) CancelAll(userID model.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.timers {
		if key.userID == userID {
			s.stopLocked(key)
		}
	}
}

func (s *Service) stopLocked(key timerKey) {
	if e, ok := s.timers[key]; ok {
		e.timer.Stop()
		delete(s.timers, key)
	}
}

// Pending lists the labels waiting for the user, sorted
func (s *Service) Pending(userID model.UserID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var labels []string
	for key := range s.timers {
		if key.userID == userID {
			labels = append(labels, key.label)
		}
	}
	sort.Strings(labels)
	return labels
}

// DueAt returns when the labelled notification fires
func (s *Service) DueAt(userID model.UserID, label string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[timerKey{userID, label}]
	if !ok {
		return time.Time{}, false
	}
	return e.due, true
}

// Stop cancels every pending timer
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.timers {
		s.stopLocked(key)
	}
}

// deliver fans out to every sink. Sink failures are logged and dropped.
func (s *Service) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			s.logger.Warn("failed to deliver notification",
				slog.String("user_id", string(n.UserID)),
				slog.String("label", n.Label),
				slog.Any("error", err))
		}
	}
}
