package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/dependencies/random"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/lock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/bot"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

const matchmakingLock = "matchmaking:tournament"

func tournamentLockKey(id model.TournamentID) string {
	return lock.Key("tournament", string(id))
}

// Manager runs tournaments: waiting -> in-progress -> completed, or
// waiting -> cancelled when the host disbands
type Manager struct {
	store    storage.GameStore
	bots     bot.ServiceInterface
	lives    lives.ServiceInterface
	profiles profile.ServiceInterface
	notifier notification.Scheduler
	locks    *lock.Keyed
	clock    clock.Clock
	random   random.Random
	emitter  *feed.Emitter
	logger   *slog.Logger

	timersMu sync.Mutex
	timers   map[model.TournamentID]clock.Timer
}

// Dependencies groups the collaborators of a Manager
type Dependencies struct {
	Store    storage.GameStore
	Bots     bot.ServiceInterface
	Lives    lives.ServiceInterface
	Profiles profile.ServiceInterface
	Notifier notification.Scheduler
	Locks    *lock.Keyed
	Clock    clock.Clock
	Random   random.Random
	Emitter  *feed.Emitter
	Logger   *slog.Logger
}

// NewManager creates a tournament Manager
func NewManager(deps Dependencies) *Manager {
	return &Manager{
		store:    deps.Store,
		bots:     deps.Bots,
		lives:    deps.Lives,
		profiles: deps.Profiles,
		notifier: deps.Notifier,
		locks:    deps.Locks,
		clock:    deps.Clock,
		random:   deps.Random,
		emitter:  deps.Emitter,
		logger:   deps.Logger.With(slog.String("component", "tournament")),
		timers:   make(map[model.TournamentID]clock.Timer),
	}
}

// effects are applied once the tournament has been saved
type effects struct {
	events   []pendingEvent
	started  bool
	champion *model.UserID
}

type pendingEvent struct {
	eventType model.EventType
	payload   any
}

func (e *effects) emit(t model.EventType, payload any) {
	e.events = append(e.events, pendingEvent{t, payload})
}

func entrant(p model.TournamentPlayer) model.TournamentPlayer {
	return model.TournamentPlayer{
		UserID:       p.UserID,
		DisplayName:  p.DisplayName,
		CurrentRound: 1,
	}
}

// Create opens a tournament with the host as its only participant. Bots
// fill the remaining slots once the fill deadline passes.
func (m *Manager) Create(ctx context.Context, host model.TournamentPlayer) (*model.Tournament, error) {
	if err := m.lives.RequirePlayable(ctx, host.UserID); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	t := &model.Tournament{
		ID:           model.TournamentID(m.random.UUID()),
		HostID:       host.UserID,
		Players:      []model.TournamentPlayer{entrant(host)},
		Rounds:       []model.TournamentRound{},
		Status:       model.TournamentStatusWaiting,
		CreatedAt:    now,
		FillDeadline: now.Add(model.TournamentFillWait),
	}
	if err := m.store.SaveTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("save tournament: %w", err)
	}

	m.armFill(t)
	m.logger.Info("tournament created",
		slog.String("tournament_id", string(t.ID)),
		slog.String("host_id", string(t.HostID)))
	m.emitter.Emit(ctx, model.TournamentTopic(t.ID), model.EventTournamentUpdated, t)
	return t, nil
}

// Get returns a tournament by ID
func (m *Manager) Get(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return m.store.GetTournament(ctx, id)
}

// update runs fn on a fresh copy under the tournament lock, saves it when
// fn reports a change, then applies the collected effects
func (m *Manager) update(ctx context.Context, id model.TournamentID, fn func(t *model.Tournament, fx *effects) (bool, error)) (*model.Tournament, error) {
	var result *model.Tournament
	fx := &effects{}
	err := m.locks.WithLock(tournamentLockKey(id), func() error {
		t, err := m.store.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		dirty, err := fn(t, fx)
		if err != nil {
			return err
		}
		if dirty {
			if err := m.store.SaveTournament(ctx, t); err != nil {
				return fmt.Errorf("save tournament: %w", err)
			}
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.apply(ctx, result, fx)
	return result, nil
}

func (m *Manager) apply(ctx context.Context, t *model.Tournament, fx *effects) {
	if fx.started {
		m.stopFill(t.ID)
		for _, p := range t.Players {
			if p.IsBot {
				continue
			}
			if _, err := m.lives.ConsumeForGame(ctx, p.UserID); err != nil {
				m.logger.Warn("failed to charge tournament entry",
					slog.String("tournament_id", string(t.ID)),
					slog.String("user_id", string(p.UserID)),
					slog.Any("error", err))
			}
			if err := m.notifier.ScheduleOneShot(ctx, p.UserID, 0, notification.TournamentStart(t.ID)); err != nil {
				m.logger.Warn("failed to schedule tournament notification", slog.Any("error", err))
			}
		}
	}
	if fx.champion != nil && !bot.IsBot(*fx.champion) {
		if _, err := m.profiles.RecordTournamentWin(ctx, *fx.champion); err != nil {
			m.logger.Warn("failed to record tournament win",
				slog.String("user_id", string(*fx.champion)),
				slog.Any("error", err))
		}
	}
	for _, ev := range fx.events {
		m.emitter.Emit(ctx, model.TournamentTopic(t.ID), ev.eventType, ev.payload)
	}
}

// Join adds a participant while the tournament is waiting. The eighth
// participant starts it at once.
func (m *Manager) Join(ctx context.Context, id model.TournamentID, player model.TournamentPlayer) (*model.Tournament, error) {
	return m.update(ctx, id, func(t *model.Tournament, fx *effects) (bool, error) {
		if t.GetPlayer(player.UserID) != nil {
			return false, nil
		}
		if t.Status != model.TournamentStatusWaiting {
			return false, model.ErrTournamentNotWaiting
		}
		if t.IsFull() {
			return false, model.ErrTournamentFull
		}
		if err := m.lives.RequirePlayable(ctx, player.UserID); err != nil {
			return false, err
		}

		t.Players = append(t.Players, entrant(player))
		fx.emit(model.EventTournamentUpdated, t)
		if t.IsFull() {
			m.start(t, fx)
		}
		return true, nil
	})
}

// FindOrCreate joins the oldest waiting tournament with room for the
// player, or creates a new one
func (m *Manager) FindOrCreate(ctx context.Context, player model.TournamentPlayer) (*model.Tournament, error) {
	var result *model.Tournament
	err := m.locks.WithLock(matchmakingLock, func() error {
		waiting := model.TournamentStatusWaiting
		list, err := m.store.ListTournaments(ctx, model.TournamentFilter{Status: &waiting})
		if err != nil {
			return err
		}

		for _, t := range list {
			if t.IsFull() || t.GetPlayer(player.UserID) != nil {
				continue
			}
			joined, err := m.Join(ctx, t.ID, player)
			if errors.Is(err, model.ErrTournamentFull) || errors.Is(err, model.ErrTournamentNotWaiting) {
				continue
			}
			if err != nil {
				return err
			}
			result = joined
			return nil
		}

		created, err := m.Create(ctx, player)
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	return result, err
}

// OnFillDeadline fills the empty slots with bots and starts the bracket.
// It does nothing unless the tournament is still waiting.
func (m *Manager) OnFillDeadline(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return m.update(ctx, id, func(t *model.Tournament, fx *effects) (bool, error) {
		if t.Status != model.TournamentStatusWaiting {
			return false, nil
		}
		m.start(t, fx)
		return true, nil
	})
}

// Start lets the host begin early with bots in the empty slots
func (m *Manager) Start(ctx context.Context, id model.TournamentID, requester model.UserID) (*model.Tournament, error) {
	return m.update(ctx, id, func(t *model.Tournament, fx *effects) (bool, error) {
		if t.HostID != requester {
			return false, model.ErrNotHost
		}
		if t.Status != model.TournamentStatusWaiting {
			return false, model.ErrTournamentNotWaiting
		}
		m.start(t, fx)
		return true, nil
	})
}

// Disband cancels a waiting tournament
func (m *Manager) Disband(ctx context.Context, id model.TournamentID, requester model.UserID) (*model.Tournament, error) {
	t, err := m.update(ctx, id, func(t *model.Tournament, fx *effects) (bool, error) {
		if t.HostID != requester {
			return false, model.ErrNotHost
		}
		if t.Status != model.TournamentStatusWaiting {
			return false, model.ErrTournamentNotWaiting
		}
		now := m.clock.Now()
		t.Status = model.TournamentStatusCancelled
		t.CompletedAt = &now
		fx.emit(model.EventTournamentCancelled, t)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	m.stopFill(id)
	m.logger.Info("tournament disbanded", slog.String("tournament_id", string(id)))
	return t, nil
}

// start back-fills bots and builds the first round. Caller holds the lock.
func (m *Manager) start(t *model.Tournament, fx *effects) {
	t.Players = append(t.Players, m.bots.CreatePlayers(model.TournamentSize-len(t.Players))...)

	now := m.clock.Now()
	t.Status = model.TournamentStatusInProgress
	t.StartedAt = &now
	fx.started = true
	fx.emit(model.EventTournamentStarted, t)

	ids := make([]model.UserID, len(t.Players))
	for i, p := range t.Players {
		ids[i] = p.UserID
	}
	m.openRound(t, ids, fx)

	m.logger.Info("tournament started",
		slog.String("tournament_id", string(t.ID)),
		slog.Int("players", len(t.Players)))
}

// openRound pairs adjacent entries and settles any bot-only matches, which
// may in turn complete the round
func (m *Manager) openRound(t *model.Tournament, ids []model.UserID, fx *effects) {
	number := len(t.Rounds) + 1
	round := model.TournamentRound{RoundNumber: number}
	for i := 0; i+1 < len(ids); i += 2 {
		round.Matches = append(round.Matches, model.Match{
			ID:      model.MatchID(fmt.Sprintf("r%d-m%d", number, i/2+1)),
			Player1: ids[i],
			Player2: ids[i+1],
			Status:  model.MatchStatusPending,
		})
	}
	t.Rounds = append(t.Rounds, round)
	fx.emit(model.EventRoundStarted, round)

	current := t.CurrentRound()
	for i := range current.Matches {
		match := &current.Matches[i]
		if bot.IsBot(match.Player1) && bot.IsBot(match.Player2) {
			match.Score1, match.Reported1 = m.bots.MatchScore(), true
			match.Score2, match.Reported2 = m.bots.MatchScore(), true
			m.settle(t, match, fx)
		}
	}
	m.advance(t, fx)
}

// ReportMatchResult records the reporter's score for their match in the
// current round. A bot opponent's score is simulated on the spot.
func (m *Manager) ReportMatchResult(ctx context.Context, id model.TournamentID, matchID model.MatchID, reporter model.UserID, score int) (*model.Tournament, error) {
	return m.update(ctx, id, func(t *model.Tournament, fx *effects) (bool, error) {
		if t.Status != model.TournamentStatusInProgress {
			return false, model.ErrTournamentNotRunning
		}
		p := t.GetPlayer(reporter)
		if p == nil {
			return false, model.ErrNotInTournament
		}
		if p.Eliminated {
			return false, model.ErrPlayerEliminated
		}
		match := t.FindMatch(matchID)
		if match == nil || !match.HasPlayer(reporter) {
			return false, model.ErrMatchNotFound
		}
		if match.Status == model.MatchStatusCompleted {
			return false, model.ErrMatchCompleted
		}

		score = max(score, 0)
		if match.Player1 == reporter {
			if match.Reported1 {
				return false, model.ErrAlreadyReported
			}
			match.Score1, match.Reported1 = score, true
		} else {
			if match.Reported2 {
				return false, model.ErrAlreadyReported
			}
			match.Score2, match.Reported2 = score, true
		}

		opponent := match.Player2
		if match.Player2 == reporter {
			opponent = match.Player1
		}
		if bot.IsBot(opponent) {
			if match.Player1 == opponent {
				match.Score1, match.Reported1 = m.bots.MatchScore(), true
			} else {
				match.Score2, match.Reported2 = m.bots.MatchScore(), true
			}
		}

		if match.Reported1 && match.Reported2 {
			m.settle(t, match, fx)
			m.advance(t, fx)
		} else {
			match.Status = model.MatchStatusPlaying
			fx.emit(model.EventTournamentUpdated, t)
		}
		return true, nil
	})
}

// settle decides a fully reported match. Ties go to Player1.
func (m *Manager) settle(t *model.Tournament, match *model.Match, fx *effects) {
	winner, loser := match.Player1, match.Player2
	if match.Score2 > match.Score1 {
		winner, loser = loser, winner
	}
	match.Winner = &winner
	match.Status = model.MatchStatusCompleted

	if p := t.GetPlayer(loser); p != nil {
		p.Eliminated = true
	}
	if p := t.GetPlayer(winner); p != nil {
		p.CurrentRound++
	}
	fx.emit(model.EventMatchCompleted, model.MatchCompletedPayload{
		Round: t.CurrentRound().RoundNumber,
		Match: *match,
	})
}

// advance opens the next round, or crowns the champion, once every match
// in the current round is settled
func (m *Manager) advance(t *model.Tournament, fx *effects) {
	round := t.CurrentRound()
	if round == nil || !round.IsComplete() {
		return
	}

	winners := make([]model.UserID, 0, len(round.Matches))
	for _, match := range round.Matches {
		winners = append(winners, *match.Winner)
	}

	if len(winners) == 1 {
		now := m.clock.Now()
		champion := winners[0]
		t.Status = model.TournamentStatusCompleted
		t.Winner = &champion
		t.CompletedAt = &now
		fx.champion = &champion
		fx.emit(model.EventTournamentCompleted, t)
		m.logger.Info("tournament completed",
			slog.String("tournament_id", string(t.ID)),
			slog.String("winner", string(champion)))
		return
	}
	m.openRound(t, winners, fx)
}

func (m *Manager) armFill(t *model.Tournament) {
	id := t.ID
	delay := t.FillDeadline.Sub(m.clock.Now())

	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if old, ok := m.timers[id]; ok {
		old.Stop()
	}
	var timer clock.Timer
	timer = m.clock.AfterFunc(delay, func() {
		m.timersMu.Lock()
		if m.timers[id] == timer {
			delete(m.timers, id)
		}
		m.timersMu.Unlock()

		if _, err := m.OnFillDeadline(context.Background(), id); err != nil {
			m.logger.Error("fill deadline failed", slog.String("tournament_id", string(id)), slog.Any("error", err))
		}
	})
	m.timers[id] = timer
}

func (m *Manager) stopFill(id model.TournamentID) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

// PendingFills returns the number of armed fill timers
func (m *Manager) PendingFills() int {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	return len(m.timers)
}

// Recover re-arms fill timers for tournaments still waiting.
// Deadlines already passed fire at once.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	waiting := model.TournamentStatusWaiting
	list, err := m.store.ListTournaments(ctx, model.TournamentFilter{Status: &waiting})
	if err != nil {
		return 0, err
	}
	for _, t := range list {
		m.armFill(t)
	}
	if len(list) > 0 {
		m.logger.Info("recovered tournament timers", slog.Int("count", len(list)))
	}
	return len(list), nil
}

// Stop cancels every pending timer
func (m *Manager) Stop() {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
