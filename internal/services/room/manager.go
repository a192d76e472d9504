package room

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
	"github.com/mcoot/kelimeoyunu/internal/services/board"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/services/scoring"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	matchmakingLock = "matchmaking"
)

func roomLockKey(id model.RoomID) string {
	return lock.Key("room", string(id))
}

// Manager runs the room state machine: waiting -> playing -> finished.
// Every mutation re-reads the room under its lock before writing.
type Manager struct {
	store    storage.GameStore
	boards   board.ServiceInterface
	scorer   scoring.ServiceInterface
	lives    lives.ServiceInterface
	profiles profile.ServiceInterface
	notifier notification.Scheduler
	locks    *lock.Keyed
	clock    clock.Clock
	random   random.Random
	emitter  *feed.Emitter
	logger   *slog.Logger

	timersMu sync.Mutex
	timers   map[model.RoomID]clock.Timer
}

// Dependencies groups the collaborators of a Manager
type Dependencies struct {
	Store    storage.GameStore
	Boards   board.ServiceInterface
	Scorer   scoring.ServiceInterface
	Lives    lives.ServiceInterface
	Profiles profile.ServiceInterface
	Notifier notification.Scheduler
	Locks    *lock.Keyed
	Clock    clock.Clock
	Random   random.Random
	Emitter  *feed.Emitter
	Logger   *slog.Logger
}

// NewManager creates a room Manager
func NewManager(deps Dependencies) *Manager {
	return &Manager{
		store:    deps.Store,
		boards:   deps.Boards,
		scorer:   deps.Scorer,
		lives:    deps.Lives,
		profiles: deps.Profiles,
		notifier: deps.Notifier,
		locks:    deps.Locks,
		clock:    deps.Clock,
		random:   deps.Random,
		emitter:  deps.Emitter,
		logger:   deps.Logger.With(slog.String("component", "room")),
		timers:   make(map[model.RoomID]clock.Timer),
	}
}

// seat resets the room-scoped fields of a joining player
func seat(p model.RoomPlayer) model.RoomPlayer {
	return model.RoomPlayer{
		UserID:         p.UserID,
		DisplayName:    p.DisplayName,
		PhotoURL:       p.PhotoURL,
		WordsSubmitted: []string{},
	}
}

// Create opens a room with the host in the first seat.
// A non-positive param falls back to the mode's default.
func (m *Manager) Create(ctx context.Context, host model.RoomPlayer, mode model.RoomMode, param int) (*model.GameRoom, error) {
	if !mode.Valid() {
		return nil, model.ErrInvalidMode
	}
	if err := m.lives.RequirePlayable(ctx, host.UserID); err != nil {
		return nil, err
	}

	code, err := m.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &model.GameRoom{
		ID:           model.RoomID(m.random.UUID()),
		Code:         code,
		Mode:         mode,
		MaxPoints:    model.DefaultMaxPoints,
		TimeLimit:    model.DefaultTimeLimit,
		Players:      []model.RoomPlayer{seat(host)},
		CurrentRound: 1,
		Status:       model.RoomStatusWaiting,
		Board:        m.boards.Generate(),
		CreatedAt:    m.clock.Now(),
	}
	if param > 0 {
		switch mode {
		case model.RoomModePoints:
			room.MaxPoints = param
		case model.RoomModeTimed:
			room.TimeLimit = param
		}
	}

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("save room: %w", err)
	}

	m.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("code", string(room.Code)),
		slog.String("mode", string(mode)))
	m.emitter.Emit(ctx, model.RoomTopic(room.ID), model.EventRoomCreated, room)
	return room, nil
}

func (m *Manager) generateCode(ctx context.Context) (model.RoomCode, error) {
	for {
		code := model.RoomCode(m.random.String(CodeLength, CodeAlphabet))
		exists, err := m.store.RoomCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// Get returns a room by ID
func (m *Manager) Get(ctx context.Context, id model.RoomID) (*model.GameRoom, error) {
	return m.store.GetRoom(ctx, id)
}

// GetByCode returns a room by its join code
func (m *Manager) GetByCode(ctx context.Context, code model.RoomCode) (*model.GameRoom, error) {
	return m.store.GetRoomByCode(ctx, code)
}

// update runs fn on a fresh copy of the room under its lock.
// fn reports whether the room must be saved.
func (m *Manager) update(ctx context.Context, id model.RoomID, fn func(room *model.GameRoom) (bool, error)) (*model.GameRoom, error) {
	var result *model.GameRoom
	err := m.locks.WithLock(roomLockKey(id), func() error {
		room, err := m.store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		dirty, err := fn(room)
		if dirty {
			if saveErr := m.store.SaveRoom(ctx, room); saveErr != nil {
				return fmt.Errorf("save room: %w", saveErr)
			}
		}
		result = room
		return err
	})
	if err != nil && result == nil {
		return nil, err
	}
	return result, err
}

// Join seats a player in a waiting room. Joining twice returns the room unchanged.
func (m *Manager) Join(ctx context.Context, code model.RoomCode, player model.RoomPlayer) (*model.GameRoom, error) {
	found, err := m.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	joined := false
	room, err := m.update(ctx, found.ID, func(room *model.GameRoom) (bool, error) {
		if room.GetPlayer(player.UserID) != nil {
			return false, nil
		}
		if room.Status != model.RoomStatusWaiting {
			return false, model.ErrRoomNotWaiting
		}
		if room.IsFull() {
			return false, model.ErrRoomFull
		}
		if err := m.lives.RequirePlayable(ctx, player.UserID); err != nil {
			return false, err
		}
		room.Players = append(room.Players, seat(player))
		joined = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if joined {
		m.logger.Info("player joined room",
			slog.String("room_id", string(room.ID)),
			slog.String("user_id", string(player.UserID)))
		m.emitter.Emit(ctx, model.RoomTopic(room.ID), model.EventPlayerJoined, room)
	}
	return room, nil
}

// FindOrCreateMatch joins the oldest waiting room that has exactly one other
// player, or opens a new points room
func (m *Manager) FindOrCreateMatch(ctx context.Context, player model.RoomPlayer) (*model.GameRoom, error) {
	if err := m.lives.RequirePlayable(ctx, player.UserID); err != nil {
		return nil, err
	}

	var result *model.GameRoom
	err := m.locks.WithLock(matchmakingLock, func() error {
		waiting := model.RoomStatusWaiting
		rooms, err := m.store.ListRooms(ctx, model.RoomFilter{Status: &waiting})
		if err != nil {
			return err
		}

		for _, r := range rooms {
			if len(r.Players) != 1 || r.Players[0].UserID == player.UserID {
				continue
			}
			room, err := m.Join(ctx, r.Code, player)
			if errors.Is(err, model.ErrRoomFull) || errors.Is(err, model.ErrRoomNotWaiting) {
				continue
			}
			if err != nil {
				return err
			}
			result = room
			return nil
		}

		room, err := m.Create(ctx, player, model.RoomModePoints, 0)
		if err != nil {
			return err
		}
		result = room
		return nil
	})
	return result, err
}

// SetReady flips a player's ready flag. The room starts once both seats are
// ready, charging each player one game.
func (m *Manager) SetReady(ctx context.Context, id model.RoomID, userID model.UserID, ready bool) (*model.GameRoom, error) {
	started := false
	room, err := m.update(ctx, id, func(room *model.GameRoom) (bool, error) {
		if room.Status != model.RoomStatusWaiting {
			return false, model.ErrRoomNotWaiting
		}
		p := room.GetPlayer(userID)
		if p == nil {
			return false, model.ErrNotInRoom
		}
		p.Ready = ready
		if !room.AllReady() {
			return true, nil
		}

		for _, rp := range room.Players {
			if err := m.lives.RequirePlayable(ctx, rp.UserID); err != nil {
				room.GetPlayer(rp.UserID).Ready = false
				return true, err
			}
		}
		if err := m.chargePlayers(ctx, room); err != nil {
			return true, err
		}

		now := m.clock.Now()
		room.Status = model.RoomStatusPlaying
		room.StartedAt = &now
		started = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	m.emitter.Emit(ctx, model.RoomTopic(id), model.EventPlayerReady, room)
	if started {
		m.armTimeout(room)
		m.logger.Info("room started", slog.String("room_id", string(id)))
		m.emitter.Emit(ctx, model.RoomTopic(id), model.EventGameStarted, room)
	}
	return room, nil
}

// chargePlayers takes one game from every seated player. If a charge
// fails, that player is unreadied and the players already charged are refunded.
func (m *Manager) chargePlayers(ctx context.Context, room *model.GameRoom) error {
	charged := make([]model.UserID, 0, len(room.Players))
	for _, rp := range room.Players {
		if _, err := m.lives.ConsumeForGame(ctx, rp.UserID); err != nil {
			room.GetPlayer(rp.UserID).Ready = false
			for _, id := range charged {
				if _, refundErr := m.lives.RefundGame(ctx, id); refundErr != nil {
					m.logger.Error("failed to refund game",
						slog.String("room_id", string(room.ID)),
						slog.String("user_id", string(id)),
						slog.Any("error", refundErr))
				}
			}
			return err
		}
		charged = append(charged, rp.UserID)
	}
	return nil
}

// UpdateCurrentWord mirrors a player's in-progress word to the opponent
func (m *Manager) UpdateCurrentWord(ctx context.Context, id model.RoomID, userID model.UserID, word string) (*model.GameRoom, error) {
	room, err := m.update(ctx, id, func(room *model.GameRoom) (bool, error) {
		if err := requirePlaying(room); err != nil {
			return false, err
		}
		p := room.GetPlayer(userID)
		if p == nil {
			return false, model.ErrNotInRoom
		}
		p.CurrentWord = word
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	m.emitter.Emit(ctx, model.RoomTopic(id), model.EventCurrentWord, model.CurrentWordPayload{UserID: userID, Word: word})
	return room, nil
}

func requirePlaying(room *model.GameRoom) error {
	switch room.Status {
	case model.RoomStatusPlaying:
		return nil
	case model.RoomStatusFinished:
		return model.ErrRoomFinished
	default:
		return model.ErrRoomNotPlaying
	}
}

// SubmitWord scores a word for the player. A word the player already scored
// earns nothing. In points mode the first player to reach the target wins.
func (m *Manager) SubmitWord(ctx context.Context, id model.RoomID, userID model.UserID, raw string) (model.WordValidation, *model.GameRoom, error) {
	var v model.WordValidation
	finished := false
	room, err := m.update(ctx, id, func(room *model.GameRoom) (bool, error) {
		if err := requirePlaying(room); err != nil {
			return false, err
		}
		p := room.GetPlayer(userID)
		if p == nil {
			return false, model.ErrNotInRoom
		}

		if deadline, ok := room.Deadline(); ok && !m.clock.Now().Before(deadline) {
			m.finish(room, m.scorer.DetermineWinner(room.Players))
			finished = true
			return true, model.ErrRoomFinished
		}

		v = m.scorer.Score(raw)
		if v.IsValid && p.HasSubmitted(v.Word) {
			v.Points = 0
		}
		if v.Points == 0 {
			return false, nil
		}

		p.Score += v.Points
		p.WordsSubmitted = append(p.WordsSubmitted, v.Word)
		p.CurrentWord = ""

		if room.Mode == model.RoomModePoints && p.Score >= room.MaxPoints {
			winner := p.UserID
			m.finish(room, &winner)
			finished = true
		}
		return true, nil
	})
	if room == nil {
		return model.WordValidation{}, nil, err
	}

	if err == nil {
		p := room.GetPlayer(userID)
		m.emitter.Emit(ctx, model.RoomTopic(id), model.EventWordSubmitted, model.WordSubmittedPayload{
			UserID:     userID,
			Validation: v,
			Score:      p.Score,
		})
	}
	if finished {
		m.afterFinish(ctx, room)
	}
	if err != nil {
		return model.WordValidation{}, nil, err
	}
	return v, room, nil
}

// EndByTimeout closes a timed room whose clock has run out. The higher
// score wins and an exact tie is a draw. Ending a finished room returns it
// unchanged; ending one before its deadline is ErrRoomNotExpired.
func (m *Manager) EndByTimeout(ctx context.Context, id model.RoomID) (*model.GameRoom, error) {
	return m.endTimed(ctx, id, true)
}

// endTimed finishes a timed room. The room's own timer skips the deadline
// check since it fires at the deadline.
func (m *Manager) endTimed(ctx context.Context, id model.RoomID, checkDeadline bool) (*model.GameRoom, error) {
	finished := false
	room, err := m.update(ctx, id, func(room *model.GameRoom) (bool, error) {
		if room.Status == model.RoomStatusFinished {
			return false, nil
		}
		if room.Mode != model.RoomModeTimed {
			return false, model.ErrNotTimedRoom
		}
		if room.Status != model.RoomStatusPlaying {
			return false, model.ErrRoomNotPlaying
		}
		if deadline, ok := room.Deadline(); checkDeadline && ok && m.clock.Now().Before(deadline) {
			return false, model.ErrRoomNotExpired
		}
		m.finish(room, m.scorer.DetermineWinner(room.Players))
		finished = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if finished {
		m.afterFinish(ctx, room)
	}
	return room, nil
}

// finish moves the room to its terminal state. Caller holds the room lock.
func (m *Manager) finish(room *model.GameRoom, winner *model.UserID) {
	now := m.clock.Now()
	room.Status = model.RoomStatusFinished
	room.FinishedAt = &now
	room.Winner = winner
	room.Draw = winner == nil
	m.stopTimeout(room.ID)
}

// afterFinish records stats and announces the result. Failures are logged.
func (m *Manager) afterFinish(ctx context.Context, room *model.GameRoom) {
	scores := make(map[model.UserID]int, len(room.Players))
	for _, p := range room.Players {
		scores[p.UserID] = p.Score
		won := room.Winner != nil && *room.Winner == p.UserID
		if _, err := m.profiles.RecordGameResult(ctx, p.UserID, p.Score, won, len(p.WordsSubmitted)); err != nil {
			m.logger.Warn("failed to record game result",
				slog.String("room_id", string(room.ID)),
				slog.String("user_id", string(p.UserID)),
				slog.Any("error", err))
		}
	}

	attrs := []any{slog.String("room_id", string(room.ID)), slog.Bool("draw", room.Draw)}
	if room.Winner != nil {
		attrs = append(attrs, slog.String("winner", string(*room.Winner)))
	}
	m.logger.Info("room finished", attrs...)
	m.emitter.Emit(ctx, model.RoomTopic(room.ID), model.EventGameFinished, model.GameFinishedPayload{
		Winner: room.Winner,
		Scores: scores,
	})
}

// Invite sends a game invite for a waiting room to another user
func (m *Manager) Invite(ctx context.Context, id model.RoomID, from, to model.UserID) error {
	room, err := m.store.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.Status != model.RoomStatusWaiting {
		return model.ErrRoomNotWaiting
	}
	inviter := room.GetPlayer(from)
	if inviter == nil {
		return model.ErrNotInRoom
	}
	return m.notifier.ScheduleOneShot(ctx, to, 0, notification.GameInvite(inviter.DisplayName, room.Code))
}

func (m *Manager) armTimeout(room *model.GameRoom) {
	deadline, ok := room.Deadline()
	if !ok {
		return
	}
	id := room.ID
	delay := deadline.Sub(m.clock.Now())

	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	m.timers[id] = m.clock.AfterFunc(delay, func() {
		if _, err := m.endTimed(context.Background(), id, false); err != nil {
			m.logger.Error("room timeout failed", slog.String("room_id", string(id)), slog.Any("error", err))
		}
	})
}

func (m *Manager) stopTimeout(id model.RoomID) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

// PendingTimeouts returns the number of armed room timers
func (m *Manager) PendingTimeouts() int {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	return len(m.timers)
}

// Recover re-arms timers for timed rooms still in play. Deadlines already
// passed fire at once.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	playing := model.RoomStatusPlaying
	rooms, err := m.store.ListRooms(ctx, model.RoomFilter{Status: &playing})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rooms {
		if r.Mode != model.RoomModeTimed {
			continue
		}
		m.armTimeout(r)
		n++
	}
	if n > 0 {
		m.logger.Info("recovered room timers", slog.Int("count", n))
	}
	return n, nil
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

