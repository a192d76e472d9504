package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/mocks"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/lock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/board"
	"github.com/mcoot/kelimeoyunu/internal/services/lexicon"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/services/scoring"
	"github.com/mcoot/kelimeoyunu/internal/storage/memory"
	"github.com/mcoot/kelimeoyunu/internal/testutil"
)

type ManagerSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	storage  *memory.Storage
	bus      *feed.MemoryFeed
	profiles *profile.Service
	lives    *lives.Service
	notifier *notification.Service
	deps     Dependencies
	manager  *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.storage = memory.New()
	s.bus = feed.NewMemory(testutil.NopLogger())

	logger := testutil.NopLogger()
	locks := lock.NewKeyed()
	emitter := feed.NewEmitter(s.bus, s.clock, logger)

	lex := lexicon.New(s.storage)
	s.Require().NoError(lex.LoadDefault())

	s.profiles = profile.New(s.storage, locks, s.clock, logger)
	s.notifier = notification.New(s.storage, s.clock, logger, notification.NewFeedSink(emitter))
	s.lives = lives.New(s.storage, s.storage, locks, s.clock, s.notifier, emitter, logger)
	s.deps = Dependencies{
		Store:    s.storage,
		Boards:   board.New(s.random),
		Scorer:   scoring.New(lex),
		Lives:    s.lives,
		Profiles: s.profiles,
		Notifier: s.notifier,
		Locks:    locks,
		Clock:    s.clock,
		Random:   s.random,
		Emitter:  emitter,
		Logger:   logger,
	}
	s.manager = NewManager(s.deps)

	for _, id := range []model.UserID{"alice", "bob", "carol"} {
		_, _, err := s.profiles.EnsureUser(s.ctx, profile.Identity{UserID: id, DisplayName: string(id)})
		s.Require().NoError(err)
	}
}

// failingLives charges normally except for one user, whose charge errors
type failingLives struct {
	*lives.Service
	failFor model.UserID
}

func (f *failingLives) ConsumeForGame(ctx context.Context, userID model.UserID) (model.User, error) {
	if userID == f.failFor {
		return model.User{}, errors.New("store unreachable")
	}
	return f.Service.ConsumeForGame(ctx, userID)
}

func player(id model.UserID) model.RoomPlayer {
	return model.RoomPlayer{UserID: id, DisplayName: string(id)}
}

func (s *ManagerSuite) user(id model.UserID) *model.User {
	u, err := s.storage.GetUser(s.ctx, id)
	s.Require().NoError(err)
	return u
}

// started returns a playing room between alice and bob
func (s *ManagerSuite) started(mode model.RoomMode, param int) *model.GameRoom {
	room, err := s.manager.Create(s.ctx, player("alice"), mode, param)
	s.Require().NoError(err)
	_, err = s.manager.Join(s.ctx, room.Code, player("bob"))
	s.Require().NoError(err)
	_, err = s.manager.SetReady(s.ctx, room.ID, "alice", true)
	s.Require().NoError(err)
	room, err = s.manager.SetReady(s.ctx, room.ID, "bob", true)
	s.Require().NoError(err)
	s.Require().Equal(model.RoomStatusPlaying, room.Status)
	return room
}

func (s *ManagerSuite) submit(id model.RoomID, user model.UserID, word string) model.WordValidation {
	v, _, err := s.manager.SubmitWord(s.ctx, id, user, word)
	s.Require().NoError(err)
	return v
}

// Create tests

func (s *ManagerSuite) TestCreateDefaults() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)

	s.Len(string(room.Code), CodeLength)
	s.Equal(model.RoomStatusWaiting, room.Status)
	s.Equal(1, room.CurrentRound)
	s.Equal(model.DefaultMaxPoints, room.MaxPoints)
	s.Equal(model.DefaultTimeLimit, room.TimeLimit)
	s.Require().Len(room.Players, 1)
	s.Equal(model.UserID("alice"), room.Players[0].UserID)
	s.Equal(s.clock.Now(), room.CreatedAt)

	stored, err := s.manager.GetByCode(s.ctx, room.Code)
	s.Require().NoError(err)
	s.Equal(room.ID, stored.ID)
}

func (s *ManagerSuite) TestCreateTimedParam() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModeTimed, 60)
	s.Require().NoError(err)
	s.Equal(60, room.TimeLimit)
	s.Equal(model.DefaultMaxPoints, room.MaxPoints)
}

func (s *ManagerSuite) TestCreateInvalidMode() {
	_, err := s.manager.Create(s.ctx, player("alice"), model.RoomMode("blitz"), 0)
	s.ErrorIs(err, model.ErrInvalidMode)
}

func (s *ManagerSuite) TestCreateBlockedWithoutLives() {
	u := s.user("alice")
	u.Lives = 0
	u.LastLifeRegeneration = s.clock.Now()
	s.Require().NoError(s.storage.SaveUser(s.ctx, u))

	_, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.ErrorIs(err, model.ErrCannotPlay)
}

func (s *ManagerSuite) TestCreateRetriesCodeCollision() {
	s.random.QueueString("AAAAAA", "AAAAAA", "BBBBBB")

	first, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)
	second, err := s.manager.Create(s.ctx, player("bob"), model.RoomModePoints, 0)
	s.Require().NoError(err)

	s.Equal(model.RoomCode("AAAAAA"), first.Code)
	s.Equal(model.RoomCode("BBBBBB"), second.Code)
}

// Join tests

func (s *ManagerSuite) TestJoinUnknownCode() {
	_, err := s.manager.Join(s.ctx, "NOPE00", player("bob"))
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ManagerSuite) TestJoinIsIdempotentAndDoesNotStart() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)

	joined, err := s.manager.Join(s.ctx, room.Code, player("bob"))
	s.Require().NoError(err)
	s.Len(joined.Players, 2)
	s.Equal(model.RoomStatusWaiting, joined.Status)

	again, err := s.manager.Join(s.ctx, room.Code, player("bob"))
	s.Require().NoError(err)
	s.Len(again.Players, 2)
}

func (s *ManagerSuite) TestJoinFullRoom() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)
	_, err = s.manager.Join(s.ctx, room.Code, player("bob"))
	s.Require().NoError(err)

	_, err = s.manager.Join(s.ctx, room.Code, player("carol"))
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *ManagerSuite) TestJoinStartedRoom() {
	room := s.started(model.RoomModePoints, 0)
	_, err := s.manager.Join(s.ctx, room.Code, player("carol"))
	s.ErrorIs(err, model.ErrRoomNotWaiting)
}

// Matchmaking tests

func (s *ManagerSuite) TestFindOrCreateMatchJoinsWaitingRoom() {
	first, err := s.manager.FindOrCreateMatch(s.ctx, player("alice"))
	s.Require().NoError(err)
	s.Len(first.Players, 1)
	s.Equal(model.RoomModePoints, first.Mode)

	second, err := s.manager.FindOrCreateMatch(s.ctx, player("bob"))
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Len(second.Players, 2)
}

func (s *ManagerSuite) TestFindOrCreateMatchSkipsOwnRoom() {
	first, err := s.manager.FindOrCreateMatch(s.ctx, player("alice"))
	s.Require().NoError(err)
	second, err := s.manager.FindOrCreateMatch(s.ctx, player("alice"))
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
}

func (s *ManagerSuite) TestFindOrCreateMatchPrefersOldest() {
	older, err := s.manager.Create(s.ctx, player("alice"), model.RoomModeTimed, 0)
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	_, err = s.manager.Create(s.ctx, player("bob"), model.RoomModePoints, 0)
	s.Require().NoError(err)

	room, err := s.manager.FindOrCreateMatch(s.ctx, player("carol"))
	s.Require().NoError(err)
	s.Equal(older.ID, room.ID)
}

// Ready tests

func (s *ManagerSuite) TestReadyStartsAndChargesLives() {
	room := s.started(model.RoomModePoints, 0)

	s.Require().NotNil(room.StartedAt)
	s.Equal(s.clock.Now(), *room.StartedAt)
	s.Equal(model.MaxLives-1, s.user("alice").Lives)
	s.Equal(model.MaxLives-1, s.user("bob").Lives)
}

func (s *ManagerSuite) TestReadyAloneDoesNotStart() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)

	room, err = s.manager.SetReady(s.ctx, room.ID, "alice", true)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusWaiting, room.Status)
	s.True(room.Players[0].Ready)
	s.Equal(model.MaxLives, s.user("alice").Lives)
}

func (s *ManagerSuite) TestReadyFailsWhenOpponentCannotPlay() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)
	_, err = s.manager.Join(s.ctx, room.Code, player("bob"))
	s.Require().NoError(err)
	_, err = s.manager.SetReady(s.ctx, room.ID, "alice", true)
	s.Require().NoError(err)

	bob := s.user("bob")
	bob.Lives = 0
	bob.LastLifeRegeneration = s.clock.Now()
	s.Require().NoError(s.storage.SaveUser(s.ctx, bob))

	_, err = s.manager.SetReady(s.ctx, room.ID, "bob", true)
	s.ErrorIs(err, model.ErrCannotPlay)

	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusWaiting, stored.Status)
	s.False(stored.GetPlayer("bob").Ready)
	s.Equal(model.MaxLives, s.user("alice").Lives)
}

func (s *ManagerSuite) TestReadyRefundsWhenChargeFails() {
	deps := s.deps
	deps.Lives = &failingLives{Service: s.lives, failFor: "bob"}
	manager := NewManager(deps)

	room, err := manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)
	_, err = manager.Join(s.ctx, room.Code, player("bob"))
	s.Require().NoError(err)
	_, err = manager.SetReady(s.ctx, room.ID, "alice", true)
	s.Require().NoError(err)

	_, err = manager.SetReady(s.ctx, room.ID, "bob", true)
	s.Require().Error(err)

	stored, err := manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusWaiting, stored.Status)
	s.False(stored.GetPlayer("bob").Ready)
	s.Equal(model.MaxLives, s.user("alice").Lives)

	daily, err := s.lives.CheckDailyLimit(s.ctx, "alice", s.clock.Now())
	s.Require().NoError(err)
	s.Zero(daily.Played)

	// Once bob can be charged the room starts and alice pays exactly once
	room, err = s.manager.SetReady(s.ctx, room.ID, "bob", true)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusPlaying, room.Status)
	s.Equal(model.MaxLives-1, s.user("alice").Lives)
	s.Equal(model.MaxLives-1, s.user("bob").Lives)
}

func (s *ManagerSuite) TestReadyNotInRoom() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)
	_, err = s.manager.SetReady(s.ctx, room.ID, "carol", true)
	s.ErrorIs(err, model.ErrNotInRoom)
}

// Submit tests

func (s *ManagerSuite) TestSubmitScoresAndRejectsRepeats() {
	room := s.started(model.RoomModePoints, 0)

	v := s.submit(room.ID, "alice", "kedi")
	s.True(v.IsValid)
	s.Equal(2, v.Points)

	v = s.submit(room.ID, "alice", "KEDI")
	s.True(v.IsValid)
	s.Equal(0, v.Points)

	// The opponent may still score the same word
	v = s.submit(room.ID, "bob", "kedi")
	s.Equal(2, v.Points)

	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(2, stored.GetPlayer("alice").Score)
	s.Equal([]string{"KEDI"}, stored.GetPlayer("alice").WordsSubmitted)
}

func (s *ManagerSuite) TestSubmitInvalidWordKeepsBuffer() {
	room := s.started(model.RoomModePoints, 0)
	_, err := s.manager.UpdateCurrentWord(s.ctx, room.ID, "alice", "KED")
	s.Require().NoError(err)

	v := s.submit(room.ID, "alice", "ked")
	s.False(v.IsValid)

	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal("KED", stored.GetPlayer("alice").CurrentWord)
	s.Zero(stored.GetPlayer("alice").Score)

	s.submit(room.ID, "alice", "kedi")
	stored, err = s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Empty(stored.GetPlayer("alice").CurrentWord)
}

func (s *ManagerSuite) TestSubmitRequiresPlayingAndSeat() {
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)
	_, _, err = s.manager.SubmitWord(s.ctx, room.ID, "alice", "kedi")
	s.ErrorIs(err, model.ErrRoomNotPlaying)

	room = s.started(model.RoomModePoints, 0)
	_, _, err = s.manager.SubmitWord(s.ctx, room.ID, "carol", "kedi")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ManagerSuite) TestPointsThresholdFinishesRoom() {
	room := s.started(model.RoomModePoints, 20)
	sub, err := s.bus.Subscribe(s.ctx, model.RoomTopic(room.ID))
	s.Require().NoError(err)
	defer sub.Close()

	s.submit(room.ID, "alice", "kırmızı")
	s.submit(room.ID, "bob", "futbol")
	_, finished, err := s.manager.SubmitWord(s.ctx, room.ID, "alice", "basketbol")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, finished.Status)

	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.Winner)
	s.Equal(model.UserID("alice"), *stored.Winner)
	s.False(stored.Draw)
	s.NotNil(stored.FinishedAt)

	_, _, err = s.manager.SubmitWord(s.ctx, room.ID, "bob", "voleybol")
	s.ErrorIs(err, model.ErrRoomFinished)

	alice := s.user("alice")
	s.Equal(20, alice.TotalScore)
	s.Equal(1, alice.GamesWon)
	s.Equal(2, alice.WordsFound)
	bob := s.user("bob")
	s.Zero(bob.TotalScore)
	s.Equal(1, bob.WordsFound)

	var last model.Event
	for len(sub.C) > 0 {
		last = <-sub.C
	}
	s.Equal(model.EventGameFinished, last.Type)
	payload, ok := last.Payload.(model.GameFinishedPayload)
	s.Require().True(ok)
	s.Equal(map[model.UserID]int{"alice": 20, "bob": 6}, payload.Scores)
}

func (s *ManagerSuite) TestConcurrentSubmissionsKeepEveryPoint() {
	room := s.started(model.RoomModePoints, 1000)
	words := []string{"KEDI", "OKUL", "MASA", "KITAP", "KALEM", "FUTBOL", "KIRMIZI", "BAHÇE"}

	var wg sync.WaitGroup
	for _, who := range []model.UserID{"alice", "bob"} {
		for _, w := range words {
			for range 3 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _, err := s.manager.SubmitWord(s.ctx, room.ID, who, w)
					s.NoError(err)
				}()
			}
		}
	}
	wg.Wait()

	expected := 0
	for _, w := range words {
		expected += scoring.PointsForLength(len([]rune(w)))
	}
	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(expected, stored.GetPlayer("alice").Score)
	s.Equal(expected, stored.GetPlayer("bob").Score)
	s.Len(stored.GetPlayer("alice").WordsSubmitted, len(words))
}

// Timed room tests

func (s *ManagerSuite) TestTimedRoomEndsOnTimer() {
	room := s.started(model.RoomModeTimed, 60)
	s.Equal(1, s.manager.PendingTimeouts())

	s.submit(room.ID, "bob", "futbol")
	s.clock.Advance(59 * time.Second)
	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusPlaying, stored.Status)

	s.clock.Advance(time.Second)
	stored, err = s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, stored.Status)
	s.Require().NotNil(stored.Winner)
	s.Equal(model.UserID("bob"), *stored.Winner)
	s.Zero(s.manager.PendingTimeouts())
}

func (s *ManagerSuite) TestTimedTieIsDraw() {
	room := s.started(model.RoomModeTimed, 0)
	s.submit(room.ID, "alice", "kedi")
	s.submit(room.ID, "bob", "okul")
	s.manager.Stop()
	s.clock.Advance(model.DefaultTimeLimit * time.Second)

	ended, err := s.manager.EndByTimeout(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Nil(ended.Winner)
	s.True(ended.Draw)
	s.Zero(s.user("alice").GamesWon)
	s.Zero(s.user("bob").GamesWon)

	again, err := s.manager.EndByTimeout(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(ended.FinishedAt, again.FinishedAt)
}

func (s *ManagerSuite) TestEndByTimeoutBeforeDeadline() {
	room := s.started(model.RoomModeTimed, 120)
	s.submit(room.ID, "alice", "kirmizi")

	_, err := s.manager.EndByTimeout(s.ctx, room.ID)
	s.ErrorIs(err, model.ErrRoomNotExpired)

	s.clock.Advance(119 * time.Second)
	_, err = s.manager.EndByTimeout(s.ctx, room.ID)
	s.ErrorIs(err, model.ErrRoomNotExpired)

	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusPlaying, stored.Status)
	s.Nil(stored.Winner)
	s.Equal(1, s.manager.PendingTimeouts())
}

func (s *ManagerSuite) TestLateSubmitFinalizesTimedRoom() {
	room := s.started(model.RoomModeTimed, 30)
	s.manager.Stop()
	s.clock.Advance(31 * time.Second)

	_, _, err := s.manager.SubmitWord(s.ctx, room.ID, "alice", "kedi")
	s.ErrorIs(err, model.ErrRoomFinished)

	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, stored.Status)
	s.True(stored.Draw)
}

func (s *ManagerSuite) TestEndByTimeoutRejectsPointsRoom() {
	room := s.started(model.RoomModePoints, 0)
	_, err := s.manager.EndByTimeout(s.ctx, room.ID)
	s.ErrorIs(err, model.ErrNotTimedRoom)
}

func (s *ManagerSuite) TestRecoverRearmsTimers() {
	room := s.started(model.RoomModeTimed, 60)
	s.started(model.RoomModePoints, 0)
	s.manager.Stop()
	s.Zero(s.manager.PendingTimeouts())

	n, err := s.manager.Recover(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	s.clock.Advance(time.Minute)
	stored, err := s.manager.Get(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, stored.Status)
}

// Invite tests

func (s *ManagerSuite) TestInviteSchedulesNotification() {
	s.Require().NoError(s.notifier.SetEnabled(s.ctx, "carol", true))
	room, err := s.manager.Create(s.ctx, player("alice"), model.RoomModePoints, 0)
	s.Require().NoError(err)

	s.Require().NoError(s.manager.Invite(s.ctx, room.ID, "alice", "carol"))
	s.Contains(s.notifier.Pending("carol"), notification.LabelGameInvite)

	err = s.manager.Invite(s.ctx, room.ID, "bob", "carol")
	s.ErrorIs(err, model.ErrNotInRoom)
}
