// Package storagetest holds behaviour suites shared by every storage backend.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// UserStoreSuite exercises a storage.UserStore
type UserStoreSuite struct {
	suite.Suite
	Store storage.UserStore
	Ctx   context.Context
}

func (s *UserStoreSuite) TestSaveAndGetUser() {
	premium := baseTime.Add(time.Hour)
	user := &model.User{
		ID:                   "user-1",
		Email:                "ayse@example.com",
		DisplayName:          "Ayşe",
		Provider:             model.ProviderEmail,
		Lives:                3,
		LastLifeRegeneration: baseTime,
		PremiumUntil:         &premium,
		TotalScore:           42,
		Badges: []model.Badge{
			{ID: model.BadgeHighScorer, Name: "Yüksek Puanlı", UnlockedAt: baseTime},
		},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	s.Require().NoError(s.Store.SaveUser(s.Ctx, user))

	got, err := s.Store.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("Ayşe", got.DisplayName)
	s.Equal(3, got.Lives)
	s.True(baseTime.Equal(got.LastLifeRegeneration))
	s.Require().NotNil(got.PremiumUntil)
	s.True(premium.Equal(*got.PremiumUntil))
	s.Require().Len(got.Badges, 1)
	s.Equal(model.BadgeHighScorer, got.Badges[0].ID)
}

func (s *UserStoreSuite) TestSaveUserUpserts() {
	user := &model.User{ID: "user-2", DisplayName: "Oyuncu", Lives: 5, CreatedAt: baseTime, UpdatedAt: baseTime}
	s.Require().NoError(s.Store.SaveUser(s.Ctx, user))

	user.Lives = 4
	user.GamesWon = 1
	s.Require().NoError(s.Store.SaveUser(s.Ctx, user))

	got, err := s.Store.GetUser(s.Ctx, "user-2")
	s.Require().NoError(err)
	s.Equal(4, got.Lives)
	s.Equal(1, got.GamesWon)
}

func (s *UserStoreSuite) TestGetUserNotFound() {
	_, err := s.Store.GetUser(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *UserStoreSuite) TestCredentials() {
	s.Require().NoError(s.Store.SaveUser(s.Ctx, &model.User{ID: "user-3", CreatedAt: baseTime, UpdatedAt: baseTime}))
	cred := &model.Credential{UserID: "user-3", Email: "mehmet@example.com", PasswordHash: "hash", CreatedAt: baseTime}
	s.Require().NoError(s.Store.SaveCredential(s.Ctx, cred))

	got, err := s.Store.GetCredentialByEmail(s.Ctx, "mehmet@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-3"), got.UserID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.Store.GetCredentialByEmail(s.Ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

// GameStoreSuite exercises a storage.GameStore
type GameStoreSuite struct {
	suite.Suite
	Store storage.GameStore
	Ctx   context.Context
}

func newRoom(id, code string, status model.RoomStatus, created time.Time) *model.GameRoom {
	return &model.GameRoom{
		ID:           model.RoomID(id),
		Code:         model.RoomCode(code),
		Mode:         model.RoomModePoints,
		MaxPoints:    model.DefaultMaxPoints,
		TimeLimit:    model.DefaultTimeLimit,
		Players:      []model.RoomPlayer{{UserID: "host", DisplayName: "Host"}},
		CurrentRound: 1,
		Status:       status,
		CreatedAt:    created,
	}
}

func (s *GameStoreSuite) TestSaveAndGetRoom() {
	room := newRoom("room-1", "ABC123", model.RoomStatusWaiting, baseTime)
	room.Board[0][0] = "Ş"
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, room))

	got, err := s.Store.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC123"), got.Code)
	s.Equal("Ş", got.Board[0][0])
	s.Require().Len(got.Players, 1)

	byCode, err := s.Store.GetRoomByCode(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-1"), byCode.ID)
}

func (s *GameStoreSuite) TestReturnedRoomIsACopy() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, newRoom("room-1", "ABC123", model.RoomStatusWaiting, baseTime)))

	got, err := s.Store.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	got.Players[0].Score = 99

	again, err := s.Store.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(0, again.Players[0].Score)
}

func (s *GameStoreSuite) TestRoomNotFound() {
	_, err := s.Store.GetRoom(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)

	_, err = s.Store.GetRoomByCode(s.Ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *GameStoreSuite) TestRoomCodeExists() {
	exists, err := s.Store.RoomCodeExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.Store.SaveRoom(s.Ctx, newRoom("room-1", "ABC123", model.RoomStatusWaiting, baseTime)))

	exists, err = s.Store.RoomCodeExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *GameStoreSuite) TestListRoomsFiltersAndOrders() {
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, newRoom("room-b", "BBBBBB", model.RoomStatusWaiting, baseTime)))
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, newRoom("room-a", "AAAAAA", model.RoomStatusWaiting, baseTime.Add(time.Second))))
	s.Require().NoError(s.Store.SaveRoom(s.Ctx, newRoom("room-c", "CCCCCC", model.RoomStatusPlaying, baseTime.Add(2*time.Second))))

	waiting := model.RoomStatusWaiting
	rooms, err := s.Store.ListRooms(s.Ctx, model.RoomFilter{Status: &waiting})
	s.Require().NoError(err)
	s.Require().Len(rooms, 2)
	s.Equal(model.RoomID("room-b"), rooms[0].ID)
	s.Equal(model.RoomID("room-a"), rooms[1].ID)

	all, err := s.Store.ListRooms(s.Ctx, model.RoomFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *GameStoreSuite) TestSaveAndGetTournament() {
	t := &model.Tournament{
		ID:           "t-1",
		HostID:       "host",
		Players:      []model.TournamentPlayer{{UserID: "host", DisplayName: "Host", CurrentRound: 1}},
		Status:       model.TournamentStatusWaiting,
		CreatedAt:    baseTime,
		FillDeadline: baseTime.Add(model.TournamentFillWait),
	}
	s.Require().NoError(s.Store.SaveTournament(s.Ctx, t))

	got, err := s.Store.GetTournament(s.Ctx, "t-1")
	s.Require().NoError(err)
	s.Equal(model.UserID("host"), got.HostID)
	s.True(t.FillDeadline.Equal(got.FillDeadline))

	_, err = s.Store.GetTournament(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *GameStoreSuite) TestListTournaments() {
	waiting := model.TournamentStatusWaiting
	s.Require().NoError(s.Store.SaveTournament(s.Ctx, &model.Tournament{ID: "t-1", Status: waiting, CreatedAt: baseTime}))
	s.Require().NoError(s.Store.SaveTournament(s.Ctx, &model.Tournament{ID: "t-2", Status: model.TournamentStatusCompleted, CreatedAt: baseTime.Add(time.Second)}))

	got, err := s.Store.ListTournaments(s.Ctx, model.TournamentFilter{Status: &waiting})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(model.TournamentID("t-1"), got[0].ID)
}

func (s *GameStoreSuite) TestDictionaryWords() {
	_, err := s.Store.GetDictionaryWords(s.Ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)

	s.Require().NoError(s.Store.SaveDictionaryWords(s.Ctx, []string{"KEDİ", "ŞİİR", "OKUL"}))

	words, err := s.Store.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"KEDİ", "ŞİİR", "OKUL"}, words)
}

// PreferenceStoreSuite exercises a storage.PreferenceStore
type PreferenceStoreSuite struct {
	suite.Suite
	Store storage.PreferenceStore
	Ctx   context.Context
}

func (s *PreferenceStoreSuite) TestSetGetRemove() {
	_, err := s.Store.GetPreference(s.Ctx, "user-1", "notifications_enabled")
	s.ErrorIs(err, model.ErrPreferenceNotFound)

	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-1", "notifications_enabled", "true"))
	v, err := s.Store.GetPreference(s.Ctx, "user-1", "notifications_enabled")
	s.Require().NoError(err)
	s.Equal("true", v)

	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-1", "notifications_enabled", "false"))
	v, err = s.Store.GetPreference(s.Ctx, "user-1", "notifications_enabled")
	s.Require().NoError(err)
	s.Equal("false", v)

	s.Require().NoError(s.Store.RemovePreference(s.Ctx, "user-1", "notifications_enabled"))
	_, err = s.Store.GetPreference(s.Ctx, "user-1", "notifications_enabled")
	s.ErrorIs(err, model.ErrPreferenceNotFound)
}

func (s *PreferenceStoreSuite) TestUsersWithPreference() {
	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-2", "notifications_enabled", "true"))
	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-1", "notifications_enabled", "true"))
	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-3", "notifications_enabled", "false"))
	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-4", "theme", "true"))

	users, err := s.Store.UsersWithPreference(s.Ctx, "notifications_enabled", "true")
	s.Require().NoError(err)
	s.Equal([]model.UserID{"user-1", "user-2"}, users)

	users, err = s.Store.UsersWithPreference(s.Ctx, "missing", "true")
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *PreferenceStoreSuite) TestKeysArePerUser() {
	s.Require().NoError(s.Store.SetPreference(s.Ctx, "user-1", "ad_reward", "2"))

	_, err := s.Store.GetPreference(s.Ctx, "user-2", "ad_reward")
	s.ErrorIs(err, model.ErrPreferenceNotFound)
}

func (s *PreferenceStoreSuite) TestRemoveMissingIsNoop() {
	s.NoError(s.Store.RemovePreference(s.Ctx, "user-1", "nothing"))
}
