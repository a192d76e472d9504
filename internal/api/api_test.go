package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/kelimeoyunu/internal/api"
	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/api/response"
	"github.com/mcoot/kelimeoyunu/internal/factory"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/testutil"
)

// testServer wires the router over a test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:            testutil.NopLogger(),
		Clock:             app.Clock,
		AuthService:       app.AuthService,
		ProfileService:    app.ProfileService,
		LivesService:      app.LivesService,
		Poller:            app.Poller,
		Notifier:          app.Notifier,
		Preferences:       app.Storage,
		Lexicon:           app.Lexicon,
		RoomManager:       app.RoomManager,
		TournamentManager: app.TournamentManager,
		HubManager:        app.HubManager,
		Sockets:           app.Sockets,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func signUp(t *testing.T, ts *testServer, email, name string) response.AuthResponse {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":       email,
		"password":    "gizli-sifre",
		"displayName": name,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.AuthResponse](t, rr)
}

func createRoom(t *testing.T, ts *testServer, token string, body map[string]any) model.GameRoom {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/rooms", body, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.GameRoom](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	health := decode[response.Health](t, rr)
	assert.Equal(t, "ok", health.Status)
	assert.Positive(t, health.Dictionary)
}

func TestSignUpAndLogin(t *testing.T) {
	ts := newTestServer(t)

	created := signUp(t, ts, "Alice@Example.com", "Alice")
	assert.True(t, created.Created)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "alice@example.com", created.User.Email)
	assert.Equal(t, model.MaxLives, created.User.Lives)

	rr := ts.request(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "baska-sifre",
	}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeEmailExists, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "gizli-sifre",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	login := decode[response.AuthResponse](t, rr)
	assert.False(t, login.Created)
	assert.Equal(t, created.User.ID, login.User.ID)

	rr = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "yanlis",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGoogleSignInDisabledWithoutCredentials(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/auth/google", nil, "")
	assert.NotEqual(t, http.StatusFound, rr.Code)
	assert.NotEmpty(t, errorCode(t, rr))
}

func TestGetAndUpdateMe(t *testing.T) {
	ts := newTestServer(t)
	session := signUp(t, ts, "alice@example.com", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/me", nil, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[response.User](t, rr)
	assert.Equal(t, "Alice", me.DisplayName)
	assert.NotNil(t, me.Badges)

	rr = ts.request(http.MethodPatch, "/api/v1/me", map[string]string{"displayName": "Ayşe"}, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ayşe", decode[response.User](t, rr).DisplayName)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/me", "/api/v1/me/lives", "/api/v1/events"} {
		rr := ts.request(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTokenFromQueryParameter(t *testing.T) {
	ts := newTestServer(t)
	session := signUp(t, ts, "alice@example.com", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/me?access_token="+session.Token, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLivesEndpoints(t *testing.T) {
	ts := newTestServer(t)
	session := signUp(t, ts, "alice@example.com", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/me/lives", nil, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[response.LivesStatus](t, rr)
	assert.Equal(t, model.MaxLives, status.Lives)
	assert.True(t, status.CanPlay)
	assert.Zero(t, status.FullInSeconds)
	assert.Equal(t, lives.DailyGameLimit, status.Daily.Max)

	rr = ts.request(http.MethodPost, "/api/v1/me/lives/ad-reward", nil, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	reward := decode[response.AdRewardResponse](t, rr)
	assert.Equal(t, model.MaxLives, reward.Lives)
	assert.Equal(t, 1, reward.AdRewardCount)

	rr = ts.request(http.MethodGet, "/api/v1/me/lives/daily", nil, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	daily := decode[lives.DailyLimit](t, rr)
	assert.True(t, daily.WithinLimit)
	assert.Zero(t, daily.Played)
}

func TestPreferences(t *testing.T) {
	ts := newTestServer(t)
	session := signUp(t, ts, "alice@example.com", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/me/preferences/theme", nil, session.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodPut, "/api/v1/me/preferences/theme", map[string]string{"value": "dark"}, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/me/preferences/theme", nil, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, response.Preference{Key: "theme", Value: "dark"}, decode[response.Preference](t, rr))

	// The notification opt-in schedules the daily reminder
	rr = ts.request(http.MethodPut, "/api/v1/me/preferences/"+notification.PrefEnabled, map[string]string{"value": "true"}, session.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{notification.LabelDailyReminder}, ts.app.Notifier.Pending(model.UserID(session.User.ID)))
}

func TestRoomFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := signUp(t, ts, "alice@example.com", "Alice")
	bob := signUp(t, ts, "bob@example.com", "Bob")

	room := createRoom(t, ts, alice.Token, map[string]any{"mode": "points", "maxPoints": 10})
	assert.Equal(t, model.RoomStatusWaiting, room.Status)
	assert.Equal(t, 10, room.MaxPoints)
	require.Len(t, room.Players, 1)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/code/"+string(room.Code), nil, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, room.ID, decode[model.GameRoom](t, rr).ID)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/join", map[string]string{"code": string(room.Code)}, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[model.GameRoom](t, rr).Players, 2)

	base := "/api/v1/rooms/" + string(room.ID)

	// Words only count once the room is playing
	rr = ts.request(http.MethodPost, base+"/words", map[string]string{"word": "KEDI"}, alice.Token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.request(http.MethodPost, base+"/ready", nil, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, base+"/ready", map[string]bool{"ready": true}, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.RoomStatusPlaying, decode[model.GameRoom](t, rr).Status)

	// A blank word is scored, not refused
	rr = ts.request(http.MethodPost, base+"/words", map[string]string{"word": "  "}, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	blank := decode[response.SubmitResponse](t, rr)
	assert.False(t, blank.Validation.IsValid)
	assert.Zero(t, blank.Validation.Points)
	assert.Equal(t, model.RoomStatusPlaying, blank.Room.Status)

	rr = ts.request(http.MethodPut, base+"/word", map[string]string{"word": "KIR"}, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, base+"/words", map[string]string{"word": "KIRMIZI"}, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	submitted := decode[response.SubmitResponse](t, rr)
	assert.True(t, submitted.Validation.IsValid)
	assert.Equal(t, 10, submitted.Validation.Points)
	assert.Equal(t, model.RoomStatusFinished, submitted.Room.Status)
	require.NotNil(t, submitted.Room.Winner)
	assert.Equal(t, model.UserID(alice.User.ID), *submitted.Room.Winner)

	rr = ts.request(http.MethodPost, base+"/words", map[string]string{"word": "KEDI"}, bob.Token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/me", nil, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[response.User](t, rr)
	assert.Equal(t, 1, me.GamesWon)
	assert.Equal(t, model.MaxLives-1, me.Lives)
}

func TestTimedRoomTimeoutWaitsForDeadline(t *testing.T) {
	ts := newTestServer(t)
	alice := signUp(t, ts, "alice@example.com", "Alice")
	bob := signUp(t, ts, "bob@example.com", "Bob")

	room := createRoom(t, ts, alice.Token, map[string]any{"mode": "timed", "timeLimit": 120})
	rr := ts.request(http.MethodPost, "/api/v1/rooms/join", map[string]string{"code": string(room.Code)}, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	base := "/api/v1/rooms/" + string(room.ID)
	for _, token := range []string{alice.Token, bob.Token} {
		rr = ts.request(http.MethodPost, base+"/ready", nil, token)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr = ts.request(http.MethodPost, base+"/words", map[string]string{"word": "KIRMIZI"}, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	// Leading player cannot cut the clock short
	rr = ts.request(http.MethodPost, base+"/timeout", nil, alice.Token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotExpired, errorCode(t, rr))

	rr = ts.request(http.MethodGet, base, nil, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.RoomStatusPlaying, decode[model.GameRoom](t, rr).Status)

	ts.app.MockClock.Advance(2 * time.Minute)

	rr = ts.request(http.MethodPost, base+"/timeout", nil, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	ended := decode[model.GameRoom](t, rr)
	assert.Equal(t, model.RoomStatusFinished, ended.Status)
	require.NotNil(t, ended.Winner)
	assert.Equal(t, model.UserID(alice.User.ID), *ended.Winner)
}

func TestRoomOutsiderIsRejected(t *testing.T) {
	ts := newTestServer(t)
	alice := signUp(t, ts, "alice@example.com", "Alice")
	eve := signUp(t, ts, "eve@example.com", "Eve")

	room := createRoom(t, ts, alice.Token, map[string]any{"mode": "timed", "timeLimit": 60})
	assert.Equal(t, 60, room.TimeLimit)

	rr := ts.request(http.MethodPost, "/api/v1/rooms/"+string(room.ID)+"/ready", nil, eve.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/does-not-exist", nil, eve.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{"mode": "marathon"}, alice.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCannotPlayWithoutLives(t *testing.T) {
	ts := newTestServer(t)
	alice := signUp(t, ts, "alice@example.com", "Alice")

	u, err := ts.app.MemoryStorage.GetUser(t.Context(), model.UserID(alice.User.ID))
	require.NoError(t, err)
	u.Lives = 0
	u.LastLifeRegeneration = ts.app.MockClock.Now()
	require.NoError(t, ts.app.MemoryStorage.SaveUser(t.Context(), u))

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{"mode": "points"}, alice.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	body := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, apierr.CodeCannotPlay, body.Error.Code)
	assert.Equal(t, lives.ReasonNoLives, body.Error.Message)

	rr = ts.request(http.MethodGet, "/api/v1/me/lives", nil, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[response.LivesStatus](t, rr)
	assert.False(t, status.CanPlay)
	assert.Equal(t, lives.ReasonNoLives, status.Reason)
	assert.Equal(t, int64(lives.RegenerationInterval.Seconds()), status.NextLifeInSeconds)
}

func TestTournamentFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := signUp(t, ts, "alice@example.com", "Alice")
	bob := signUp(t, ts, "bob@example.com", "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/tournaments", nil, alice.Token)
	require.Equal(t, http.StatusCreated, rr.Code)
	tournament := decode[model.Tournament](t, rr)
	assert.Equal(t, model.TournamentStatusWaiting, tournament.Status)

	base := "/api/v1/tournaments/" + string(tournament.ID)

	rr = ts.request(http.MethodPost, base+"/join", nil, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[model.Tournament](t, rr).Players, 2)

	rr = ts.request(http.MethodPost, base+"/start", nil, bob.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, base+"/start", nil, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	started := decode[model.Tournament](t, rr)
	assert.Equal(t, model.TournamentStatusInProgress, started.Status)
	assert.Len(t, started.Players, model.TournamentSize)

	match := started.Rounds[0].Matches[0]
	require.True(t, match.HasPlayer(model.UserID(alice.User.ID)))

	rr = ts.request(http.MethodPost, base+"/matches/"+string(match.ID)+"/result", map[string]int{"score": -5}, alice.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, base+"/matches/"+string(match.ID)+"/result", map[string]int{"score": 35}, alice.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, base+"/matches/"+string(match.ID)+"/result", map[string]int{"score": 35}, alice.Token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.request(http.MethodGet, base, nil, bob.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.TournamentStatusInProgress, decode[model.Tournament](t, rr).Status)
}

func TestEventsRejectsForeignTopics(t *testing.T) {
	ts := newTestServer(t)
	alice := signUp(t, ts, "alice@example.com", "Alice")
	bob := signUp(t, ts, "bob@example.com", "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/events?topic="+model.UserTopic(model.UserID(bob.User.ID)), nil, alice.Token)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/events?topic=secrets", nil, alice.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
