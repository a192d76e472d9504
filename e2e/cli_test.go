package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/kelimeoyunu/internal/api"
	"github.com/mcoot/kelimeoyunu/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "kelime-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/kelime")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	// Create temp token file
	tokenFile := filepath.Join(t.TempDir(), "token")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  tokenFile,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	server   *api.Server
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Real clock and random; memory storage with the built-in word list
	app, err := factory.New(context.Background(), factory.Config{Logger: logger})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		Clock:             app.Clock,
		AuthService:       app.AuthService,
		ProfileService:    app.ProfileService,
		LivesService:      app.LivesService,
		Notifier:          app.Notifier,
		Preferences:       app.Storage,
		Lexicon:           app.Lexicon,
		RoomManager:       app.RoomManager,
		TournamentManager: app.TournamentManager,
		HubManager:        app.HubManager,
		Sockets:           app.Sockets,
	})

	config := api.DefaultServerConfig()
	config.Host = "127.0.0.1"
	config.Port = port
	server := api.NewServer(router, app, config, logger)

	// Start engine and server
	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		server: server,
		addr:   serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Lives       int    `json:"lives"`
	GamesWon    int    `json:"gamesWon"`
	TotalScore  int    `json:"totalScore"`
}

type authResponse struct {
	User    userResponse `json:"user"`
	Token   string       `json:"token"`
	Created bool         `json:"created"`
}

type livesResponse struct {
	Lives    int  `json:"lives"`
	MaxLives int  `json:"maxLives"`
	CanPlay  bool `json:"canPlay"`
}

type roomResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Mode      string `json:"mode"`
	MaxPoints int    `json:"maxPoints"`
	Status    string `json:"status"`
	Players   []struct {
		UserID string `json:"userId"`
		Score  int    `json:"score"`
		Ready  bool   `json:"ready"`
	} `json:"players"`
	Winner *string `json:"winner"`
}

type submitResponse struct {
	Validation struct {
		Word    string `json:"word"`
		IsValid bool   `json:"isValid"`
		Points  int    `json:"points"`
	} `json:"validation"`
	Room roomResponse `json:"room"`
}

type tournamentResponse struct {
	ID      string `json:"id"`
	HostID  string `json:"hostId"`
	Status  string `json:"status"`
	Players []struct {
		UserID string `json:"userId"`
		IsBot  bool   `json:"isBot"`
	} `json:"players"`
	Rounds []struct {
		RoundNumber int `json:"roundNumber"`
		Matches     []struct {
			ID      string `json:"id"`
			Player1 string `json:"player1"`
			Player2 string `json:"player2"`
			Status  string `json:"status"`
		} `json:"matches"`
	} `json:"rounds"`
}

type healthResponse struct {
	Status          string `json:"status"`
	DictionaryWords int    `json:"dictionaryWords"`
}

type preferenceResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func signUpViaCLI(t *testing.T, cli *cliRunner, name string) authResponse {
	t.Helper()

	email := strings.ToLower(name) + "@example.com"
	output, err := cli.run("auth", "signup", "--name", name, "--email", email, "--pass", "gizli-sifre")
	require.NoError(t, err, "output: %s", output)

	var resp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	return resp
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Positive(t, resp.DictionaryWords)

	// A server with a smaller dictionary than required is unhealthy
	output, err = cli.run("health", "--min-words", "1000000")
	require.Error(t, err)
	assert.Contains(t, output, "want at least 1000000")
}

func TestCLI_AccountCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	authResp := signUpViaCLI(t, cli, "Alice")
	assert.True(t, authResp.Created)
	assert.Equal(t, "Alice", authResp.User.DisplayName)
	assert.NotEmpty(t, authResp.Token)

	// Token is saved in the token file
	output, err := cli.run("me")
	require.NoError(t, err, "output: %s", output)

	var me userResponse
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, authResp.User.ID, me.ID)
	assert.Equal(t, 5, me.Lives)

	output, err = cli.run("me", "update", "--name", "Ayşe")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, "Ayşe", me.DisplayName)

	output, err = cli.run("lives", "status")
	require.NoError(t, err, "output: %s", output)

	var lives livesResponse
	require.NoError(t, json.Unmarshal([]byte(output), &lives))
	assert.Equal(t, lives.MaxLives, lives.Lives)
	assert.True(t, lives.CanPlay)

	output, err = cli.run("prefs", "set", "theme", "dark")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("prefs", "get", "theme")
	require.NoError(t, err, "output: %s", output)

	var pref preferenceResponse
	require.NoError(t, json.Unmarshal([]byte(output), &pref))
	assert.Equal(t, "dark", pref.Value)

	// Logging out and back in
	_, err = cli.run("auth", "logout")
	require.NoError(t, err)

	_, err = cli.run("me")
	assert.Error(t, err)

	output, err = cli.run("auth", "login", "--email", "alice@example.com", "--pass", "gizli-sifre")
	require.NoError(t, err, "output: %s", output)

	var login authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &login))
	assert.False(t, login.Created)
	assert.Equal(t, authResp.User.ID, login.User.ID)
}

func TestCLI_FullRoomFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	// Create two CLI runners with separate token files
	cli1 := newCLIRunner(t, ts.addr)
	cli2 := &cliRunner{
		binaryPath: cli1.binaryPath,
		serverURL:  cli1.serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token2"),
	}

	alice := signUpViaCLI(t, cli1, "Alice")
	bob := signUpViaCLI(t, cli2, "Bob")

	// Alice opens a short points room
	output, err := cli1.run("room", "create", "--mode", "points", "--max-points", "12")
	require.NoError(t, err, "output: %s", output)
	var room roomResponse
	require.NoError(t, json.Unmarshal([]byte(output), &room))
	assert.Equal(t, "waiting", room.Status)
	assert.Equal(t, 12, room.MaxPoints)
	t.Logf("Created room: %s (%s)", room.ID, room.Code)

	// Bob joins by code
	output, err = cli2.run("room", "join", strings.ToLower(room.Code))
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &room))
	assert.Len(t, room.Players, 2)

	output, err = cli1.run("room", "ready", room.ID)
	require.NoError(t, err, "output: %s", output)
	output, err = cli2.run("room", "ready", room.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &room))
	assert.Equal(t, "playing", room.Status)

	words := []struct {
		cli    *cliRunner
		word   string
		points int
	}{
		{cli1, "KIRMIZI", 10},
		{cli2, "KEDI", 2},
		{cli2, "KEDI", 0},
		{cli1, "OKUL", 2},
	}

	var submit submitResponse
	for _, w := range words {
		output, err = w.cli.run("room", "submit", room.ID, w.word)
		require.NoError(t, err, "output: %s", output)
		require.NoError(t, json.Unmarshal([]byte(output), &submit))
		assert.Equal(t, w.points, submit.Validation.Points, w.word)
	}

	assert.Equal(t, "finished", submit.Room.Status)
	require.NotNil(t, submit.Room.Winner)
	assert.Equal(t, alice.User.ID, *submit.Room.Winner)

	output, err = cli2.run("room", "get", room.Code, "--code")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &room))
	assert.Equal(t, "finished", room.Status)

	output, err = cli1.run("me")
	require.NoError(t, err, "output: %s", output)
	var me userResponse
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, 1, me.GamesWon)
	assert.Equal(t, 12, me.TotalScore)
	assert.Equal(t, 4, me.Lives)

	output, err = cli2.run("me")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, bob.User.ID, me.ID)
	assert.Zero(t, me.GamesWon)
}

func TestCLI_TournamentFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	alice := signUpViaCLI(t, cli, "Alice")

	output, err := cli.run("tournament", "create")
	require.NoError(t, err, "output: %s", output)
	var tournament tournamentResponse
	require.NoError(t, json.Unmarshal([]byte(output), &tournament))
	assert.Equal(t, "waiting", tournament.Status)
	assert.Equal(t, alice.User.ID, tournament.HostID)

	output, err = cli.run("tournament", "start", tournament.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &tournament))
	assert.Equal(t, "in-progress", tournament.Status)
	assert.Len(t, tournament.Players, 8)
	require.NotEmpty(t, tournament.Rounds)

	var matchID string
	for _, m := range tournament.Rounds[0].Matches {
		if m.Player1 == alice.User.ID || m.Player2 == alice.User.ID {
			matchID = m.ID
		}
	}
	require.NotEmpty(t, matchID)

	// Bots never score above 80
	output, err = cli.run("tournament", "report", tournament.ID, matchID, "--score", "500")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &tournament))
	assert.GreaterOrEqual(t, len(tournament.Rounds), 2)

	output, err = cli.run("tournament", "get", tournament.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &tournament))
	assert.Equal(t, "in-progress", tournament.Status)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Get profile without auth
	output, err := cli.run("me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	auth := signUpViaCLI(t, cli, "Alice")

	// Duplicate email
	output, err = cli.run("auth", "signup", "--email", "alice@example.com", "--pass", "baska-sifre")
	assert.Error(t, err)
	assert.Contains(t, output, "EMAIL_EXISTS")

	// Get non-existent room
	output, err = cli.runWithToken(auth.Token, "room", "get", "INVALID", "--code")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")

	// Bad mode is rejected before any request
	output, err = cli.runWithToken(auth.Token, "room", "create", "--mode", "marathon")
	assert.Error(t, err)
	assert.Contains(t, output, "--mode")

	output, err = cli.runWithToken(auth.Token, "tournament", "get", fmt.Sprintf("missing-%d", time.Now().UnixNano()))
	assert.Error(t, err)
	assert.Contains(t, output, "TOURNAMENT_NOT_FOUND")
}
